package blob

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"melt/0f3a_melt.tar.gz", true},
		{"alloy1/deadbeef_run1.tar.gz_1700000000", true},
		{"melt/0f3a_lauf-ü.tar.gz", true},
		{strings.Repeat("m", maxKeyLen), true},

		{"", false},
		{strings.Repeat("m", maxKeyLen+1), false},
		{"/melt/0f3a_melt.tar.gz", false},
		{"melt//0f3a_melt.tar.gz", false},
		{"melt/", false},
		{"./melt.tar.gz", false},
		{"../escape.tar.gz", false},
		{"melt/0f3a_run..tar.gz", false},
		{`melt\0f3a_melt.tar.gz`, false},
		{"melt/0f3a_\xff.tar.gz", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateKey(tt.key), "key %q", tt.key)
	}
}
