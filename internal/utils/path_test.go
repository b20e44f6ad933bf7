package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{name: "empty path", input: "", wantError: true},
		{name: "relative path", input: "./test", wantError: false},
		{name: "absolute path", input: "/tmp/test", wantError: false},
		{name: "home path", input: "~/simlog", wantError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(result))
		})
	}
}

func TestEnsureParent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "file.txt")

	require.NoError(t, EnsureParent(target))
	assert.True(t, DirExists(filepath.Dir(target)))
	assert.False(t, FileExists(target))

	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	assert.True(t, FileExists(target))
	assert.False(t, DirExists(target))
}

func TestRandAlphaNum(t *testing.T) {
	key, err := RandAlphaNum(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)
	assert.Regexp(t, `^[A-Za-z0-9]{64}$`, key)

	other, err := RandAlphaNum(64)
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = RandAlphaNum(0)
	assert.Error(t, err)
}

func TestURLHelpers(t *testing.T) {
	assert.True(t, IsValidURL("https://logs.example.org:8443"))
	assert.False(t, IsValidURL("logs.example.org"))

	host, err := HostOf("https://logs.example.org:8443/base")
	require.NoError(t, err)
	assert.Equal(t, "logs.example.org", host)

	_, err = HostOf("not a url")
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd*****", MaskSecret("abcdefgh"))
	assert.Equal(t, "*****", MaskSecret("abc"))
}
