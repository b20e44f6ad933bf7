package kvfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "id : sim:0011223344556677\n\nparent_id : *\nlog.lammps : aabbccddeeff0011\nlegacy value\n"

	pairs, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pairs, 4)

	assert.Equal(t, Pair{Key: "id", Value: "sim:0011223344556677"}, pairs[0])
	assert.Equal(t, Pair{Key: "parent_id", Value: "*"}, pairs[1])
	assert.Equal(t, Pair{Key: "log.lammps", Value: "aabbccddeeff0011"}, pairs[2])
	assert.Equal(t, Pair{Key: "legacy", Value: "value"}, pairs[3])
}

func TestParseKeepsSpacesInKeys(t *testing.T) {
	pairs, err := Parse(strings.NewReader("run 1/out file.txt : 0123456789abcdef\n"))
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "run 1/out file.txt", pairs[0].Key)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("id : a\nthis line has too many fields\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestFormatRoundTrip(t *testing.T) {
	pairs := []Pair{
		{Key: "id", Value: "c:1"},
		{Key: "parent_id", Value: "*"},
		{Key: "a.txt", Value: "ffff"},
	}

	out := Format(pairs)
	assert.Equal(t, "id : c:1\nparent_id : *\na.txt : ffff\n", string(out))

	back, err := Parse(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, pairs, back)
}

func TestLookup(t *testing.T) {
	pairs := []Pair{{Key: "h", Value: "1"}, {Key: "h", Value: "2"}}

	v, ok := Lookup(pairs, "h")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = Lookup(pairs, "missing")
	assert.False(t, ok)
}
