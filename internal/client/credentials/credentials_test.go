package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingElevator struct {
	calls int
}

func (c *countingElevator) Do(fn func() error) error {
	c.calls++
	return fn()
}

func TestSaveAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials")
	elev := &countingElevator{}
	store := New(path, elev)

	_, found, err := store.Lookup("logs.example.org")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save("logs.example.org", "key-one"))
	require.NoError(t, store.Save("other.example.org", "key-two"))
	require.NoError(t, store.Save("logs.example.org", "key-three"))

	key, found, err := store.Lookup("logs.example.org")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "key-three", key)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "logs.example.org : key-three\nother.example.org : key-two\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Equal(t, 5, elev.calls)
}

func TestLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("logs.example.org abc123\n"), 0o600))

	key, found, err := New(path, nil).Lookup("logs.example.org")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc123", key)
}

func TestSaveRequiresValues(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "credentials"), nil)
	assert.Error(t, store.Save("", "key"))
	assert.Error(t, store.Save("host", ""))
}
