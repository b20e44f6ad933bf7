package privilege

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoWithoutElevation(t *testing.T) {
	c := &Capability{realUID: 1000, savedUID: 1000}
	assert.False(t, c.Elevated())

	calls := 0
	require.NoError(t, c.Do(func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	assert.ErrorIs(t, c.Do(func() error { return boom }), boom)
}

func TestDropKeepsCurrentUser(t *testing.T) {
	c, err := Drop()
	require.NoError(t, err)

	// test binaries are never setuid
	assert.False(t, c.Elevated())
	require.NoError(t, c.Do(func() error { return nil }))
}
