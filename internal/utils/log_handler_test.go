package utils

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	debug := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	info := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewTeeHandler(debug, info)).With("component", "test").WithGroup("req")
	logger.Debug("only debug", "id", 1)
	logger.Info("both", "id", 2)

	assert.Contains(t, debugBuf.String(), "only debug")
	assert.Contains(t, debugBuf.String(), "component=test")
	assert.Contains(t, debugBuf.String(), "req.id=2")
	assert.NotContains(t, infoBuf.String(), "only debug")
	assert.Contains(t, infoBuf.String(), "both")
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("first\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}
