package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openmined/simlog/internal/client/credentials"
	"github.com/openmined/simlog/internal/revision"
	"github.com/openmined/simlog/internal/server"
	"github.com/openmined/simlog/internal/server/auth"
	"github.com/openmined/simlog/internal/simsdk"
)

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SIMLOG_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("SIMLOG_USERNAME", "alice")
	t.Setenv("SIMLOG_SERVER", "logs.example.org:8443")
	t.Setenv("SIMLOG_TRACKED_FILES", "in.,log.")
	t.Setenv("SIMLOG_CREDENTIALS_PATH", "/tmp/simlog-test/credentials")

	cfg, err := loadConfig(newRootCmd())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "https://logs.example.org:8443", cfg.Server)
	assert.Equal(t, []string{"in.", "log."}, cfg.TrackedFiles)
	assert.Equal(t, "/tmp/simlog-test/credentials", cfg.CredentialsPath)
}

func TestLoadConfigJSON(t *testing.T) {
	dummyConfig := `
{
	"username": "bob",
	"server": "http://localhost:8080/",
	"tracked_files": ["in.", "data.*"]
}
`
	dummyConfigFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte(dummyConfig), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", dummyConfigFile))
	require.NoError(t, cmd.PersistentFlags().Set("user", "carol"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, dummyConfigFile, cfg.Path)
	assert.Equal(t, "carol", cfg.Username)
	assert.Equal(t, "http://localhost:8080", cfg.Server)
	assert.Equal(t, []string{"in.", "data.*"}, cfg.TrackedFiles)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dummyConfigFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(dummyConfigFile, []byte("{not json"), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", dummyConfigFile))

	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "simlog [flags] [command...]")
}

func TestRootRejectsCommandWithCompress(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--compress", "echo", "hi"})

	assert.Error(t, cmd.Execute())
}

func TestRootCompressUploadsDirectory(t *testing.T) {
	srv, err := server.New(&server.Config{
		DataPath: t.TempDir(),
		Admin:    auth.Config{AdminPassword: "admin-secret", BcryptCost: bcrypt.MinCost},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
	})

	// register up front so no password prompt is needed
	api, err := simsdk.New(ts.URL)
	require.NoError(t, err)
	key, err := api.Register(context.Background(), "admin-secret", "alice")
	require.NoError(t, err)

	base := t.TempDir()
	credPath := filepath.Join(base, "credentials")
	require.NoError(t, credentials.New(credPath, nil).Save("127.0.0.1", key))

	configPath := filepath.Join(base, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
	"username": "alice",
	"server": "`+ts.URL+`",
	"tracked_files": ["in."],
	"credentials_path": "`+credPath+`"
}`), 0o644))

	dir := filepath.Join(base, "run1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.melt"), []byte("run 100\n"), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", configPath, "--coll", "melt", "-c", "--dir", dir})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "run1.tar.gz")
	assert.FileExists(t, filepath.Join(dir, revision.FileName))

	rec, err := revision.NewStore(dir).Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "melt", rec.Collection())
	assert.True(t, rec.IsRoot())
}
