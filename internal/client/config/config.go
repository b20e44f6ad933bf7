package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/openmined/simlog/internal/revision"
	"github.com/openmined/simlog/internal/utils"
)

var (
	home, _                = os.UserHomeDir()
	DefaultConfigDir       = filepath.Join(home, ".simlog")
	DefaultConfigPath      = filepath.Join(DefaultConfigDir, "config.json")
	DefaultCredentialsPath = filepath.Join(DefaultConfigDir, "credentials")
)

type Config struct {
	Username        string   `json:"username" mapstructure:"username"`
	Server          string   `json:"server" mapstructure:"server"`
	TrackedFiles    []string `json:"tracked_files" mapstructure:"tracked_files"`
	CredentialsPath string   `json:"credentials_path,omitempty" mapstructure:"credentials_path"`
	Path            string   `json:"-" mapstructure:"-"`
}

// Validate normalizes the config. A server given as a bare `host:port` is reached
// over https.
func (c *Config) Validate() error {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" {
		return fmt.Errorf("`username` is required")
	}

	if c.Server == "" {
		return fmt.Errorf("`server` is required")
	}
	if !strings.Contains(c.Server, "://") {
		c.Server = "https://" + c.Server
	}
	if !utils.IsValidURL(c.Server) {
		return fmt.Errorf("invalid server url %q", c.Server)
	}
	c.Server = strings.TrimSuffix(c.Server, "/")

	c.TrackedFiles = normalizePatterns(c.TrackedFiles)
	if len(c.TrackedFiles) == 0 {
		return fmt.Errorf("`tracked_files` must list at least one pattern")
	}

	if c.CredentialsPath == "" {
		c.CredentialsPath = DefaultCredentialsPath
	}
	path, err := utils.ResolvePath(c.CredentialsPath)
	if err != nil {
		return fmt.Errorf("credentials_path: %w", err)
	}
	c.CredentialsPath = path

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}
	return nil
}

// ServerHost is the key of this server in the credentials file.
func (c *Config) ServerHost() (string, error) {
	return utils.HostOf(c.Server)
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// normalizePatterns accepts both a list and the legacy comma separated form.
func normalizePatterns(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range revision.ParsePatterns(item) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
