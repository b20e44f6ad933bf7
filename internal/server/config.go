package server

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/openmined/simlog/internal/server/auth"
	"github.com/openmined/simlog/internal/server/blob"
	"github.com/openmined/simlog/internal/server/store"
	"github.com/openmined/simlog/internal/utils"
)

const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultDatabaseName = "simlog.db"
	DefaultRegisterRate = "10-M"
)

type Config struct {
	HTTP          HTTPConfig      `mapstructure:"http"`
	DataPath      string          `mapstructure:"data_path"`
	Database      string          `mapstructure:"database"`
	Registry      string          `mapstructure:"registry"`
	LogFile       string          `mapstructure:"log_file"`
	MaxUploadSize int64           `mapstructure:"max_upload_size"`
	Admin         auth.Config     `mapstructure:"admin"`
	Archive       blob.Config     `mapstructure:"archive"`
	Session       SessionConfig   `mapstructure:"session"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

type HTTPConfig struct {
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

func (c *HTTPConfig) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	Register string `mapstructure:"register"`
}

// Validate checks the config and fills in derived defaults.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if (c.HTTP.CertFile == "") != (c.HTTP.KeyFile == "") {
		return fmt.Errorf("http `cert_file` and `key_file` must be set together")
	}

	if c.DataPath == "" {
		return fmt.Errorf("`data_path` is required")
	}
	dataPath, err := utils.ResolvePath(c.DataPath)
	if err != nil {
		return fmt.Errorf("data_path: %w", err)
	}
	c.DataPath = dataPath

	if c.Database == "" {
		c.Database = filepath.Join(c.DataPath, DefaultDatabaseName)
	}
	if c.Registry == "" {
		c.Registry = store.DefaultRegistry
	}
	if c.RateLimit.Register == "" {
		c.RateLimit.Register = DefaultRegisterRate
	}
	if c.MaxUploadSize < 0 {
		return fmt.Errorf("`max_upload_size` must not be negative")
	}

	if err := c.Admin.Validate(); err != nil {
		return err
	}

	c.Archive.Path = filepath.Join(c.DataPath, "archives")
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	return nil
}
