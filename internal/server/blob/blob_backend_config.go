package blob

import (
	"fmt"

	"github.com/openmined/simlog/internal/utils"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type Config struct {
	Backend string   `mapstructure:"backend"`
	S3      S3Config `mapstructure:"s3"`

	// Path is the local archive directory, filled from data_path.
	Path string `mapstructure:"-"`
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, "":
		if c.Path == "" {
			return fmt.Errorf("data_path required for the local archive backend")
		}
	case BackendS3:
		if err := c.S3.Validate(); err != nil {
			return fmt.Errorf("archive.s3: %w", err)
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Backend)
	}
	return nil
}

type S3Config struct {
	BucketName    string `mapstructure:"bucket_name"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Endpoint      string `mapstructure:"endpoint"`
	Prefix        string `mapstructure:"prefix"`
	UseAccelerate bool   `mapstructure:"use_accelerate"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("bucket_name required")
	}
	if c.Region == "" {
		return fmt.Errorf("region required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("access_key required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key required")
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("invalid endpoint URL %q", c.Endpoint)
	}
	return nil
}
