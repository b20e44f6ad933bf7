package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// AdminPassword guards /register and /cleanup.
	AdminPassword string `mapstructure:"password"`
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
}

func (c *Config) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("admin `password` is required")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
