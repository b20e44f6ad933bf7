package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/openmined/simlog/internal/server/session"
	"github.com/openmined/simlog/internal/utils"
)

type AuthService struct {
	config *Config
	users  *UserStore
	jar    session.Jar
	cost   int
}

func NewAuthService(config *Config, users *UserStore, jar session.Jar) *AuthService {
	cost := config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		config: config,
		users:  users,
		jar:    jar,
		cost:   cost,
	}
}

// IsAdmin reports whether password matches the configured admin password.
func (s *AuthService) IsAdmin(password string) bool {
	if s.config.AdminPassword == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.config.AdminPassword)) == 1
}

// Register issues a new key for username. Registering again replaces the old key.
func (s *AuthService) Register(ctx context.Context, adminPassword, username string) (string, error) {
	if !s.IsAdmin(adminPassword) {
		return "", ErrAccessDenied
	}
	if username == "" || strings.ContainsAny(username, " \t\r\n") {
		return "", ErrInvalidUsername
	}

	key, err := utils.RandAlphaNum(KeyLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}

	if err := s.users.Put(ctx, username, hash); err != nil {
		return "", err
	}

	s.jar.Forget(username)
	slog.Info("user registered", "username", username, "key", utils.MaskSecret(key))
	return key, nil
}

// Verify checks a username/key pair. Successful checks are remembered by the session
// jar so the bcrypt comparison runs once per TTL.
func (s *AuthService) Verify(ctx context.Context, username, key string) error {
	if username == "" || key == "" {
		return ErrInvalidCredentials
	}
	if s.jar.Valid(username, key) {
		return nil
	}

	hash, err := s.users.KeyHash(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	} else if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
		return ErrInvalidCredentials
	}

	s.jar.Remember(username, key)
	return nil
}
