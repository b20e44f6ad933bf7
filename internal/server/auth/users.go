package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openmined/simlog/internal/db"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	key_hash TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// UserStore keeps bcrypt hashes of user keys.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(database *sqlx.DB) (*UserStore, error) {
	if err := db.Migrate(database, usersSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize users: %w", err)
	}
	return &UserStore{db: database}, nil
}

// Put sets the key hash of username, replacing an existing one.
func (u *UserStore) Put(ctx context.Context, username string, keyHash []byte) error {
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO users (username, key_hash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET key_hash = excluded.key_hash, updated_at = excluded.updated_at`,
		username, string(keyHash), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store user %s: %w", username, err)
	}
	return nil
}

// KeyHash returns the stored hash of username, sql.ErrNoRows when unknown.
func (u *UserStore) KeyHash(ctx context.Context, username string) ([]byte, error) {
	var hash string
	err := u.db.GetContext(ctx, &hash, "SELECT key_hash FROM users WHERE username = ?", username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return []byte(hash), nil
}
