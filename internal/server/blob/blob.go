package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrInvalidKey = errors.New("blob: invalid key")
	ErrNotFound   = errors.New("blob: object not found")
)

// ArchiveStore keeps uploaded archives by key.
type ArchiveStore interface {
	// Put stores data under key, replacing an existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key, ErrNotFound when there is none.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every stored key.
	List(ctx context.Context) ([]string, error)

	// Delete removes the object under key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Location describes where objects live, for logs.
	Location() string
}

// NewArchiveStore builds the backend selected by cfg.
func NewArchiveStore(cfg *Config) (ArchiveStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var store ArchiveStore
	switch cfg.Backend {
	case BackendLocal, "":
		local, err := NewLocalBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = local
	case BackendS3:
		s3, err := NewS3BackendWithConfig(&cfg.S3)
		if err != nil {
			return nil, err
		}
		store = s3
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}

	slog.Info("archive store", "backend", cfg.Backend, "location", store.Location())
	return store, nil
}
