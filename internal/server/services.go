package server

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/openmined/simlog/internal/server/auth"
	"github.com/openmined/simlog/internal/server/blob"
	"github.com/openmined/simlog/internal/server/ingest"
	"github.com/openmined/simlog/internal/server/session"
	"github.com/openmined/simlog/internal/server/store"
)

type Services struct {
	Auth     *auth.AuthService
	Sessions *session.Store
	Records  *store.Store
	Archives blob.ArchiveStore
	Ingest   *ingest.Service
}

func NewServices(config *Config, db *sqlx.DB) (*Services, error) {
	records, err := store.New(db, config.Registry)
	if err != nil {
		return nil, fmt.Errorf("create record store: %w", err)
	}

	archives, err := blob.NewArchiveStore(&config.Archive)
	if err != nil {
		return nil, fmt.Errorf("create archive store: %w", err)
	}

	users, err := auth.NewUserStore(db)
	if err != nil {
		return nil, fmt.Errorf("create user store: %w", err)
	}

	sessions := session.New(config.Session.TTL)

	return &Services{
		Auth:     auth.NewAuthService(&config.Admin, users, sessions),
		Sessions: sessions,
		Records:  records,
		Archives: archives,
		Ingest:   ingest.NewService(records, archives),
	}, nil
}

// Run keeps the background workers going until ctx is done.
func (s *Services) Run(ctx context.Context) error {
	return s.Sessions.Run(ctx)
}
