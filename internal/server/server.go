package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/openmined/simlog/internal/db"
	"github.com/openmined/simlog/internal/version"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config *Config
	server *http.Server
	db     *sqlx.DB
	svc    *Services
}

func New(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.NewSqliteDB(db.WithPath(config.Database))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	svc, err := NewServices(config, database)
	if err != nil {
		database.Close()
		return nil, err
	}

	handler, err := SetupRoutes(config, svc)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &Server{
		config: config,
		db:     database,
		svc:    svc,
		server: &http.Server{
			Addr:              config.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the routes, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Services() *Services {
	return s.svc
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("simlog server start", "version", version.Short(), "data", s.config.DataPath, "db", s.config.Database)
	defer slog.Info("simlog server stop")

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.svc.Run(egCtx)
	})

	eg.Go(func() error {
		if err := s.runHttpServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("simlog shutdown signal")
		return s.Stop(context.WithoutCancel(ctx))
	})

	return eg.Wait()
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) runHttpServer() error {
	if s.config.HTTP.TLS() {
		slog.Info("server start tls", "addr", s.config.HTTP.Addr, "cert", s.config.HTTP.CertFile, "key", s.config.HTTP.KeyFile)
		return s.server.ListenAndServeTLS(s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("server start http", "addr", s.config.HTTP.Addr)
	return s.server.ListenAndServe()
}
