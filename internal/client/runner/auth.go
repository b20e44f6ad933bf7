package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/simlog/internal/utils"
)

// Authenticate logs the API in with the stored key of the configured server. Without
// a stored key it registers the user first, which needs the administrator password.
func (r *Runner) Authenticate(ctx context.Context) error {
	host, err := r.cfg.ServerHost()
	if err != nil {
		return err
	}

	key, found, err := r.keys.Lookup(host)
	if err != nil {
		return err
	}

	if !found {
		r.status(cyan, "no key for %s, registering %s", host, r.cfg.Username)
		password, err := r.adminPassword()
		if err != nil {
			return err
		}
		if key, err = r.api.Register(ctx, password, r.cfg.Username); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		if err := r.keys.Save(host, key); err != nil {
			return fmt.Errorf("save key: %w", err)
		}
		slog.Info("registered", "server", host, "user", r.cfg.Username, "key", utils.MaskSecret(key))
		r.status(green, "registration with %s successful", host)
	}

	r.api.Login(r.cfg.Username, key)
	return nil
}

// Clean asks the server to delete archives no record references.
func (r *Runner) Clean(ctx context.Context) ([]string, error) {
	password, err := r.adminPassword()
	if err != nil {
		return nil, err
	}

	removed, err := r.api.Cleanup(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}

	for _, key := range removed {
		r.status(gray, "removed %s", key)
	}
	r.status(green, "cleanup done, %d archives removed", len(removed))
	return removed, nil
}

func (r *Runner) adminPassword() (string, error) {
	if r.prompt == nil {
		return "", fmt.Errorf("administrator password required but no prompt available")
	}
	password, err := r.prompt("administrator password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}
