// Package credentials keeps the per server keys of the client in a `host : key` file.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"github.com/openmined/simlog/internal/kvfile"
	"github.com/openmined/simlog/internal/utils"
)

const filePerm = 0o600

// Elevator runs one operation with whatever rights the credentials file needs.
type Elevator interface {
	Do(fn func() error) error
}

type passthrough struct{}

func (passthrough) Do(fn func() error) error { return fn() }

type Store struct {
	path    string
	elevate Elevator
	lock    *flock.Flock
}

// New returns the store at path. A nil elevator runs everything as the current user.
func New(path string, elevate Elevator) *Store {
	if elevate == nil {
		elevate = passthrough{}
	}
	return &Store{
		path:    path,
		elevate: elevate,
		lock:    flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Lookup returns the key stored for host.
func (s *Store) Lookup(host string) (key string, found bool, err error) {
	err = s.elevate.Do(func() error {
		pairs, err := s.read()
		if err != nil {
			return err
		}
		key, found = kvfile.Lookup(pairs, host)
		return nil
	})
	return key, found, err
}

// Save stores key for host, replacing an earlier key of the same host.
func (s *Store) Save(host, key string) error {
	if host == "" || key == "" {
		return fmt.Errorf("credentials: host and key are required")
	}

	return s.elevate.Do(func() error {
		if err := utils.EnsureParent(s.path); err != nil {
			return err
		}
		if err := s.lock.Lock(); err != nil {
			return fmt.Errorf("lock %s: %w", s.path, err)
		}
		defer s.lock.Unlock()

		pairs, err := s.read()
		if err != nil {
			return err
		}

		replaced := false
		for i := range pairs {
			if pairs[i].Key == host {
				pairs[i].Value = key
				replaced = true
			}
		}
		if !replaced {
			pairs = append(pairs, kvfile.Pair{Key: host, Value: key})
		}

		if err := os.WriteFile(s.path, kvfile.Format(pairs), filePerm); err != nil {
			return fmt.Errorf("write credentials: %w", err)
		}
		return os.Chmod(s.path, filePerm)
	})
}

func (s *Store) read() ([]kvfile.Pair, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	pairs, err := kvfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return pairs, nil
}
