package revision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// Store owns the revision record of one working directory. New records are staged
// first and only reach the disk through Persist, after the upload was confirmed.
type Store struct {
	dir    string
	path   string
	lock   *flock.Flock
	record *Record
	staged *Record
}

func NewStore(dir string) *Store {
	return &Store{
		dir:  dir,
		path: filepath.Join(dir, FileName),
		lock: flock.New(filepath.Join(dir, LockFileName)),
	}
}

func (s *Store) Dir() string  { return s.dir }
func (s *Store) Path() string { return s.path }

// Lock takes the advisory lock on the working directory, waiting until ctx is done.
func (s *Store) Lock(ctx context.Context) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrLocked
		}
		return fmt.Errorf("lock %s: %w", s.dir, err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Load reads the on-disk record. A missing record is not an error, it returns nil.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.record = nil
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	rec, err := ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.record = rec
	return rec, nil
}

// Record returns the last loaded or persisted record.
func (s *Store) Record() *Record {
	return s.record
}

// Diverged reports whether any current hash differs from or is missing in the loaded
// record. Without a record everything has diverged.
func (s *Store) Diverged(current map[string]string) bool {
	if s.record == nil {
		return true
	}
	for path, hash := range current {
		if old, ok := s.record.Files[path]; !ok || old != hash {
			return true
		}
	}
	return false
}

// Commit stages a record for idx within collection. The disk is not touched.
func (s *Store) Commit(idx *Index, collection, parent string) *Record {
	files := make(map[string]string, len(idx.Files))
	for k, v := range idx.Files {
		files[k] = v
	}
	s.staged = &Record{
		ID:       idx.ID(collection),
		ParentID: parent,
		Files:    files,
	}
	return s.staged
}

func (s *Store) Staged() *Record {
	return s.staged
}

// Persist writes the staged record, replacing the on-disk one atomically.
func (s *Store) Persist() error {
	if s.staged == nil {
		return ErrNothingStaged
	}

	tmp, err := os.CreateTemp(s.dir, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(s.staged.Marshal()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace record: %w", err)
	}

	slog.Debug("revision persisted", "id", s.staged.ID, "parent", s.staged.ParentID, "files", len(s.staged.Files))
	s.record = s.staged
	s.staged = nil
	return nil
}

// Discard drops the staged record.
func (s *Store) Discard() {
	s.staged = nil
}
