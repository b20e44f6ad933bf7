package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	"github.com/openmined/simlog/internal/server/blob"
	"github.com/openmined/simlog/internal/server/store"
)

// Service owns the upload workflow: archive storage, processing and the queries the
// client runs around it.
type Service struct {
	records  *store.Store
	archives blob.ArchiveStore
	proc     *Processor
}

func NewService(records *store.Store, archives blob.ArchiveStore) *Service {
	return &Service{
		records:  records,
		archives: archives,
		proc:     NewProcessor(records),
	}
}

// Check returns the upload name of a recorded revision id.
func (s *Service) Check(ctx context.Context, id string) (string, bool, error) {
	entry, err := s.records.Lookup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	} else if err != nil {
		return "", false, &StorageError{Op: "lookup", Err: err}
	}
	return entry.UploadName, true, nil
}

// Ingest verifies, stores and processes an upload. The stored archive is removed again
// when processing fails.
func (s *Service) Ingest(ctx context.Context, up *Upload) (*store.Record, error) {
	sum := sha256.Sum256(up.Data)
	if !strings.EqualFold(hex.EncodeToString(sum[:]), up.FileHash) {
		return nil, ErrHashMismatch
	}

	key, err := ArchiveKey(up.Collection, up.FileHash, up.Filename)
	if err != nil {
		return nil, err
	}
	up.Path = key

	if up.ID != "" {
		if _, found, err := s.Check(ctx, up.ID); err != nil {
			return nil, err
		} else if found {
			return nil, store.ErrDuplicate
		}
	}

	if err := s.archives.Put(ctx, key, up.Data); err != nil {
		return nil, &StorageError{Op: "put archive", Err: err}
	}
	slog.Info("archive stored", "key", key, "size", humanize.Bytes(uint64(len(up.Data))), "user", up.Username)

	rec, err := s.proc.Process(ctx, up)
	if err != nil {
		// identical bytes may already back the recorded revision
		if errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		if derr := s.archives.Delete(context.WithoutCancel(ctx), key); derr != nil {
			slog.Error("remove archive of failed upload", "key", key, "error", derr)
		}
		return nil, err
	}
	return rec, nil
}

// Latest returns the newest record of a collection with its archive bytes.
func (s *Service) Latest(ctx context.Context, collection string) (*store.Record, []byte, error) {
	rec, err := s.records.Latest(ctx, collection)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrEmptyCollection
	} else if err != nil {
		return nil, nil, &StorageError{Op: "latest", Err: err}
	}

	data, err := s.archives.Get(ctx, rec.UploadPath)
	if err != nil {
		return nil, nil, &StorageError{Op: "get archive", Err: err}
	}
	return rec, data, nil
}

// Cleanup deletes stored archives that no record references and returns their keys.
func (s *Service) Cleanup(ctx context.Context) ([]string, error) {
	paths, err := s.records.UploadPaths(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list records", Err: err}
	}
	referenced := mapset.NewThreadUnsafeSet(paths...)

	keys, err := s.archives.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list archives", Err: err}
	}

	var removed []string
	for _, key := range keys {
		if referenced.Contains(key) {
			continue
		}
		if err := s.archives.Delete(ctx, key); err != nil {
			return removed, &StorageError{Op: "delete archive", Err: err}
		}
		removed = append(removed, key)
	}

	slog.Info("cleanup done", "archives", len(keys), "removed", len(removed), "location", s.archives.Location())
	return removed, nil
}

// ArchiveKey names the stored archive of an upload, `<collection>/<filehash>_<filename>`.
func ArchiveKey(collection, filehash, filename string) (string, error) {
	for _, part := range []string{collection, filehash, filename} {
		if part == "" || strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, part)
		}
	}
	key := collection + "/" + filehash + "_" + filename
	if !blob.ValidateKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, key)
	}
	return key, nil
}
