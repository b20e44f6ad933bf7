package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/openmined/simlog/internal/utils"
)

const tempPrefix = ".tmp-"

// LocalBackend stores archives as files below a root directory.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data path: %w", err)
	}
	if err := utils.EnsureDir(abs); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}
	return &LocalBackend{root: abs}, nil
}

func (l *LocalBackend) Location() string {
	return l.root
}

func (l *LocalBackend) path(key string) (string, error) {
	if !ValidateKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

// Put writes to a temporary file first, so readers never see a partial archive.
func (l *LocalBackend) Put(ctx context.Context, key string, data []byte) error {
	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := utils.EnsureParent(target); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(target), tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (l *LocalBackend) Get(ctx context.Context, key string) ([]byte, error) {
	target, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (l *LocalBackend) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (l *LocalBackend) Delete(ctx context.Context, key string) error {
	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

var _ ArchiveStore = (*LocalBackend)(nil)
