package revision

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// HashLen is the number of hex characters kept from each SHA-256 digest. 64 bits is
// enough to tell revisions of one collection apart, but collisions are not impossible.
const HashLen = 16

// Index is the result of hashing a working directory.
type Index struct {
	// Files maps tracked relative paths to their truncated content hash.
	Files map[string]string
	// Combined is the truncated hash over every tracked file, in path order.
	Combined string
}

// ID returns the revision id of the index within a collection.
func (idx *Index) ID(collection string) string {
	return ID(collection, idx.Combined)
}

// Scan hashes every tracked file below dir. The walk is recursive and ordered by path,
// so the same bytes always produce the same index.
func Scan(dir string, m *Matcher) (*Index, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &PathError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &PathError{Path: dir, Err: errors.New("not a directory")}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &HashIOError{Path: p, Err: err}
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return &HashIOError{Path: p, Err: err}
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.Excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if !m.Tracked(rel) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// links to directories are skipped like directories
			info, err := os.Stat(p)
			if err != nil {
				return &HashIOError{Path: rel, Err: err}
			}
			if info.IsDir() {
				return nil
			}
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)

	combined := sha256.New()
	files := make(map[string]string, len(paths))
	for _, rel := range paths {
		digest, err := hashFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, &HashIOError{Path: rel, Err: err}
		}
		files[rel] = truncate(digest)
		combined.Write(digest)
	}

	return &Index{
		Files:    files,
		Combined: truncate(combined.Sum(nil)),
	}, nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return h.Sum(nil), nil
}

func truncate(digest []byte) string {
	return hex.EncodeToString(digest)[:HashLen]
}
