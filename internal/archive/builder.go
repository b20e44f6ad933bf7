// Package archive packs a working directory into a gzipped tarball and reads such
// tarballs back.
package archive

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

const stagedRecordMode = 0o666

// Archive is a finished snapshot.
type Archive struct {
	Filename string
	// Hash is the SHA-256 hex digest of Data.
	Hash string
	Data []byte
}

// Options tune Build. The zero value archives everything.
type Options struct {
	// Filename overrides the default `<dir>.tar.gz`.
	Filename string
	// RecordName is the path of the revision record inside the directory.
	RecordName string
	// StagedRecord, when set, is written in place of the on-disk record.
	StagedRecord []byte
	// Exclude reports slash separated relative paths to leave out. Directories are
	// passed with a trailing slash.
	Exclude func(rel string) bool
	// Now stamps the staged record; defaults to time.Now.
	Now func() time.Time
}

// Build walks dir in path order and returns its gzipped tarball.
func Build(dir string, opts Options) (*Archive, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Filename == "" {
		opts.Filename = filepath.Base(absDir) + ".tar.gz"
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(gz)

	if opts.StagedRecord != nil && opts.RecordName != "" {
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     opts.RecordName,
			Mode:     stagedRecordMode,
			Size:     int64(len(opts.StagedRecord)),
			ModTime:  opts.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("write staged record header: %w", err)
		}
		if _, err := tw.Write(opts.StagedRecord); err != nil {
			return nil, fmt.Errorf("write staged record: %w", err)
		}
	}

	err = filepath.WalkDir(absDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absDir {
			return nil
		}

		rel, err := filepath.Rel(absDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if opts.Exclude != nil && opts.Exclude(rel+"/") {
				return filepath.SkipDir
			}
		} else {
			if opts.Exclude != nil && opts.Exclude(rel) {
				return nil
			}
			if rel == opts.RecordName && opts.StagedRecord != nil {
				return nil
			}
		}

		return addEntry(tw, p, rel, d)
	})
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return &Archive{
		Filename: opts.Filename,
		Hash:     hex.EncodeToString(sum[:]),
		Data:     buf.Bytes(),
	}, nil
}

func addEntry(tw *tar.Writer, p, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = rel
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	return nil
}
