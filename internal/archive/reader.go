package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/openmined/simlog/internal/utils"
)

var (
	ErrUnsafePath = errors.New("archive: member escapes destination")
	ErrSkip       = errors.New("archive: skip remaining members")
)

// WalkFunc receives every regular member. name is cleaned and slash separated.
type WalkFunc func(name string, hdr *tar.Header, r io.Reader) error

// Walk decompresses data and calls fn for each regular file member in archive order.
// Returning ErrSkip from fn stops the walk without error.
func Walk(data []byte, fn WalkFunc) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != tar.TypeRegA {
			continue
		}

		if err := fn(MemberName(hdr.Name), hdr, tr); err != nil {
			if errors.Is(err, ErrSkip) {
				return nil
			}
			return err
		}
	}
}

// MemberName normalizes a tar member name.
func MemberName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Extract unpacks data below dest. Member names are cleaned so every member lands
// inside dest.
func Extract(data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		name := MemberName(hdr.Name)
		if name == "" || name == "." {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := writeMember(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
		}
	}
}

func writeMember(target string, r io.Reader, perm os.FileMode) error {
	if err := utils.EnsureParent(target); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
