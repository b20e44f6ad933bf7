// Package runner drives one client invocation: hash the working directory, decide
// whether the revision is new, optionally run the simulation, and upload the snapshot.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/simlog/internal/archive"
	"github.com/openmined/simlog/internal/client/config"
	"github.com/openmined/simlog/internal/revision"
	"github.com/openmined/simlog/internal/simsdk"
)

const lockTimeout = 5 * time.Second

var ErrLocalChanges = errors.New("runner: working directory has changes that are not uploaded, update stopped")

// API is the part of the server client the runner needs.
type API interface {
	Login(username, key string)
	Check(ctx context.Context, id string) (string, bool, error)
	Upload(ctx context.Context, params *simsdk.UploadParams) (*simsdk.UploadResponse, error)
	Update(ctx context.Context, collection string) (*simsdk.UpdateResponse, error)
	Register(ctx context.Context, adminPassword, username string) (string, error)
	Cleanup(ctx context.Context, adminPassword string) ([]string, error)
}

// Keyring stores the per server key.
type Keyring interface {
	Lookup(host string) (string, bool, error)
	Save(host, key string) error
}

// PasswordPrompt asks the operator for the administrator password.
type PasswordPrompt func(prompt string) (string, error)

type Options struct {
	// Dir is the working directory. When empty it is taken from the `-in` argument of
	// Command, then the current directory.
	Dir        string
	Collection string
	// Name is the upload name; defaults to the directory name.
	Name   string
	Force  bool
	Update bool
	// Command runs through `sh -c` before archiving. Empty means archive only.
	Command []string
}

type Result struct {
	Dir        string
	ID         string
	ParentID   string
	UploadName string
	// Uploaded is false when the server already had the revision.
	Uploaded bool
}

type Runner struct {
	cfg    *config.Config
	api    API
	keys   Keyring
	prompt PasswordPrompt
	out    io.Writer
	exec   func(ctx context.Context, dir string, command []string) error
}

func New(cfg *config.Config, api API, keys Keyring, prompt PasswordPrompt, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		cfg:    cfg,
		api:    api,
		keys:   keys,
		prompt: prompt,
		out:    out,
		exec:   runCommand,
	}
}

// Run executes one tracked run in the working directory.
func (r *Runner) Run(ctx context.Context, opts *Options) (*Result, error) {
	dir, err := ResolveDir(opts.Dir, opts.Command)
	if err != nil {
		return nil, err
	}

	matcher := revision.NewMatcher(r.cfg.TrackedFiles)
	if err := matcher.LoadIgnoreFile(filepath.Join(dir, revision.IgnoreFileName)); err != nil {
		return nil, fmt.Errorf("load %s: %w", revision.IgnoreFileName, err)
	}

	store := revision.NewStore(dir)
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	err = store.Lock(lockCtx)
	cancel()
	if err != nil {
		return nil, err
	}
	defer store.Unlock()

	idx, err := revision.Scan(dir, matcher)
	if err != nil {
		return nil, err
	}

	rec, err := store.Load()
	if err != nil {
		return nil, err
	}

	collection := opts.Collection
	if collection == "" && rec != nil {
		collection = rec.Collection()
	}
	if collection == "" {
		return nil, revision.ErrNoCollection
	}

	id := idx.ID(collection)
	diverged := store.Diverged(idx.Files) || (rec != nil && rec.ID != id)
	slog.Debug("scanned working directory", "dir", dir, "files", len(idx.Files), "id", id, "diverged", diverged)

	if rec == nil {
		r.status(gray, "no revision record found, this is the first revision of %s", collection)
	} else if diverged {
		r.status(cyan, "tracked files changed since %s", rec.ID)
	} else {
		r.status(gray, "no changes in tracked files")
	}

	if opts.Update {
		return r.update(ctx, store, dir, collection, rec != nil && diverged)
	}

	name, exists, err := r.api.Check(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", id, err)
	}

	if exists {
		res := &Result{Dir: dir, ID: id, UploadName: name}
		if diverged {
			parent := revision.RootParent
			if rec != nil && rec.ID != id {
				parent = rec.ID
			} else if rec != nil {
				parent = rec.ParentID
			}
			store.Commit(idx, collection, parent)
			if err := store.Persist(); err != nil {
				return nil, err
			}
			res.ParentID = parent
		} else if rec != nil {
			res.ParentID = rec.ParentID
		}
		r.status(green, "revision %s is already recorded as %s, nothing to upload", id, name)
		return res, nil
	}

	parent, err := r.parentFor(ctx, rec, id, opts.Force)
	if err != nil {
		return nil, err
	}
	staged := store.Commit(idx, collection, parent)

	res, err := r.ship(ctx, store, staged, matcher, dir, opts)
	if err != nil {
		store.Discard()
		return nil, err
	}
	return res, nil
}

// parentFor picks the parent of a revision the server does not know yet.
func (r *Runner) parentFor(ctx context.Context, rec *revision.Record, id string, force bool) (string, error) {
	if rec == nil {
		return revision.RootParent, nil
	}

	if rec.ID != id {
		_, known, err := r.api.Check(ctx, rec.ID)
		if err != nil {
			return "", fmt.Errorf("check %s: %w", rec.ID, err)
		}
		if known {
			return rec.ID, nil
		}
	}

	switch {
	case rec.IsRoot():
		return revision.RootParent, nil
	case !force:
		return "", &revision.LineageError{ID: rec.ID, ParentID: rec.ParentID}
	}

	r.status(yellow, "forcing upload, the chain of origin of %s may break", rec.ID)
	if rec.ID != id {
		return rec.ID, nil
	}
	return rec.ParentID, nil
}

// ship runs the command, archives the directory with the staged record and uploads it.
// The record reaches the disk only after the server accepted the upload.
func (r *Runner) ship(ctx context.Context, store *revision.Store, staged *revision.Record, matcher *revision.Matcher, dir string, opts *Options) (*Result, error) {
	if len(opts.Command) > 0 {
		logHostInfo(ctx)
		r.status(cyan, "running %s", strings.Join(opts.Command, " "))
		if err := r.exec(ctx, dir, opts.Command); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.status(yellow, "command failed: %v, uploading the directory anyway", err)
		}
	}

	arc, err := archive.Build(dir, archive.Options{
		Filename:     uploadFilename(dir, opts.Name),
		RecordName:   revision.FileName,
		StagedRecord: staged.Marshal(),
		Exclude:      matcher.Excluded,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("archive built", "file", arc.Filename, "size", len(arc.Data), "hash", arc.Hash)

	r.status(gray, "uploading %s", arc.Filename)
	resp, err := r.api.Upload(ctx, &simsdk.UploadParams{
		Collection: revision.CollectionOf(staged.ID),
		ID:         staged.ID,
		Filename:   arc.Filename,
		FileHash:   arc.Hash,
		Data:       arc.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload failed, revision record left unchanged: %w", err)
	}

	if err := store.Persist(); err != nil {
		return nil, err
	}
	r.status(green, "uploaded %s as %s (parent %s)", staged.ID, resp.UploadName, staged.ParentID)

	return &Result{
		Dir:        dir,
		ID:         staged.ID,
		ParentID:   staged.ParentID,
		UploadName: resp.UploadName,
		Uploaded:   true,
	}, nil
}

func uploadFilename(dir, name string) string {
	if name == "" {
		name = filepath.Base(dir)
	}
	if strings.HasSuffix(name, ".tar.gz") {
		return name
	}
	return name + ".tar.gz"
}
