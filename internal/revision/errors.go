package revision

import (
	"errors"
	"fmt"
)

var (
	ErrNoCollection    = errors.New("revision: no collection given and no record to infer it from")
	ErrMalformedRecord = errors.New("revision: malformed record")
	ErrNothingStaged   = errors.New("revision: no staged record")
	ErrLocked          = errors.New("revision: working directory is locked by another run")
)

// PathError reports a working directory that is missing or not a directory.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("working directory %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// HashIOError reports a tracked file that could not be read while hashing.
type HashIOError struct {
	Path string
	Err  error
}

func (e *HashIOError) Error() string {
	return fmt.Sprintf("hash %q: %v", e.Path, e.Err)
}

func (e *HashIOError) Unwrap() error { return e.Err }

// LineageError is returned when the server does not know the local record's revision
// although the record claims a non-root parent.
type LineageError struct {
	ID       string
	ParentID string
}

func (e *LineageError) Error() string {
	return fmt.Sprintf("revision %s (parent %s) is unknown to the server, lineage is broken; use --force to upload anyway", e.ID, e.ParentID)
}
