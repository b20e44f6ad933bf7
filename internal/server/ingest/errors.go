package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrHashMismatch    = errors.New("ingest: archive does not match filehash")
	ErrInvalidName     = errors.New("ingest: invalid collection or filename")
	ErrEmptyCollection = errors.New("ingest: collection has no uploads")
)

// ExtractionError means the archive, its revision record or its schema could not be
// processed. Nothing was inserted.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError means the archive store or the record store failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func extractionErr(format string, args ...any) *ExtractionError {
	return &ExtractionError{Err: fmt.Errorf(format, args...)}
}
