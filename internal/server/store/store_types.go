package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/openmined/simlog/internal/value"
)

// uploadTimeFormat is fixed width so that upload_time sorts chronologically as text.
const uploadTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: revision already recorded")
)

// Record is one ingested upload. Records are immutable once inserted.
type Record struct {
	Collection string
	ID         string
	ParentID   string
	UploadName string
	UploadPath string
	UploadTime time.Time
	// Files holds the retained archive members as text, by member name.
	Files map[string]string
	// Extracted is the structured document built from the schema.
	Extracted value.Value
	// Diffs maps a changed file to its ordered unified hunks, "0", "1", ...
	Diffs map[string]map[string]string
}

type recordRow struct {
	Collection string `db:"collection"`
	ID         string `db:"id"`
	ParentID   string `db:"parent_id"`
	UploadName string `db:"upload_name"`
	UploadPath string `db:"upload_path"`
	UploadTime string `db:"upload_time"`
	Files      string `db:"files"`
	Extracted  string `db:"extracted"`
	Diffs      string `db:"diffs"`
}

func toRow(r *Record) (*recordRow, error) {
	files, err := jsonMarshal(r.Files)
	if err != nil {
		return nil, fmt.Errorf("encode files: %w", err)
	}
	extracted, err := jsonMarshal(r.Extracted)
	if err != nil {
		return nil, fmt.Errorf("encode extracted: %w", err)
	}
	diffs, err := jsonMarshal(r.Diffs)
	if err != nil {
		return nil, fmt.Errorf("encode diffs: %w", err)
	}

	return &recordRow{
		Collection: r.Collection,
		ID:         r.ID,
		ParentID:   r.ParentID,
		UploadName: r.UploadName,
		UploadPath: r.UploadPath,
		UploadTime: r.UploadTime.UTC().Format(uploadTimeFormat),
		Files:      string(files),
		Extracted:  string(extracted),
		Diffs:      string(diffs),
	}, nil
}

func (row *recordRow) toRecord() (*Record, error) {
	uploadTime, err := time.Parse(time.RFC3339Nano, row.UploadTime)
	if err != nil {
		return nil, fmt.Errorf("decode upload_time: %w", err)
	}

	rec := &Record{
		Collection: row.Collection,
		ID:         row.ID,
		ParentID:   row.ParentID,
		UploadName: row.UploadName,
		UploadPath: row.UploadPath,
		UploadTime: uploadTime,
	}
	if err := jsonUnmarshal([]byte(row.Files), &rec.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	if err := jsonUnmarshal([]byte(row.Extracted), &rec.Extracted); err != nil {
		return nil, fmt.Errorf("decode extracted: %w", err)
	}
	if err := jsonUnmarshal([]byte(row.Diffs), &rec.Diffs); err != nil {
		return nil, fmt.Errorf("decode diffs: %w", err)
	}
	return rec, nil
}

// RegistryEntry locates a revision id across collections.
type RegistryEntry struct {
	ID         string `db:"id"`
	Collection string `db:"collection"`
	UploadName string `db:"upload_name"`
}
