package ingest

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/openmined/simlog/internal/archive"
	"github.com/openmined/simlog/internal/diff"
	"github.com/openmined/simlog/internal/extract"
	"github.com/openmined/simlog/internal/revision"
	"github.com/openmined/simlog/internal/server/store"
	"github.com/openmined/simlog/internal/value"
)

// Records is the part of the record store the processor needs.
type Records interface {
	Get(ctx context.Context, id string) (*store.Record, error)
	Insert(ctx context.Context, rec *store.Record) error
	UploadNameExists(ctx context.Context, collection, name string) (bool, error)
}

// Upload is one received archive and its connection metadata.
type Upload struct {
	Username   string
	Collection string
	// ID is the revision id the client announced, empty when not sent.
	ID       string
	Filename string
	FileHash string
	// Path is the archive store key the bytes were written to.
	Path string
	Data []byte
}

// Processor turns an uploaded archive into a stored record.
type Processor struct {
	records Records
	now     func() time.Time
}

func NewProcessor(records Records) *Processor {
	return &Processor{records: records, now: time.Now}
}

// contents holds what the two passes over an archive kept.
type contents struct {
	record     *revision.Record
	schema     *extract.Schema
	schemaName string
	files      map[string]string
}

// Process reads, extracts, diffs and inserts. Any failure happens before the insert,
// and the insert itself refuses an id that is already recorded.
func (p *Processor) Process(ctx context.Context, up *Upload) (*store.Record, error) {
	c, err := readContents(up.Data)
	if err != nil {
		return nil, err
	}

	rec := c.record
	if rec.Collection() != up.Collection {
		return nil, extractionErr("revision %s does not belong to collection %q", rec.ID, up.Collection)
	}
	if up.ID != "" && up.ID != rec.ID {
		return nil, extractionErr("announced id %s does not match archived id %s", up.ID, rec.ID)
	}

	doc, err := extractValues(c)
	if err != nil {
		return nil, err
	}

	diffs, err := p.diffParent(ctx, rec, c.files)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	name, err := p.uploadName(ctx, up.Collection, up.Filename, now)
	if err != nil {
		return nil, err
	}

	out := &store.Record{
		Collection: up.Collection,
		ID:         rec.ID,
		ParentID:   rec.ParentID,
		UploadName: name,
		UploadPath: up.Path,
		UploadTime: now,
		Files:      c.files,
		Extracted:  doc,
		Diffs:      diffs,
	}
	if err := p.records.Insert(ctx, out); err != nil {
		return nil, &StorageError{Op: "insert", Err: err}
	}

	slog.Info("upload recorded",
		"collection", out.Collection,
		"id", out.ID,
		"parent", out.ParentID,
		"name", out.UploadName,
		"files", len(out.Files),
		"diffs", len(out.Diffs),
	)
	return out, nil
}

// readContents runs both passes. Pass one finds the revision record and the schema,
// pass two keeps the files they name plus trajectories when the schema asks for them.
func readContents(data []byte) (*contents, error) {
	c := &contents{files: make(map[string]string)}

	err := archive.Walk(data, func(name string, hdr *tar.Header, r io.Reader) error {
		switch {
		case name == revision.FileName:
			text, err := readText(r)
			if err != nil {
				return err
			}
			rec, err := revision.ParseRecord([]byte(text))
			if err != nil {
				return &ExtractionError{Err: err}
			}
			c.record = rec
			c.files[name] = text

		case extract.IsSchemaFile(name):
			if c.schema != nil {
				slog.Warn("extra schema file ignored", "file", name, "using", c.schemaName)
				return nil
			}
			text, err := readText(r)
			if err != nil {
				return err
			}
			schema, err := extract.ParseSchema(name, []byte(text))
			if err != nil {
				return &ExtractionError{Err: err}
			}
			c.schema, c.schemaName = schema, name
			c.files[name] = text
		}
		return nil
	})
	if err != nil {
		return nil, asExtractionError(err)
	}

	if c.record == nil {
		return nil, extractionErr("archive has no %s file", revision.FileName)
	}
	if c.schema == nil {
		slog.Warn("archive has no schema, nothing will be extracted", "id", c.record.ID)
		c.schema = &extract.Schema{Files: map[string]extract.FileSchema{}}
	}

	needed := mapset.NewThreadUnsafeSet[string]()
	needed.Append(c.schema.FileNames()...)
	for name := range c.record.Files {
		needed.Add(name)
	}
	trajectories := c.schema.WantsTrajectories()

	err = archive.Walk(data, func(name string, hdr *tar.Header, r io.Reader) error {
		if _, seen := c.files[name]; seen {
			return nil
		}
		if !needed.Contains(name) && !(trajectories && extract.IsTrajectory(name)) {
			return nil
		}
		text, err := readText(r)
		if err != nil {
			return err
		}
		c.files[name] = text
		return nil
	})
	if err != nil {
		return nil, asExtractionError(err)
	}
	return c, nil
}

func extractValues(c *contents) (value.Value, error) {
	ex := extract.New()

	for _, name := range c.schema.FileNames() {
		if extract.IsTrajectory(name) {
			continue
		}
		fs := c.schema.Files[name]
		text, ok := c.files[name]
		if !ok {
			slog.Warn("schema file missing from archive", "file", name, "id", c.record.ID)
			continue
		}
		if err := ex.File(name, text, fs); err != nil {
			return value.Value{}, &ExtractionError{Err: err}
		}
		if !fs.Uploaded() {
			delete(c.files, name)
		}
	}

	if c.schema.ParseTrajectories() {
		for _, name := range sortedNames(c.files) {
			if name == c.schemaName || name == revision.FileName || !extract.IsTrajectory(name) {
				continue
			}
			if err := ex.Trajectory(name, c.files[name]); err != nil {
				return value.Value{}, &ExtractionError{Err: err}
			}
			delete(c.files, name)
		}
	}

	return ex.Doc(), nil
}

// diffParent diffs every changed file against the parent's stored text. A parent that
// is not in the store skips the diff.
func (p *Processor) diffParent(ctx context.Context, rec *revision.Record, files map[string]string) (map[string]map[string]string, error) {
	diffs := make(map[string]map[string]string)
	if rec.IsRoot() {
		return diffs, nil
	}

	parent, err := p.records.Get(ctx, rec.ParentID)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("parent revision not stored, skipping diffs", "id", rec.ID, "parent", rec.ParentID)
		return diffs, nil
	} else if err != nil {
		return nil, &StorageError{Op: "get parent", Err: err}
	}

	parentHashes := map[string]string{}
	if text, ok := parent.Files[revision.FileName]; ok {
		if prev, err := revision.ParseRecord([]byte(text)); err == nil {
			parentHashes = prev.Files
		} else {
			slog.Warn("parent revision record unreadable, diffing every file", "parent", parent.ID, "error", err)
		}
	}

	for _, name := range rec.Changed(parentHashes) {
		newText, ok := files[name]
		if !ok {
			continue
		}
		hunks := diff.Hunks(parent.Files[name], newText)
		if len(hunks) == 0 {
			continue
		}
		diffs[name] = diff.Indexed(hunks)
	}
	return diffs, nil
}

func (p *Processor) uploadName(ctx context.Context, collection, filename string, now time.Time) (string, error) {
	taken, err := p.records.UploadNameExists(ctx, collection, filename)
	if err != nil {
		return "", &StorageError{Op: "check upload name", Err: err}
	}
	if !taken {
		return filename, nil
	}
	return fmt.Sprintf("%s_%d", filename, now.Unix()), nil
}

func readText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func asExtractionError(err error) error {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExtractionError{Err: err}
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
