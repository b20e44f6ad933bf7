package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"github.com/openmined/simlog/internal/db"
)

const (
	DefaultRegistry  = "registry"
	defaultCacheSize = 256
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	upload_name TEXT NOT NULL,
	upload_path TEXT NOT NULL,
	upload_time TEXT NOT NULL,
	files TEXT NOT NULL,
	extracted TEXT NOT NULL,
	diffs TEXT NOT NULL,
	UNIQUE(collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_upload_name ON records(collection, upload_name);
CREATE INDEX IF NOT EXISTS idx_records_upload_time ON records(collection, upload_time);
`

const registrySchema = `
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	upload_name TEXT NOT NULL
);
`

const recordColumns = "collection, id, parent_id, upload_name, upload_path, upload_time, files, extracted, diffs"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store persists ingestion records in sqlite. The registry table maps every revision
// id to its collection and is the uniqueness gate for inserts.
type Store struct {
	db       *sqlx.DB
	registry string
	cache    *lru.Cache[string, *Record]
}

// New prepares the tables. registry names the id registry table.
func New(database *sqlx.DB, registry string) (*Store, error) {
	if registry == "" {
		registry = DefaultRegistry
	}
	if !identRe.MatchString(registry) {
		return nil, fmt.Errorf("invalid registry table name %q", registry)
	}

	if err := db.Migrate(database, recordsSchema, fmt.Sprintf(registrySchema, registry)); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	cache, err := lru.New[string, *Record](defaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{db: database, registry: registry, cache: cache}, nil
}

// Lookup finds a revision id in any collection.
func (s *Store) Lookup(ctx context.Context, id string) (*RegistryEntry, error) {
	var entry RegistryEntry
	err := s.db.GetContext(ctx, &entry,
		fmt.Sprintf("SELECT id, collection, upload_name FROM %s WHERE id = ?", s.registry), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	return &entry, nil
}

// Get returns the record of a revision id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	var row recordRow
	err := s.db.GetContext(ctx, &row,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = ? AND collection = (SELECT collection FROM %s WHERE id = ?)`, recordColumns, s.registry),
		id, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	rec, err := row.toRecord()
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}
	s.cache.Add(id, rec)
	return rec, nil
}

// Insert commits a record. A revision id that is already registered yields
// ErrDuplicate and leaves the store untouched.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, collection, upload_name) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING", s.registry),
		row.ID, row.Collection, row.UploadName)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", row.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to register %s: %w", row.ID, err)
	} else if n == 0 {
		return ErrDuplicate
	}

	res, err = tx.NamedExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`)
		VALUES (:collection, :id, :parent_id, :upload_name, :upload_path, :upload_time, :files, :extracted, :diffs)
		ON CONFLICT(collection, id) DO NOTHING`, row)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", row.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to insert %s: %w", row.ID, err)
	} else if n == 0 {
		return ErrDuplicate
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UploadNameExists reports whether name is taken within collection.
func (s *Store) UploadNameExists(ctx context.Context, collection, name string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM records WHERE collection = ? AND upload_name = ?", collection, name)
	if err != nil {
		return false, fmt.Errorf("failed to check upload name: %w", err)
	}
	return n > 0, nil
}

// Latest returns the most recent upload of a collection.
func (s *Store) Latest(ctx context.Context, collection string) (*Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+recordColumns+` FROM records WHERE collection = ? ORDER BY upload_time DESC, rowid DESC LIMIT 1`,
		collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get latest of %s: %w", collection, err)
	}
	return row.toRecord()
}

// UploadPaths lists the stored archive paths every record references.
func (s *Store) UploadPaths(ctx context.Context) ([]string, error) {
	var paths []string
	if err := s.db.SelectContext(ctx, &paths, "SELECT upload_path FROM records"); err != nil {
		return nil, fmt.Errorf("failed to list upload paths: %w", err)
	}
	return paths, nil
}

// Count returns the number of records in a collection, or overall when collection is
// empty.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	var err error
	if collection == "" {
		err = s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM records")
	} else {
		err = s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM records WHERE collection = ?", collection)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
