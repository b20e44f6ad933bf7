package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmined/simlog/internal/db"
	"github.com/openmined/simlog/internal/value"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.NewSqliteDB(db.WithPath(filepath.Join(t.TempDir(), "simlog.db")))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s, err := New(database, "registry")
	require.NoError(t, err)
	return s
}

func sampleRecord(collection, id string, at time.Time) *Record {
	extracted := value.NewMap()
	extracted.Set("temp", value.Float(300))
	return &Record{
		Collection: collection,
		ID:         id,
		ParentID:   "*",
		UploadName: "melt.tar.gz",
		UploadPath: collection + "/abc_melt.tar.gz",
		UploadTime: at,
		Files:      map[string]string{"REV": "id : " + id + "\nparent_id : *\n"},
		Extracted:  extracted,
		Diffs:      map[string]map[string]string{"log.lammps": {"0": "@@ -0,0 +1 @@\n+x\n"}},
	}
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := sampleRecord("melt", "melt:0011", now)
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, "melt:0011")
	require.NoError(t, err)
	assert.Equal(t, rec.Files, got.Files)
	assert.Equal(t, rec.Diffs, got.Diffs)
	assert.True(t, now.Equal(got.UploadTime))

	temp, ok := got.Extracted.Get("temp")
	require.True(t, ok)
	f, ok := temp.AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 300.0, f)

	entry, err := s.Lookup(ctx, "melt:0011")
	require.NoError(t, err)
	assert.Equal(t, "melt", entry.Collection)
	assert.Equal(t, "melt.tar.gz", entry.UploadName)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "melt:none")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Lookup(context.Background(), "melt:none")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Latest(context.Background(), "melt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord("melt", "melt:0011", time.Now())))

	err := s.Insert(ctx, sampleRecord("melt", "melt:0011", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicate)

	// the registry is global, another collection cannot claim the id either
	err = s.Insert(ctx, sampleRecord("other", "melt:0011", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicate)

	n, err := s.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentInsertSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Insert(ctx, sampleRecord("melt", "melt:race", time.Now()))
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrDuplicate):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestLatestAndUploadNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := sampleRecord("melt", fmt.Sprintf("melt:%04d", i), base.Add(time.Duration(i)*time.Second))
		rec.UploadName = fmt.Sprintf("melt_%d.tar.gz", i)
		rec.UploadPath = fmt.Sprintf("melt/%d_melt.tar.gz", i)
		require.NoError(t, s.Insert(ctx, rec))
	}

	latest, err := s.Latest(ctx, "melt")
	require.NoError(t, err)
	assert.Equal(t, "melt:0002", latest.ID)

	exists, err := s.UploadNameExists(ctx, "melt", "melt_1.tar.gz")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UploadNameExists(ctx, "other", "melt_1.tar.gz")
	require.NoError(t, err)
	assert.False(t, exists)

	paths, err := s.UploadPaths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"melt/0_melt.tar.gz", "melt/1_melt.tar.gz", "melt/2_melt.tar.gz"}, paths)
}

func TestLatestWithinOneSecond(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, sampleRecord("melt", "melt:later", base.Add(550*time.Millisecond))))
	require.NoError(t, s.Insert(ctx, sampleRecord("melt", "melt:earlier", base.Add(500*time.Millisecond))))
	require.NoError(t, s.Insert(ctx, sampleRecord("melt", "melt:first", base)))

	latest, err := s.Latest(ctx, "melt")
	require.NoError(t, err)
	assert.Equal(t, "melt:later", latest.ID)
	assert.True(t, base.Add(550*time.Millisecond).Equal(latest.UploadTime))
}

func TestNewRejectsBadRegistryName(t *testing.T) {
	database, err := db.NewSqliteDB()
	require.NoError(t, err)
	defer database.Close()

	_, err = New(database, "registry; DROP TABLE records")
	assert.Error(t, err)
}
