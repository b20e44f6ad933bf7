package revision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func simDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "log.lammps", "Step Temp\n0 1.0\n")
	writeFile(t, dir, "in.melt", "units lj\n")
	writeFile(t, dir, "out/dump.melt", "ITEM: TIMESTEP\n0\n")
	writeFile(t, dir, "notes.md", "untracked\n")
	return dir
}

func TestScanDeterministic(t *testing.T) {
	dir := simDir(t)
	m := NewMatcher([]string{"log", "in.", "dump"})

	first, err := Scan(dir, m)
	require.NoError(t, err)
	second, err := Scan(dir, m)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Combined, HashLen)
	assert.Equal(t, []string{"in.melt", "log.lammps", "out/dump.melt"}, sortedKeys(first.Files))
	assert.NotContains(t, first.Files, "notes.md")
}

func TestScanSensitiveToOneByte(t *testing.T) {
	dir := simDir(t)
	m := NewMatcher([]string{"log", "in.", "dump"})

	before, err := Scan(dir, m)
	require.NoError(t, err)

	writeFile(t, dir, "in.melt", "units LJ\n")
	after, err := Scan(dir, m)
	require.NoError(t, err)

	assert.NotEqual(t, before.Combined, after.Combined)
	assert.NotEqual(t, before.Files["in.melt"], after.Files["in.melt"])
	assert.Equal(t, before.Files["log.lammps"], after.Files["log.lammps"])
}

func TestScanUntrackedChangeKeepsID(t *testing.T) {
	dir := simDir(t)
	m := NewMatcher([]string{"log"})

	before, err := Scan(dir, m)
	require.NoError(t, err)
	writeFile(t, dir, "notes.md", "changed\n")
	after, err := Scan(dir, m)
	require.NoError(t, err)

	assert.Equal(t, before.Combined, after.Combined)
}

func TestScanMissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), NewMatcher([]string{"log"}))

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
}

func TestScanSkipsLinkedDirectory(t *testing.T) {
	dir := simDir(t)
	target := t.TempDir()
	writeFile(t, target, "log.old", "Step Temp\n")
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "logs")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "log.lammps"), filepath.Join(dir, "log.link")))

	idx, err := Scan(dir, NewMatcher([]string{"log"}))
	require.NoError(t, err)

	assert.Contains(t, idx.Files, "log.lammps")
	assert.Contains(t, idx.Files, "log.link")
	assert.NotContains(t, idx.Files, "logs")
	assert.Equal(t, idx.Files["log.lammps"], idx.Files["log.link"])
}

func TestScanUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read anything")
	}
	dir := simDir(t)
	require.NoError(t, os.Chmod(filepath.Join(dir, "log.lammps"), 0o000))

	_, err := Scan(dir, NewMatcher([]string{"log"}))

	var hashErr *HashIOError
	require.ErrorAs(t, err, &hashErr)
	assert.Equal(t, "log.lammps", hashErr.Path)
}

func TestMatcherGlobAndIgnore(t *testing.T) {
	m := NewMatcher([]string{"**/*.lammps", "dump", " "}).WithIgnoreLines("scratch/")

	assert.True(t, m.Tracked("log.lammps"))
	assert.True(t, m.Tracked("runs/a/log.lammps"))
	assert.True(t, m.Tracked("out/dump.melt"))
	assert.False(t, m.Tracked("scratch/dump.tmp"))
	assert.False(t, m.Tracked("REV"))
	assert.False(t, m.Tracked(LockFileName))
	assert.True(t, m.Excluded(LockFileName))
	assert.False(t, m.Excluded("REV"))
	assert.Equal(t, []string{"**/*.lammps", "dump"}, m.Patterns())
}

func TestParseRecordRequiresHeader(t *testing.T) {
	_, err := ParseRecord([]byte("parent_id : *\na : 1\n"))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = ParseRecord([]byte("id : c:1\na : 1\n"))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestRecordMarshalOrder(t *testing.T) {
	rec := &Record{
		ID:       "sim:00ff",
		ParentID: RootParent,
		Files:    map[string]string{"b": "2", "a": "1"},
	}

	assert.Equal(t, "id : sim:00ff\nparent_id : *\na : 1\nb : 2\n", string(rec.Marshal()))
	assert.Equal(t, "sim", rec.Collection())
	assert.True(t, rec.IsRoot())
}

func TestRecordChanged(t *testing.T) {
	rec := &Record{Files: map[string]string{"a": "1", "b": "2", "c": "3"}}

	assert.Equal(t, []string{"b", "c"}, rec.Changed(map[string]string{"a": "1", "b": "x"}))
	assert.Empty(t, rec.Changed(rec.Files))
}

func TestStoreCommitLoadRoundTrip(t *testing.T) {
	dir := simDir(t)
	m := NewMatcher([]string{"log", "in.", "dump"})
	idx, err := Scan(dir, m)
	require.NoError(t, err)

	s := NewStore(dir)
	rec, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.True(t, s.Diverged(idx.Files))

	staged := s.Commit(idx, "melt", RootParent)
	assert.Equal(t, "melt:"+idx.Combined, staged.ID)
	assert.NoFileExists(t, s.Path())

	require.NoError(t, s.Persist())
	assert.Nil(t, s.Staged())

	fresh := NewStore(dir)
	loaded, err := fresh.Load()
	require.NoError(t, err)
	assert.Equal(t, staged, loaded)
	assert.False(t, fresh.Diverged(idx.Files))

	// the record itself never changes the hash
	again, err := Scan(dir, m)
	require.NoError(t, err)
	assert.Equal(t, idx.Combined, again.Combined)
}

func TestStoreDiscardLeavesDisk(t *testing.T) {
	dir := simDir(t)
	idx, err := Scan(dir, NewMatcher([]string{"log"}))
	require.NoError(t, err)

	s := NewStore(dir)
	s.Commit(idx, "melt", RootParent)
	s.Discard()

	assert.ErrorIs(t, s.Persist(), ErrNothingStaged)
	assert.NoFileExists(t, s.Path())
}

func TestStoreDivergedOnChange(t *testing.T) {
	dir := simDir(t)
	m := NewMatcher([]string{"log", "in."})
	idx, err := Scan(dir, m)
	require.NoError(t, err)

	s := NewStore(dir)
	s.Commit(idx, "melt", RootParent)
	require.NoError(t, s.Persist())

	writeFile(t, dir, "log.lammps", "Step Temp\n0 2.0\n")
	changed, err := Scan(dir, m)
	require.NoError(t, err)

	assert.True(t, s.Diverged(changed.Files))
}

func TestStoreLockExclusive(t *testing.T) {
	dir := t.TempDir()
	first := NewStore(dir)
	require.NoError(t, first.Lock(context.Background()))
	defer first.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := NewStore(dir).Lock(ctx)
	assert.True(t, errors.Is(err, ErrLocked))
}
