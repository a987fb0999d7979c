package vault

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

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestClean(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.Local)
	root := t.TempDir()
	store, err := Open(root, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	dir := filepath.Join(root, "g")
	require.NoError(t, os.MkdirAll(dir, 0o750))

	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-1 * 24 * time.Hour)

	oldBackup := filepath.Join(dir, DraftBackupName(old))
	recentBackup := filepath.Join(dir, DraftBackupName(recent))
	touch(t, oldBackup, old)
	touch(t, recentBackup, recent)

	// Canonical files are ancient but must survive.
	canonical := []string{DraftFile, ManifestFile, OriginImageName(1)}
	for _, name := range canonical {
		touch(t, filepath.Join(dir, name), now.Add(-400*24*time.Hour))
	}
	stray := filepath.Join(dir, "notes_bak.md")
	touch(t, stray, old)

	res, err := store.Clean(context.Background(), Days(7))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cleaned)
	assert.Equal(t, 0, res.Failed)

	assert.NoFileExists(t, oldBackup)
	assert.FileExists(t, recentBackup)
	assert.FileExists(t, stray)
	for _, name := range canonical {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestClean_AcrossGroupsAndKinds(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.Local)
	root := t.TempDir()
	store, err := Open(root, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	old := now.Add(-30 * 24 * time.Hour)
	var expired []string
	for _, group := range []string{"a", "b"} {
		dir := filepath.Join(root, group)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		for _, name := range []string{DraftBackupName(old), ManifestBackupName(old), VersionImageName(2, old)} {
			path := filepath.Join(dir, name)
			touch(t, path, old)
			expired = append(expired, path)
		}
	}
	// A file in the root itself is not inside any group.
	touch(t, filepath.Join(root, DraftBackupName(old)), old)

	res, err := store.Clean(context.Background(), Days(7))
	require.NoError(t, err)
	assert.Equal(t, len(expired), res.Cleaned)
	for _, path := range expired {
		assert.NoFileExists(t, path)
	}
	assert.FileExists(t, filepath.Join(root, DraftBackupName(old)))
}

func TestClean_BoundaryIsExclusive(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.Local)
	root := t.TempDir()
	store, err := Open(root, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	dir := filepath.Join(root, "g")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	edge := now.Add(-Days(7))
	touch(t, filepath.Join(dir, DraftBackupName(edge)), edge)

	res, err := store.Clean(context.Background(), Days(7))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cleaned)
}

func TestClean_MissingRoot(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	res, err := store.Clean(context.Background(), Days(7))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cleaned)
}

func TestClean_NegativeWindow(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = store.Clean(context.Background(), -time.Hour)
	assert.Error(t, err)
}

func TestClean_AfterSaves(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	current := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)
	store, err := Open(root, WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	_, err = store.Save(ctx, "g", Draft{Text: "a", Images: [][]byte{[]byte("1")}})
	require.NoError(t, err)
	current = current.Add(time.Minute)
	res, err := store.Save(ctx, "g", Draft{Text: "b", Images: [][]byte{[]byte("2")}})
	require.NoError(t, err)

	history, err := store.History("g")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, rev := range history {
		path := filepath.Join(res.Path, rev.Name)
		stale := current.Add(-Days(8))
		require.NoError(t, os.Chtimes(path, stale, stale))
	}

	cleaned, err := store.Clean(ctx, Days(7))
	require.NoError(t, err)
	assert.Equal(t, 3, cleaned.Cleaned)

	// Text survives; expired versions do not.
	got, err := store.Load(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Text)
	assert.Empty(t, got.Images, "versions expire by age even while the manifest references them")
}

func TestClean_PartialFailure(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.Local)
	root := t.TempDir()
	store, err := Open(root, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	old := now.Add(-10 * 24 * time.Hour)
	var stuck, freed string
	for _, group := range []string{"a", "b"} {
		dir := filepath.Join(root, group)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		path := filepath.Join(dir, DraftBackupName(old))
		touch(t, path, old)
		if group == "a" {
			stuck = path
		} else {
			freed = path
		}
	}

	store.remove = func(path string) error {
		if path == stuck {
			return &os.PathError{Op: "remove", Path: path, Err: errors.New("permission denied")}
		}
		return os.Remove(path)
	}

	res, err := store.Clean(context.Background(), Days(7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), stuck)
	assert.Equal(t, 1, res.Cleaned, "only successful deletions are counted")
	assert.Equal(t, 1, res.Failed)

	assert.FileExists(t, stuck)
	assert.NoFileExists(t, freed, "a failure in one group does not stop the others")
}
