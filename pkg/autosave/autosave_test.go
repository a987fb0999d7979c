package autosave

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/draftkeep/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	mu    sync.Mutex
	draft vault.Draft
	err   error
}

func (m *memSource) set(text string, images ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = vault.Draft{Text: text, Images: images}
}

func (m *memSource) Snapshot(context.Context) (vault.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft, m.err
}

type recorder struct {
	mu     sync.Mutex
	drafts []vault.Draft
	err    error
}

func (r *recorder) save(_ context.Context, d vault.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.drafts = append(r.drafts, d)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

func TestSaveIfChanged(t *testing.T) {
	src := &memSource{}
	rec := &recorder{}
	s := New(src, rec.save)
	ctx := context.Background()

	src.set("x^2")
	saved, err := s.SaveIfChanged(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.SaveIfChanged(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "unchanged content is not saved again")

	src.set("x^2", []byte("img"))
	saved, err = s.SaveIfChanged(ctx)
	require.NoError(t, err)
	assert.True(t, saved, "an added image is a change")

	assert.Equal(t, 2, rec.count())
}

func TestUpdateLastSaved(t *testing.T) {
	src := &memSource{}
	src.set("manual")
	rec := &recorder{}
	s := New(src, rec.save)

	s.UpdateLastSaved(vault.Draft{Text: "manual"})
	saved, err := s.SaveIfChanged(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, rec.count())
}

func TestSaveFailureRetries(t *testing.T) {
	src := &memSource{}
	src.set("a")
	rec := &recorder{err: errors.New("disk full")}
	s := New(src, rec.save)

	_, err := s.SaveIfChanged(context.Background())
	require.ErrorContains(t, err, "disk full")

	rec.err = nil
	saved, err := s.SaveIfChanged(context.Background())
	require.NoError(t, err)
	assert.True(t, saved, "a failed save does not mark the content as saved")
}

func TestSnapshotError(t *testing.T) {
	src := &memSource{err: errors.New("editor gone")}
	s := New(src, (&recorder{}).save)
	_, err := s.SaveIfChanged(context.Background())
	assert.ErrorContains(t, err, "snapshot")
}

func TestStartStopTimer(t *testing.T) {
	src := &memSource{}
	src.set("tick")
	rec := &recorder{}
	s := New(src, rec.save, WithInterval(10*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Start(context.Background()), ErrRunning)

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "repeated ticks on unchanged content save once")

	s.Stop()
	assert.False(t, s.Running())
	s.Stop()
}

func TestStopOnContextCancel(t *testing.T) {
	src := &memSource{}
	rec := &recorder{}
	s := New(src, rec.save, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()
	assert.False(t, s.Running())
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	src := DirSource{Dir: dir}

	draft, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", draft.Text)
	assert.Empty(t, draft.Images)

	require.NoError(t, os.WriteFile(filepath.Join(dir, vault.DraftFile), []byte("text"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("B"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.PNG"), []byte("A"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o600))

	draft, err = src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "text", draft.Text)
	assert.Equal(t, [][]byte{[]byte("A"), []byte("B")}, draft.Images)

	assert.True(t, src.Relevant(filepath.Join(dir, vault.DraftFile)))
	assert.True(t, src.Relevant("x.png"))
	assert.False(t, src.Relevant("notes.md"))
	assert.Equal(t, dir, src.WatchDir())
}

func TestWatchTriggersSave(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	s := New(DirSource{Dir: dir}, rec.save,
		WithInterval(time.Hour),
		WithDebounce(20*time.Millisecond),
	)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, vault.DraftFile), []byte("edited"), 0o600))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, "edited", rec.drafts[0].Text)
	rec.mu.Unlock()
}

func TestStoreSaveFunc(t *testing.T) {
	store, err := vault.Open(t.TempDir())
	require.NoError(t, err)

	save := StoreSaveFunc(store, "g")
	require.NoError(t, save(context.Background(), vault.Draft{Text: "saved"}))

	draft, err := store.Load(context.Background(), "g")
	require.NoError(t, err)
	assert.Equal(t, "saved", draft.Text)
}
