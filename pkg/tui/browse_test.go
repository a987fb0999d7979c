package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/draftkeep/pkg/config"
	"github.com/entrhq/draftkeep/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newBrowser(t *testing.T, opts ...Option) (*Model, *vault.Store) {
	t.Helper()
	store, err := vault.Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Save(ctx, "alpha", vault.Draft{Text: "a+b", Images: [][]byte{[]byte("png")}})
	require.NoError(t, err)
	_, err = store.Save(ctx, "beta", vault.Draft{Text: "c"})
	require.NoError(t, err)

	m := New(ctx, store, 7, opts...)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.Init()())
	return m, store
}

func TestBrowseLists(t *testing.T) {
	m, _ := newBrowser(t)

	items := m.list.Items()
	require.Len(t, items, 2)
	first := items[0].(groupItem)
	assert.Equal(t, "alpha", first.Title())
	assert.Contains(t, first.Description(), "3 bytes · 1 images")
	assert.Contains(t, m.View(), "alpha")
}

func TestBrowsePreview(t *testing.T) {
	m, _ := newBrowser(t)

	_, cmd := m.Update(keyPress("enter"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, modePreview, m.mode)
	assert.Contains(t, m.View(), "a+b")
	assert.Contains(t, m.View(), "1 images")

	m.Update(keyPress("esc"))
	assert.Equal(t, modeList, m.mode)
}

func TestBrowseDelete(t *testing.T) {
	m, store := newBrowser(t)

	m.Update(keyPress("d"))
	assert.Equal(t, modeConfirmDelete, m.mode)
	m.Update(keyPress("n"))
	assert.Equal(t, "delete canceled", m.status)
	assert.True(t, store.Exists("alpha"))

	m.Update(keyPress("d"))
	_, cmd := m.Update(keyPress("y"))
	require.NotNil(t, cmd)
	_, reload := m.Update(cmd())
	assert.Equal(t, "deleted alpha", m.status)
	assert.False(t, store.Exists("alpha"))

	require.NotNil(t, reload)
	m.Update(reload())
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "beta", m.list.Items()[0].(groupItem).Title())
}

func TestBrowseDeleteUpdatesGroups(t *testing.T) {
	groups := config.NewGroupsSection()
	require.NoError(t, groups.SetData(map[string]any{
		"groups":        []any{"alpha", "beta"},
		"current_group": "alpha",
	}))
	saves := 0
	m, store := newBrowser(t, WithGroups(groups, func() error { saves++; return nil }))

	m.Update(keyPress("d"))
	_, cmd := m.Update(keyPress("y"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.False(t, m.failed)
	assert.False(t, store.Exists("alpha"))
	assert.Equal(t, []string{"beta"}, groups.List())
	assert.Equal(t, "beta", groups.Current(), "the current group moves off the deleted one")
	assert.Equal(t, 1, saves)
}

func TestBrowseDeleteKeepsLastGroup(t *testing.T) {
	groups := config.NewGroupsSection()
	require.NoError(t, groups.SetData(map[string]any{
		"groups":        []any{"alpha"},
		"current_group": "alpha",
	}))
	saves := 0
	m, store := newBrowser(t, WithGroups(groups, func() error { saves++; return nil }))

	m.Update(keyPress("d"))
	_, cmd := m.Update(keyPress("y"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.True(t, m.failed)
	assert.Contains(t, m.status, config.ErrLastGroup.Error())
	assert.True(t, store.Exists("alpha"))
	assert.Equal(t, []string{"alpha"}, groups.List())
	assert.Zero(t, saves)
}

func TestBrowseClean(t *testing.T) {
	m, store := newBrowser(t)

	dir := filepath.Join(store.Root(), "beta")
	old := time.Now().Add(-30 * 24 * time.Hour)
	path := filepath.Join(dir, vault.DraftBackupName(old))
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	require.NoError(t, os.Chtimes(path, old, old))

	_, cmd := m.Update(keyPress("c"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.False(t, m.failed)
	assert.Equal(t, "cleaned 1 files older than 7 days", m.status)
	assert.NoFileExists(t, path)
}

func TestBrowseQuit(t *testing.T) {
	m, _ := newBrowser(t)
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
