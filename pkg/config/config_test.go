package config

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	})
}

func TestInitialize(t *testing.T) {
	resetGlobal(t)
	assert.False(t, IsInitialized())
	assert.Nil(t, GetStorage())
	assert.Nil(t, GetGroups())
	assert.Nil(t, GetAutoSave())
	assert.Panics(t, func() { Global() })

	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))
	assert.True(t, IsInitialized())

	var ids []string
	for _, s := range Global().GetSections() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{SectionIDStorage, SectionIDGroups, SectionIDAutoSave}, ids)

	require.NotNil(t, GetStorage())
	assert.Equal(t, DefaultKeepVersionDays, GetStorage().KeepDays())
	assert.Equal(t, []string{DefaultGroup}, GetGroups().List())
	enabled, interval := GetAutoSave().Settings()
	assert.False(t, enabled)
	assert.Equal(t, time.Minute, interval)
}

func TestInitialize_Persistence(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, Initialize(path))
	GetStorage().SetRoot("/data/notes")
	require.NoError(t, GetGroups().AddGroup("physics"))
	require.NoError(t, GetGroups().SwitchGroup("physics"))
	GetAutoSave().SetEnabled(true)
	GetAutoSave().SetInterval(30 * time.Second)
	require.NoError(t, Global().SaveAll())

	resetGlobal(t)
	require.NoError(t, Initialize(path))
	assert.Equal(t, "/data/notes", GetStorage().Root())
	assert.Equal(t, []string{DefaultGroup, "physics"}, GetGroups().List())
	assert.Equal(t, "physics", GetGroups().Current())
	enabled, interval := GetAutoSave().Settings()
	assert.True(t, enabled)
	assert.Equal(t, 30*time.Second, interval)
}

func TestGlobal_ThreadSafety(t *testing.T) {
	resetGlobal(t)
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "config.json")))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = GetStorage().KeepDays()
			_ = GetGroups().Current()
			_, _ = GetAutoSave().Settings()
		}()
	}
	wg.Wait()
}
