package config

import (
	"sync"
)

var (
	// globalManager is the process-wide configuration manager
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates the global manager, registers the draftkeep sections and
// loads them from configPath (or DefaultPath when empty).
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	for _, section := range []Section{
		NewStorageSection(),
		NewGroupsSection(),
		NewAutoSaveSection(),
	} {
		if err := manager.RegisterSection(section); err != nil {
			return err
		}
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true once Initialize has succeeded.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func lookup[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetStorage returns the storage section, or nil before Initialize.
func GetStorage() *StorageSection {
	return lookup[*StorageSection](SectionIDStorage)
}

// GetGroups returns the groups section, or nil before Initialize.
func GetGroups() *GroupsSection {
	return lookup[*GroupsSection](SectionIDGroups)
}

// GetAutoSave returns the auto-save section, or nil before Initialize.
func GetAutoSave() *AutoSaveSection {
	return lookup[*AutoSaveSection](SectionIDAutoSave)
}
