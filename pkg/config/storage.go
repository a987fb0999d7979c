package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDStorage is the identifier for the storage section
	SectionIDStorage = "storage"

	// DefaultKeepVersionDays is how long backups and versions survive cleanup.
	DefaultKeepVersionDays = 7
)

// StorageSection locates the data root and sets the retention window.
type StorageSection struct {
	DataFolderPath  string
	KeepVersionDays int `validate:"gte=1,lte=3650"`
	mu              sync.RWMutex
}

// NewStorageSection returns the storage defaults. An empty DataFolderPath
// means no root has been chosen yet.
func NewStorageSection() *StorageSection {
	return &StorageSection{KeepVersionDays: DefaultKeepVersionDays}
}

// ID returns the section identifier.
func (s *StorageSection) ID() string {
	return SectionIDStorage
}

// Title returns the section title.
func (s *StorageSection) Title() string {
	return "Storage"
}

// Description returns the section description.
func (s *StorageSection) Description() string {
	return "Data folder holding one directory per group, and how many days backups and versions are kept."
}

// Data returns the current configuration data.
func (s *StorageSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"data_folder_path":  s.DataFolderPath,
		"keep_version_days": s.KeepVersionDays,
	}
}

// SetData updates the configuration from the provided data.
func (s *StorageSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["data_folder_path"]; ok {
		path, ok := v.(string)
		if !ok {
			return fmt.Errorf("invalid value type for data_folder_path: expected string, got %T", v)
		}
		s.DataFolderPath = path
	}
	if v, ok := data["keep_version_days"]; ok {
		days, ok := intValue(v)
		if !ok {
			return fmt.Errorf("invalid value for keep_version_days: expected integer, got %v", v)
		}
		s.KeepVersionDays = days
	}
	return nil
}

// Validate validates the current configuration.
func (s *StorageSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Reset restores the defaults.
func (s *StorageSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DataFolderPath = ""
	s.KeepVersionDays = DefaultKeepVersionDays
}

// Root returns the configured data folder.
func (s *StorageSection) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DataFolderPath
}

// SetRoot changes the data folder.
func (s *StorageSection) SetRoot(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DataFolderPath = path
}

// KeepDays returns the retention window in days.
func (s *StorageSection) KeepDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.KeepVersionDays
}
