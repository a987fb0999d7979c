package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDAutoSave is the identifier for the auto-save section
	SectionIDAutoSave = "auto_save"

	// DefaultAutoSaveInterval is the period between automatic saves.
	DefaultAutoSaveInterval = 60 * time.Second
)

// AutoSaveSection controls periodic saving of the current group.
type AutoSaveSection struct {
	Enabled  bool
	Interval time.Duration `validate:"min=1s,max=24h"`
	mu       sync.RWMutex
}

// NewAutoSaveSection returns auto-save disabled with a one minute interval.
func NewAutoSaveSection() *AutoSaveSection {
	return &AutoSaveSection{Interval: DefaultAutoSaveInterval}
}

// ID returns the section identifier.
func (s *AutoSaveSection) ID() string {
	return SectionIDAutoSave
}

// Title returns the section title.
func (s *AutoSaveSection) Title() string {
	return "Auto-Save"
}

// Description returns the section description.
func (s *AutoSaveSection) Description() string {
	return "Save the current group on a timer when its content has changed."
}

// Data returns the current configuration data. The interval is stored in the
// time.Duration string form, e.g. "1m0s".
func (s *AutoSaveSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"enabled":  s.Enabled,
		"interval": s.Interval.String(),
	}
}

// SetData updates the configuration from the provided data. The interval may
// be a duration string or a number of seconds.
func (s *AutoSaveSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["enabled"]; ok {
		enabled, ok := v.(bool)
		if !ok {
			return fmt.Errorf("invalid value type for enabled: expected bool, got %T", v)
		}
		s.Enabled = enabled
	}
	if v, ok := data["interval"]; ok {
		interval, err := durationValue(v)
		if err != nil {
			return fmt.Errorf("invalid value for interval: %w", err)
		}
		s.Interval = interval
	}
	return nil
}

func durationValue(v any) (time.Duration, error) {
	if str, ok := v.(string); ok {
		return time.ParseDuration(str)
	}
	if secs, ok := intValue(v); ok {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("expected duration string or seconds, got %T", v)
}

// Validate validates the current configuration.
func (s *AutoSaveSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("auto_save: %w", err)
	}
	return nil
}

// Reset restores the defaults.
func (s *AutoSaveSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = false
	s.Interval = DefaultAutoSaveInterval
}

// Settings returns the enabled flag and interval together.
func (s *AutoSaveSection) Settings() (bool, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Enabled, s.Interval
}

// SetEnabled toggles auto-save.
func (s *AutoSaveSection) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = enabled
}

// SetInterval changes the auto-save period.
func (s *AutoSaveSection) SetInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interval = interval
}
