package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

const (
	// SectionIDGroups is the identifier for the groups section
	SectionIDGroups = "groups"

	// DefaultGroup is the group every fresh configuration starts with.
	DefaultGroup = "default"
)

var (
	// ErrGroupExists is returned when adding a group that is already listed.
	ErrGroupExists = errors.New("config: group already exists")
	// ErrGroupNotFound is returned for operations on an unlisted group.
	ErrGroupNotFound = errors.New("config: group not found")
	// ErrLastGroup is returned when removing the only remaining group.
	ErrLastGroup = errors.New("config: at least one group must remain")
)

// GroupsSection tracks the known groups and which one is current.
type GroupsSection struct {
	Groups       []string `validate:"required,min=1,unique,dive,required,groupname"`
	CurrentGroup string   `validate:"required,groupname"`
	mu           sync.RWMutex
}

// NewGroupsSection returns a section holding only the default group.
func NewGroupsSection() *GroupsSection {
	return &GroupsSection{
		Groups:       []string{DefaultGroup},
		CurrentGroup: DefaultGroup,
	}
}

// ID returns the section identifier.
func (s *GroupsSection) ID() string {
	return SectionIDGroups
}

// Title returns the section title.
func (s *GroupsSection) Title() string {
	return "Groups"
}

// Description returns the section description.
func (s *GroupsSection) Description() string {
	return "Named drafts kept side by side in the data folder, and the one currently being edited."
}

// Data returns the current configuration data.
func (s *GroupsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"groups":        slices.Clone(s.Groups),
		"current_group": s.CurrentGroup,
	}
}

// SetData updates the configuration from the provided data.
func (s *GroupsSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["groups"]; ok {
		groups, err := stringSlice(v)
		if err != nil {
			return fmt.Errorf("invalid value for groups: %w", err)
		}
		s.Groups = groups
	}
	if v, ok := data["current_group"]; ok {
		current, ok := v.(string)
		if !ok {
			return fmt.Errorf("invalid value type for current_group: expected string, got %T", v)
		}
		s.CurrentGroup = current
	}
	return nil
}

// stringSlice converts []string, or the []any produced by JSON decoding.
func stringSlice(v any) ([]string, error) {
	switch items := v.(type) {
	case []string:
		return slices.Clone(items), nil
	case []any:
		out := make([]string, 0, len(items))
		for i, item := range items {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list of strings, got %T", v)
}

// Validate validates the current configuration.
func (s *GroupsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("groups: %w", err)
	}
	if !slices.Contains(s.Groups, s.CurrentGroup) {
		return fmt.Errorf("groups: current group %q: %w", s.CurrentGroup, ErrGroupNotFound)
	}
	return nil
}

// Reset restores the single default group.
func (s *GroupsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Groups = []string{DefaultGroup}
	s.CurrentGroup = DefaultGroup
}

// List returns a copy of the group names in insertion order.
func (s *GroupsSection) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.Groups)
}

// Current returns the current group.
func (s *GroupsSection) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentGroup
}

// AddGroup appends name to the list.
func (s *GroupsSection) AddGroup(name string) error {
	if err := validate.Var(name, "required,groupname"); err != nil {
		return fmt.Errorf("config: group name %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.Groups, name) {
		return fmt.Errorf("%w: %s", ErrGroupExists, name)
	}
	s.Groups = append(s.Groups, name)
	return nil
}

// RemoveGroup drops name from the list. Removing the current group makes the
// first remaining group current.
func (s *GroupsSection) RemoveGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.Groups, name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	if len(s.Groups) == 1 {
		return ErrLastGroup
	}
	s.Groups = slices.Delete(s.Groups, idx, idx+1)
	if s.CurrentGroup == name {
		s.CurrentGroup = s.Groups[0]
	}
	return nil
}

// SwitchGroup makes name the current group.
func (s *GroupsSection) SwitchGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.Groups, name) {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	s.CurrentGroup = name
	return nil
}
