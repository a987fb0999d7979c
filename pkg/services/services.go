// Package services exposes the draft store to editors as a flat set of
// operations. Every operation returns a tagged result value; errors never
// cross this boundary, they are reported as a human-readable cause.
package services

import (
	"context"
	"log/slog"

	"github.com/entrhq/draftkeep/pkg/dataurl"
	"github.com/entrhq/draftkeep/pkg/vault"
)

// Result is the common success/failure envelope.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GroupsResult is returned by ListGroups.
type GroupsResult struct {
	Result
	Groups []string `json:"groups"`
}

// SaveResult is returned by SaveToGroup.
type SaveResult struct {
	Result
	Path           string `json:"path,omitempty"`
	ContentChanged bool   `json:"contentChanged"`
	ImagesChanged  bool   `json:"imagesChanged"`
}

// DraftData is a loaded draft with images encoded as data URIs.
type DraftData struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// LoadResult is returned by LoadFromGroup.
type LoadResult struct {
	Result
	Data *DraftData `json:"data,omitempty"`
}

// CleanResult is returned by CleanOldVersions. Cleaned is reported even when
// some files could not be removed.
type CleanResult struct {
	Result
	Cleaned int `json:"cleaned"`
}

// Services binds the operations to one store.
type Services struct {
	store  *vault.Store
	logger *slog.Logger
}

// New returns Services over store. A nil logger discards diagnostics.
func New(store *vault.Store, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Services{store: store, logger: logger}
}

// Store returns the underlying store.
func (s *Services) Store() *vault.Store {
	return s.store
}

func ok() Result {
	return Result{Success: true}
}

func (s *Services) fail(op string, err error) Result {
	s.logger.Error("services: operation failed", "op", op, "err", err)
	return Result{Success: false, Error: err.Error()}
}

// CreateGroup ensures the named group exists.
func (s *Services) CreateGroup(name string) Result {
	if err := s.store.Create(name); err != nil {
		return s.fail("createGroup", err)
	}
	return ok()
}

// DeleteGroup removes the named group with all of its history.
func (s *Services) DeleteGroup(name string) Result {
	if err := s.store.Delete(name); err != nil {
		return s.fail("deleteGroup", err)
	}
	return ok()
}

// ListGroups returns every group under the root.
func (s *Services) ListGroups() GroupsResult {
	groups, err := s.store.List()
	if err != nil {
		return GroupsResult{Result: s.fail("listGroups", err), Groups: []string{}}
	}
	return GroupsResult{Result: ok(), Groups: groups}
}

// SaveToGroup decodes images (data URIs or bare base64) and saves the draft.
func (s *Services) SaveToGroup(ctx context.Context, name, text string, images []string) SaveResult {
	payloads, err := dataurl.DecodeAll(images)
	if err != nil {
		return SaveResult{Result: s.fail("saveToGroup", err)}
	}

	res, err := s.store.Save(ctx, name, vault.Draft{Text: text, Images: payloads})
	if err != nil {
		return SaveResult{Result: s.fail("saveToGroup", err)}
	}
	return SaveResult{
		Result:         ok(),
		Path:           res.Path,
		ContentChanged: res.ContentChanged,
		ImagesChanged:  res.ImagesChanged,
	}
}

// LoadFromGroup returns the current draft. A missing group loads as empty.
func (s *Services) LoadFromGroup(ctx context.Context, name string) LoadResult {
	draft, err := s.store.Load(ctx, name)
	if err != nil {
		return LoadResult{Result: s.fail("loadFromGroup", err)}
	}
	return LoadResult{
		Result: ok(),
		Data: &DraftData{
			Text:   draft.Text,
			Images: dataurl.EncodeAll(draft.Images),
		},
	}
}

// CleanOldVersions removes backups and versions older than keepDays.
func (s *Services) CleanOldVersions(ctx context.Context, keepDays int) CleanResult {
	res, err := s.store.Clean(ctx, vault.Days(keepDays))
	if err != nil {
		return CleanResult{Result: s.fail("cleanOldVersions", err), Cleaned: res.Cleaned}
	}
	return CleanResult{Result: ok(), Cleaned: res.Cleaned}
}
