// Package autosave saves a draft on a timer, and on file changes when the
// draft lives in a watched working directory, skipping saves whose content
// matches the last one written.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/entrhq/draftkeep/pkg/vault"
	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultInterval is used when no interval is configured.
	DefaultInterval = 60 * time.Second
	// DefaultDebounce coalesces bursts of file events into one save.
	DefaultDebounce = 500 * time.Millisecond
)

// ErrRunning is returned by Start when the saver is already running.
var ErrRunning = errors.New("autosave: already running")

// Source produces the draft to save.
type Source interface {
	Snapshot(ctx context.Context) (vault.Draft, error)
}

// Watchable is implemented by sources backed by a directory. The saver
// watches WatchDir and reacts to events on names Relevant accepts.
type Watchable interface {
	WatchDir() string
	Relevant(name string) bool
}

// SaveFunc persists a draft.
type SaveFunc func(ctx context.Context, draft vault.Draft) error

// StoreSaveFunc saves into one group of store.
func StoreSaveFunc(store *vault.Store, group string) SaveFunc {
	return func(ctx context.Context, draft vault.Draft) error {
		_, err := store.Save(ctx, group, draft)
		return err
	}
}

// Option configures a Saver.
type Option func(*Saver)

// WithInterval sets the timer period.
func WithInterval(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDebounce sets how long file events must settle before saving.
func WithDebounce(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Saver runs the auto-save loop.
type Saver struct {
	source   Source
	save     SaveFunc
	interval time.Duration
	debounce time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	lastDigest string

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped saver.
func New(source Source, save SaveFunc, opts ...Option) *Saver {
	s := &Saver{
		source:   source,
		save:     save,
		interval: DefaultInterval,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateLastSaved records draft as already saved, e.g. after a manual save.
func (s *Saver) UpdateLastSaved(draft vault.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDigest = draft.Digest()
}

// SaveIfChanged snapshots the source and saves when the content differs from
// the last saved draft. It reports whether a save happened.
func (s *Saver) SaveIfChanged(ctx context.Context) (bool, error) {
	draft, err := s.source.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("autosave: snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	digest := draft.Digest()
	if digest == s.lastDigest {
		return false, nil
	}
	if err := s.save(ctx, draft); err != nil {
		return false, fmt.Errorf("autosave: save: %w", err)
	}
	s.lastDigest = digest
	return true, nil
}

// Running reports whether the loop is active.
func (s *Saver) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cancel != nil
}

// Start launches the loop. It stops when ctx is canceled or Stop is called.
func (s *Saver) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return ErrRunning
	}

	var watcher *fsnotify.Watcher
	if w, ok := s.source.(Watchable); ok {
		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("autosave: create watcher: %w", err)
		}
		if err := watcher.Add(w.WatchDir()); err != nil {
			watcher.Close()
			return fmt.Errorf("autosave: watch %s: %w", w.WatchDir(), err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, watcher, s.done)

	s.logger.Info("autosave: started", "interval", s.interval, "watching", watcher != nil)
	return nil
}

// Stop ends the loop and waits for it to exit. Safe to call when stopped.
func (s *Saver) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("autosave: stopped")
}

func (s *Saver) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(s.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.tick(ctx, "timer")

		case <-debounce.C:
			s.tick(ctx, "change")

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !s.relevant(event) {
				continue
			}
			s.logger.Debug("autosave: file changed", "file", event.Name, "op", event.Op.String())
			debounce.Reset(s.debounce)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("autosave: watcher error", "err", err)
		}
	}
}

func (s *Saver) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	w, ok := s.source.(Watchable)
	return ok && w.Relevant(event.Name)
}

func (s *Saver) tick(ctx context.Context, trigger string) {
	saved, err := s.SaveIfChanged(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		s.logger.Error("autosave: failed", "trigger", trigger, "err", err)
	case saved:
		s.logger.Info("autosave: saved", "trigger", trigger)
	}
}
