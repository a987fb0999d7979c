package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidGroup is returned for group names that are not a single path element.
	ErrInvalidGroup = errors.New("vault: invalid group name")
	// ErrMalformedManifest marks a manifest that exists but cannot be decoded.
	ErrMalformedManifest = errors.New("vault: malformed manifest")
)

// Store is a file-backed catalog of groups under one root directory. Each
// Store is independent; several roots may be open in the same process.
type Store struct {
	root            string
	now             func() time.Time
	logger          *slog.Logger
	manifestVersion string
	remove          func(string) error

	// locks holds one *sync.Mutex per absolute group directory.
	locks sync.Map
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for stamps and retention.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithManifestVersion overrides the schema tag written to manifests.
func WithManifestVersion(version string) Option {
	return func(s *Store) {
		if version != "" {
			s.manifestVersion = version
		}
	}
}

// Open returns a Store rooted at root. The directory is not created until a
// group is; listing a missing root yields no groups.
func Open(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("vault: root directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root %s: %w", root, err)
	}

	s := &Store{
		root:            abs,
		now:             time.Now,
		logger:          slog.New(slog.DiscardHandler),
		manifestVersion: ManifestVersion,
		remove:          os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// GroupPath returns the directory of group name.
func (s *Store) GroupPath(name string) (string, error) {
	if err := ValidateGroupName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, name), nil
}

// ValidateGroupName rejects names that would escape the root or nest.
func ValidateGroupName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidGroup)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidGroup, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidGroup, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidGroup, name)
	}
	return nil
}

func (s *Store) lock(dir string) func() {
	value, _ := s.locks.LoadOrStore(dir, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Create ensures the group directory exists.
func (s *Store) Create(name string) error {
	dir, err := s.GroupPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("vault: create group %s: %w", dir, err)
	}
	return nil
}

// Delete removes the group directory and everything in it, backups included.
// Deleting a missing group is not an error.
func (s *Store) Delete(name string) error {
	dir, err := s.GroupPath(name)
	if err != nil {
		return err
	}
	unlock := s.lock(dir)
	defer unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("vault: delete group %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether the group directory is present.
func (s *Store) Exists(name string) bool {
	dir, err := s.GroupPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// List returns the names of all groups, sorted. Plain files in the root are
// ignored and a missing root yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: list %s: %w", s.root, err)
	}

	groups := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			groups = append(groups, e.Name())
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// SaveResult reports what a Save did.
type SaveResult struct {
	Path           string
	Stamp          string
	ContentChanged bool
	ImagesChanged  bool
}

// Save persists draft into group name. History is rotated only when the
// draft text differs from the stored one: the previous draft and manifest are
// copied to backups stamped with the save time, and images that differ from
// their slot's origin become new version files. When the text is unchanged a
// differing image overwrites its origin in place.
//
// Steps already committed are not rolled back if a later one fails.
func (s *Store) Save(ctx context.Context, name string, draft Draft) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}
	dir, err := s.GroupPath(name)
	if err != nil {
		return SaveResult{}, err
	}
	unlock := s.lock(dir)
	defer unlock()

	now := s.now()
	result := SaveResult{Path: dir, Stamp: FormatTimestamp(now)}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return result, fmt.Errorf("vault: create group %s: %w", dir, err)
	}

	draftPath := filepath.Join(dir, DraftFile)
	previous, hadDraft, err := readOptional(draftPath)
	if err != nil {
		return result, err
	}
	result.ContentChanged = !hadDraft || Digest(string(previous)) != Digest(draft.Text)

	if result.ContentChanged && hadDraft {
		if err := writeFileAtomic(filepath.Join(dir, DraftBackupName(now)), previous); err != nil {
			return result, err
		}
	}
	if err := writeFileAtomic(draftPath, []byte(draft.Text)); err != nil {
		return result, err
	}

	if result.ContentChanged {
		manifestPath := filepath.Join(dir, ManifestFile)
		prevManifest, hadManifest, err := readOptional(manifestPath)
		if err != nil {
			return result, err
		}
		if hadManifest {
			if err := writeFileAtomic(filepath.Join(dir, ManifestBackupName(now)), prevManifest); err != nil {
				return result, err
			}
		}
	}

	referenced := make([]string, 0, len(draft.Images))
	for i, img := range draft.Images {
		fileName, changed, err := s.saveSlot(dir, i+1, img, result.ContentChanged, now)
		if err != nil {
			return result, err
		}
		if changed {
			result.ImagesChanged = true
		}
		referenced = append(referenced, fileName)
	}

	data, err := encodeManifest(Manifest{
		Version: s.manifestVersion,
		Created: now.Local().Format(CreatedLayout),
		Images:  referenced,
	})
	if err != nil {
		return result, err
	}
	if err := writeFileAtomic(filepath.Join(dir, ManifestFile), data); err != nil {
		return result, err
	}

	s.logger.Debug("vault: saved group",
		"group", name,
		"content_changed", result.ContentChanged,
		"images_changed", result.ImagesChanged,
		"images", len(referenced))
	return result, nil
}

// saveSlot writes one image slot and returns the file name the manifest
// should reference.
func (s *Store) saveSlot(dir string, slot int, img []byte, contentChanged bool, now time.Time) (string, bool, error) {
	originName := OriginImageName(slot)
	originPath := filepath.Join(dir, originName)

	existing, ok, err := readOptional(originPath)
	if err != nil {
		return "", false, err
	}
	switch {
	case !ok:
		if err := writeFileAtomic(originPath, img); err != nil {
			return "", false, err
		}
		return originName, true, nil
	case ImagesEqual(existing, img):
		return originName, false, nil
	case contentChanged:
		versionName := VersionImageName(slot, now)
		if err := writeFileAtomic(filepath.Join(dir, versionName), img); err != nil {
			return "", false, err
		}
		return versionName, true, nil
	default:
		// TODO: keep a backup of the origin before overwriting it once the
		// desired retention for unchanged-text edits is decided.
		if err := writeFileAtomic(originPath, img); err != nil {
			return "", false, err
		}
		return originName, true, nil
	}
}

// Load reads the current draft of group name. A missing group loads as an
// empty draft. Images come from the manifest; files it lists that are missing
// on disk are skipped. Without a readable manifest the directory is scanned
// for origin images in file name order.
func (s *Store) Load(ctx context.Context, name string) (Draft, error) {
	empty := Draft{Text: "", Images: [][]byte{}}
	if err := ctx.Err(); err != nil {
		return empty, err
	}
	dir, err := s.GroupPath(name)
	if err != nil {
		return empty, err
	}
	unlock := s.lock(dir)
	defer unlock()

	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("vault: stat group %s: %w", dir, err)
	}
	if !info.IsDir() {
		return empty, fmt.Errorf("vault: group %s is not a directory", dir)
	}

	text, _, err := readOptional(filepath.Join(dir, DraftFile))
	if err != nil {
		return empty, err
	}
	draft := Draft{Text: string(text), Images: [][]byte{}}

	manifest, err := readManifest(dir)
	if errors.Is(err, ErrMalformedManifest) {
		s.logger.Warn("vault: falling back to directory scan", "group", name, "err", err)
		manifest = nil
	} else if err != nil {
		return empty, err
	}

	var names []string
	if manifest != nil {
		names = manifest.Images
	} else {
		names, err = scanOrigins(dir)
		if err != nil {
			return empty, err
		}
	}

	for _, fileName := range names {
		if fileName == "" || filepath.Base(fileName) != fileName {
			s.logger.Warn("vault: skipping manifest entry outside group", "group", name, "entry", fileName)
			continue
		}
		if !IsOriginImage(fileName) && Classify(fileName) != KindVersion {
			s.logger.Warn("vault: skipping manifest entry that is not an image", "group", name, "entry", fileName)
			continue
		}
		path := filepath.Join(dir, fileName)
		fi, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("vault: manifest entry missing on disk", "group", name, "entry", fileName)
			continue
		}
		if err != nil {
			return empty, fmt.Errorf("vault: stat %s: %w", path, err)
		}
		if !fi.Mode().IsRegular() {
			s.logger.Warn("vault: skipping manifest entry that is not a regular file", "group", name, "entry", fileName)
			continue
		}
		img, ok, err := readOptional(path)
		if err != nil {
			return empty, err
		}
		if !ok {
			continue
		}
		draft.Images = append(draft.Images, img)
	}
	return draft, nil
}

func scanOrigins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("vault: scan %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsOriginImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Revision is one rotated file in a group's history.
type Revision struct {
	Name    string
	Kind    Kind
	Slot    int
	Stamp   time.Time
	Size    int64
	ModTime time.Time
}

// History lists the backups and versions of group name, newest first.
func (s *Store) History(name string) ([]Revision, error) {
	dir, err := s.GroupPath(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: history %s: %w", dir, err)
	}

	revisions := make([]Revision, 0)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		kind := Classify(e.Name())
		if kind != KindBackup && kind != KindVersion {
			continue
		}
		stamp, _ := ParseTimestamp(e.Name())
		slot, _ := SlotOf(e.Name())
		rev := Revision{Name: e.Name(), Kind: kind, Slot: slot, Stamp: stamp}
		if info, err := e.Info(); err == nil {
			rev.Size = info.Size()
			rev.ModTime = info.ModTime()
		}
		revisions = append(revisions, rev)
	}
	sort.SliceStable(revisions, func(i, j int) bool {
		if !revisions[i].Stamp.Equal(revisions[j].Stamp) {
			return revisions[i].Stamp.After(revisions[j].Stamp)
		}
		return revisions[i].Name < revisions[j].Name
	})
	return revisions, nil
}

// readOptional returns the file content and whether it existed.
func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("vault: read %s: %w", path, err)
	}
	return data, true, nil
}

// writeFileAtomic writes through a temporary sibling and renames it into
// place, replacing any existing file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("vault: write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("vault: rename %s: %w", path, err)
	}
	return nil
}
