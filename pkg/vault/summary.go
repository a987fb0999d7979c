package vault

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Summary describes a group at a glance.
type Summary struct {
	Name      string
	TextBytes int
	Images    int
	Backups   int
	Versions  int
	Updated   time.Time
}

// Summarize loads group name and counts its history. Updated is the
// modification time of draft.txt, zero if there is none.
func (s *Store) Summarize(ctx context.Context, name string) (Summary, error) {
	draft, err := s.Load(ctx, name)
	if err != nil {
		return Summary{}, err
	}
	revisions, err := s.History(name)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Name: name, TextBytes: len(draft.Text), Images: len(draft.Images)}
	for _, rev := range revisions {
		switch rev.Kind {
		case KindBackup:
			sum.Backups++
		case KindVersion:
			sum.Versions++
		}
	}
	if info, err := os.Stat(filepath.Join(s.root, name, DraftFile)); err == nil {
		sum.Updated = info.ModTime()
	}
	return sum, nil
}
