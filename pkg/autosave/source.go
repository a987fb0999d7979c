package autosave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/entrhq/draftkeep/pkg/vault"
)

// DirSource reads a draft from a working directory: the text from draft.txt
// and the images from every *.png file, in file name order.
type DirSource struct {
	Dir string
}

// Snapshot reads the directory. A missing draft.txt yields empty text.
func (d DirSource) Snapshot(ctx context.Context) (vault.Draft, error) {
	if err := ctx.Err(); err != nil {
		return vault.Draft{}, err
	}

	text, err := os.ReadFile(filepath.Join(d.Dir, vault.DraftFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return vault.Draft{}, fmt.Errorf("read draft: %w", err)
	}

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return vault.Draft{}, fmt.Errorf("read %s: %w", d.Dir, err)
	}

	images := [][]byte{}
	for _, e := range entries {
		if e.IsDir() || !isPNG(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.Dir, e.Name()))
		if err != nil {
			return vault.Draft{}, fmt.Errorf("read image %s: %w", e.Name(), err)
		}
		images = append(images, data)
	}

	return vault.Draft{Text: string(text), Images: images}, nil
}

// WatchDir returns the directory to watch.
func (d DirSource) WatchDir() string {
	return d.Dir
}

// Relevant reports whether a change to name affects the snapshot.
func (d DirSource) Relevant(name string) bool {
	base := filepath.Base(name)
	return base == vault.DraftFile || isPNG(base)
}

func isPNG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".png")
}
