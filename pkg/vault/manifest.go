package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ManifestVersion is the schema tag written to new manifests.
	ManifestVersion = "2.0"

	// CreatedLayout renders the manifest's human-readable creation time.
	CreatedLayout = "2006/1/2 15:04:05"
)

// Manifest is the authoritative index of a group's current image files.
type Manifest struct {
	Version string   `json:"version"`
	Created string   `json:"created"`
	Images  []string `json:"images"`
}

// readManifest returns (nil, nil) when no manifest exists. A manifest that is
// present but unparseable yields ErrMalformedManifest.
func readManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedManifest, path, err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing version", ErrMalformedManifest, path)
	}
	return &m, nil
}

func encodeManifest(m Manifest) ([]byte, error) {
	if m.Images == nil {
		m.Images = []string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("vault: encode manifest: %w", err)
	}
	return data, nil
}
