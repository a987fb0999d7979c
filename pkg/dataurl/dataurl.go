// Package dataurl converts images between the inline data-URI strings used by
// editors and the raw bytes stored on disk.
package dataurl

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// PNGPrefix is prepended to every encoded image.
const PNGPrefix = "data:image/png;base64,"

var headerPattern = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// Decode accepts either a base64 data URI for any image subtype or a bare
// base64 payload and returns the raw bytes.
func Decode(s string) ([]byte, error) {
	payload := headerPattern.ReplaceAllString(strings.TrimSpace(s), "")
	if strings.HasPrefix(payload, "data:") {
		return nil, fmt.Errorf("dataurl: unsupported data URI header")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("dataurl: decode payload: %w", err)
	}
	return data, nil
}

// DecodeAll decodes every entry, reporting the index of the first failure.
func DecodeAll(items []string) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for i, item := range items {
		data, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// EncodePNG renders raw PNG bytes as a data URI.
func EncodePNG(data []byte) string {
	return PNGPrefix + base64.StdEncoding.EncodeToString(data)
}

// EncodeAll encodes every image as a PNG data URI.
func EncodeAll(images [][]byte) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, EncodePNG(img))
	}
	return out
}
