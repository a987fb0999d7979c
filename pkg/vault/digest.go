package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Digest returns the lowercase hex SHA-256 of text. Equal digests are treated
// as equal drafts when deciding whether a save rotates history.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ImagesEqual reports whether two image payloads are byte-for-byte identical.
func ImagesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// Draft is the unit persisted per group. Images are position-significant:
// Images[i] is stored in slot i+1.
type Draft struct {
	Text   string
	Images [][]byte
}

// Digest fingerprints the whole draft, text and images in order. Every part
// is length-prefixed so moving bytes between parts changes the result.
func (d Draft) Digest() string {
	h := sha256.New()
	var size [8]byte
	write := func(p []byte) {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	write([]byte(d.Text))
	for _, img := range d.Images {
		write(img)
	}
	return hex.EncodeToString(h.Sum(nil))
}
