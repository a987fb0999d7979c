package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	ts := time.Date(2025, 3, 9, 14, 5, 7, 0, time.Local)

	assert.Equal(t, "img3_origin.png", OriginImageName(3))
	assert.Equal(t, "img3_20250309_140507.png", VersionImageName(3, ts))
	assert.Equal(t, "draft_bak_20250309_140507.txt", DraftBackupName(ts))
	assert.Equal(t, "project_bak_20250309_140507.json", ManifestBackupName(ts))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"draft.txt", KindCanonical},
		{"project.json", KindCanonical},
		{"img1_origin.png", KindCanonical},
		{"img12_origin.png", KindCanonical},
		{"draft_bak_20250309_140507.txt", KindBackup},
		{"project_bak_20250309_140507.json", KindBackup},
		{"img1_20250309_140507.png", KindVersion},
		{"img10_20250309_140507.png", KindVersion},
		{"draft_bak_notastamp.txt", KindOther},
		{"img1_sketch.png", KindOther},
		{"img0_origin.png", KindOther},
		{"img01_origin.png", KindOther},
		{"imgx_20250309_140507.png", KindOther},
		{"draft.txt.tmp", KindOther},
		{"photo.png", KindOther},
		{"notes.md", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 58, 0, time.Local)

	got, ok := ParseTimestamp(DraftBackupName(ts))
	require.True(t, ok)
	assert.True(t, ts.Equal(got))

	got, ok = ParseTimestamp(VersionImageName(4, ts))
	require.True(t, ok)
	assert.True(t, ts.Equal(got))

	_, ok = ParseTimestamp("img4_origin.png")
	assert.False(t, ok)
}

func TestSlotOf(t *testing.T) {
	slot, ok := SlotOf("img7_origin.png")
	require.True(t, ok)
	assert.Equal(t, 7, slot)

	slot, ok = SlotOf("img2_20250101_000000.png")
	require.True(t, ok)
	assert.Equal(t, 2, slot)

	_, ok = SlotOf("draft.txt")
	assert.False(t, ok)
}

func TestTimestampsSortChronologically(t *testing.T) {
	earlier := FormatTimestamp(time.Date(2025, 1, 9, 23, 0, 0, 0, time.Local))
	later := FormatTimestamp(time.Date(2025, 1, 10, 1, 0, 0, 0, time.Local))
	assert.Less(t, earlier, later)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	assert.Equal(t, Digest("a"), Digest("a"))
	assert.NotEqual(t, Digest("a"), Digest("b"))
	assert.Len(t, Digest("anything"), 64)
}

func TestImagesEqual(t *testing.T) {
	assert.True(t, ImagesEqual([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, ImagesEqual([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, ImagesEqual([]byte{1, 2, 3}, []byte{1, 2}))
	assert.True(t, ImagesEqual(nil, []byte{}))
}

func TestDraftDigest(t *testing.T) {
	a := Draft{Text: "ab", Images: [][]byte{[]byte("c")}}
	b := Draft{Text: "a", Images: [][]byte{[]byte("bc")}}
	assert.NotEqual(t, a.Digest(), b.Digest())
	assert.Equal(t, a.Digest(), Draft{Text: "ab", Images: [][]byte{[]byte("c")}}.Digest())
}
