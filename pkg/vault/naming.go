package vault

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

const (
	// DraftFile is the canonical draft text of a group.
	DraftFile = "draft.txt"
	// ManifestFile is the canonical project manifest of a group.
	ManifestFile = "project.json"

	// TimestampLayout stamps backup and version names. It sorts
	// lexically and has second granularity.
	TimestampLayout = "20060102_150405"

	draftBackupPrefix    = "draft_bak_"
	manifestBackupPrefix = "project_bak_"
	imagePrefix          = "img"
	originSuffix         = "origin"
)

// Kind classifies a file inside a group directory by name alone.
type Kind int

const (
	// KindOther is anything the store does not own (stray files, temp files).
	KindOther Kind = iota
	// KindCanonical is the current draft, manifest or a slot's origin image.
	KindCanonical
	// KindBackup is a rotated copy of a previous draft or manifest.
	KindBackup
	// KindVersion is a timestamped image written when a slot diverged.
	KindVersion
)

func (k Kind) String() string {
	switch k {
	case KindCanonical:
		return "canonical"
	case KindBackup:
		return "backup"
	case KindVersion:
		return "version"
	default:
		return "other"
	}
}

// Name patterns are matched first with globs and then parsed strictly, so a
// name such as "img1_origin.png" can never be mistaken for a version.
var (
	draftBackupGlob    = glob.MustCompile(draftBackupPrefix + "*.txt")
	manifestBackupGlob = glob.MustCompile(manifestBackupPrefix + "*.json")
	originGlob         = glob.MustCompile(imagePrefix + "[0-9]*_" + originSuffix + ".png")
	versionGlob        = glob.MustCompile(imagePrefix + "[0-9]*_*.png")
)

// FormatTimestamp renders t in TimestampLayout using local time.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// OriginImageName is the canonical file name of image slot k (1-based).
func OriginImageName(slot int) string {
	return fmt.Sprintf("%s%d_%s.png", imagePrefix, slot, originSuffix)
}

// VersionImageName is the file name of a divergent image for slot k.
func VersionImageName(slot int, ts time.Time) string {
	return fmt.Sprintf("%s%d_%s.png", imagePrefix, slot, FormatTimestamp(ts))
}

// DraftBackupName is the rotated name of a previous draft.
func DraftBackupName(ts time.Time) string {
	return draftBackupPrefix + FormatTimestamp(ts) + ".txt"
}

// ManifestBackupName is the rotated name of a previous manifest.
func ManifestBackupName(ts time.Time) string {
	return manifestBackupPrefix + FormatTimestamp(ts) + ".json"
}

// Classify reports what role name plays in a group directory.
func Classify(name string) Kind {
	switch {
	case name == DraftFile, name == ManifestFile:
		return KindCanonical
	case originGlob.Match(name):
		if _, ok := parseOrigin(name); ok {
			return KindCanonical
		}
	case draftBackupGlob.Match(name), manifestBackupGlob.Match(name):
		if _, ok := parseBackup(name); ok {
			return KindBackup
		}
	case versionGlob.Match(name):
		if _, _, ok := parseVersion(name); ok {
			return KindVersion
		}
	}
	return KindOther
}

// IsOriginImage reports whether name is a slot's canonical origin image.
func IsOriginImage(name string) bool {
	if !originGlob.Match(name) {
		return false
	}
	_, ok := parseOrigin(name)
	return ok
}

// ParseTimestamp extracts the stamp of a backup or version name.
func ParseTimestamp(name string) (time.Time, bool) {
	switch Classify(name) {
	case KindBackup:
		return parseBackup(name)
	case KindVersion:
		_, ts, ok := parseVersion(name)
		return ts, ok
	default:
		return time.Time{}, false
	}
}

// SlotOf returns the 1-based slot of an origin or version image name.
func SlotOf(name string) (int, bool) {
	if slot, ok := parseOrigin(name); ok {
		return slot, true
	}
	slot, _, ok := parseVersion(name)
	return slot, ok
}

func parseOrigin(name string) (int, bool) {
	slot, rest, ok := splitImageName(name)
	if !ok || rest != originSuffix {
		return 0, false
	}
	return slot, true
}

func parseVersion(name string) (int, time.Time, bool) {
	slot, rest, ok := splitImageName(name)
	if !ok || rest == originSuffix {
		return 0, time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, rest, time.Local)
	if err != nil {
		return 0, time.Time{}, false
	}
	return slot, ts, true
}

func parseBackup(name string) (time.Time, bool) {
	var stamp string
	switch {
	case strings.HasPrefix(name, draftBackupPrefix) && strings.HasSuffix(name, ".txt"):
		stamp = strings.TrimSuffix(strings.TrimPrefix(name, draftBackupPrefix), ".txt")
	case strings.HasPrefix(name, manifestBackupPrefix) && strings.HasSuffix(name, ".json"):
		stamp = strings.TrimSuffix(strings.TrimPrefix(name, manifestBackupPrefix), ".json")
	default:
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// splitImageName splits "img{k}_{rest}.png" into k and rest.
func splitImageName(name string) (int, string, bool) {
	if !strings.HasPrefix(name, imagePrefix) || !strings.HasSuffix(name, ".png") {
		return 0, "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, imagePrefix), ".png")
	digits, rest, found := strings.Cut(body, "_")
	if !found || digits == "" || rest == "" {
		return 0, "", false
	}
	slot, err := strconv.Atoi(digits)
	if err != nil || slot < 1 || strconv.Itoa(slot) != digits {
		return 0, "", false
	}
	return slot, rest, true
}
