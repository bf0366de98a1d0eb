// Package naming builds sanitized artifact names and on-disk paths.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// episodeMarker matches season/episode prefixes like S01 or E12 that media
// servers would otherwise parse as series numbering.
var episodeMarker = regexp.MustCompile(`([SE])(\d)`)

// TitleOverflow is the rune count beyond which a part name replaces the
// item title as the base name inside a hierarchy directory.
const TitleOverflow = 50

// Sanitize removes or replaces characters that are unsafe for filenames.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	name = illegalChars.ReplaceAllString(name, "_")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.Trim(name, " .")
}

// LegalTitle joins non-empty parts with sep and sanitizes the result.
// An empty sep joins with a single space.
func LegalTitle(sep string, parts ...string) string {
	if sep == "" {
		sep = " "
	}
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return Sanitize(strings.Join(kept, sep))
}

// EscapeEpisodeMarkers inserts a middle dot into S<digit>/E<digit> runs so
// library scanners do not misread titles as season/episode numbering.
func EscapeEpisodeMarkers(name string) string {
	return episodeMarker.ReplaceAllString(name, "$1·$2")
}

// ItemDir returns the per-variant directory for one downloaded item:
// a sanitized title plus the stable item id, unique per concurrent run.
func ItemDir(root, title, itemID string) string {
	base := LegalTitle(" ", EscapeEpisodeMarkers(title), "-", itemID)
	return filepath.Join(root, base)
}

// MediaPath returns the final playable artifact path for a part.
func MediaPath(dir, itemID, partName, suffix string) string {
	return filepath.Join(dir, LegalTitle(".", itemID, partName)+suffix)
}

// CoverPath returns the cover art path for an item.
func CoverPath(dir, itemID string) string {
	return filepath.Join(dir, itemID+"-fanart.jpg")
}

// SubtitlePath returns the subtitle artifact path for one language track.
func SubtitlePath(dir, itemID, partName, label string) string {
	return filepath.Join(dir, LegalTitle(".", itemID, partName, label, "zh")+".srt")
}

// CaptionPath returns the caption (danmaku) artifact path. The suffix
// depends on whether a convert hook produced ASS or raw protobuf.
func CaptionPath(dir, itemID, partName, suffix string) string {
	return filepath.Join(dir, LegalTitle(".", itemID, partName, "弹幕.zh")+suffix)
}

// MetadataPath returns the NFO document path for an item.
func MetadataPath(dir, itemID string) string {
	return filepath.Join(dir, itemID+".nfo")
}

// PersonDir returns the shared portrait directory for a creator, bucketed
// by the first rune of the name.
func PersonDir(peopleRoot, name string) string {
	name = Sanitize(name)
	bucket := name
	if r := []rune(name); len(r) > 0 {
		bucket = string(r[0])
	}
	return filepath.Join(peopleRoot, bucket, name)
}

// BaseName picks the name downstream artifacts derive from: the joined
// title+part name normally, the part name alone when the title overflows.
func BaseName(title, partName string, hierarchy bool) string {
	task := LegalTitle(" ", title, partName)
	if hierarchy && partName != "" && len([]rune(title)) > TitleOverflow {
		return LegalTitle(" ", partName)
	}
	return task
}

// ClipSuffix renders a time window as a filename fragment, e.g. "1m30s-2m0s".
func ClipSuffix(fromSec, toSec float64) string {
	f := func(s float64) string {
		m := int(s) / 60
		return fmt.Sprintf("%dm%ds", m, int(s)-m*60)
	}
	return f(fromSec) + "-" + f(toSec)
}
