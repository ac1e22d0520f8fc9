// Package artifact defines the naming scheme for everything the service
// writes to disk. Uploads, previews, full-resolution outputs and archives
// all embed the owning session ID so they can be found and swept by prefix.
package artifact

import (
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the upload timestamp format. It contains no
// underscores, which keeps stored upload names splittable into exactly
// three tokens: session ID, timestamp, original filename.
const TimestampLayout = "20060102T150405"

var filenameUnsafe = regexp.MustCompile(`[^\p{L}\p{N} ._-]`)

// CleanFilename strips characters that are unsafe in filenames, replaces
// spaces with underscores and bounds the length at 100 runes by keeping
// the first and last 50.
func CleanFilename(name string) string {
	name = filenameUnsafe.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, " ", "_")
	if r := []rune(name); len(r) > 100 {
		name = string(r[:50]) + "_" + string(r[len(r)-50:])
	}
	return name
}

// UploadName builds the stored name for an uploaded original.
func UploadName(sessionID string, t time.Time, original string) string {
	return sessionID + "_" + t.Format(TimestampLayout) + "_" + CleanFilename(original)
}

// OriginalFilename recovers the cleaned original filename from a stored
// upload name by stripping the session ID and timestamp tokens. Names that
// do not match the stored layout are returned unchanged.
func OriginalFilename(storedName string) string {
	parts := strings.SplitN(storedName, "_", 3)
	if len(parts) < 3 || parts[2] == "" {
		return storedName
	}
	return parts[2]
}

// PreviewName is the filename of the preview JPEG for one session and ratio.
func PreviewName(sessionID, ratio string) string {
	return sessionID + "_" + ratio + "_preview.jpg"
}

// OutputName is the filename of the full-resolution JPEG for one session
// and ratio. Re-rendering a ratio overwrites this name, so each session
// holds at most one print file per ratio.
func OutputName(sessionID, ratio string) string {
	return sessionID + "_" + ratio + "_adjusted.jpg"
}

// ZipName is the on-disk filename of a session's print-ready archive.
func ZipName(sessionID string) string {
	return sessionID + "_printready.zip"
}

// ZipDownloadName is the filename offered to the browser for a session's
// archive, derived from the original upload name when one is known.
func ZipDownloadName(originalName, sessionID string) string {
	if base := baseName(originalName); base != "" {
		return base + "_printready.zip"
	}
	id := sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "aspect_ratios_" + id + ".zip"
}

// ArchiveEntryName is the filename of one ratio's JPEG inside the archive,
// derived from the original upload name.
func ArchiveEntryName(originalName, ratio string) string {
	base := baseName(originalName)
	if base == "" {
		base = "image"
	}
	return base + "_" + ratio + ".jpg"
}

// FindOriginalIn returns the first name owned by the session that is not a
// generated artifact. Callers pass directory listings in whatever order
// the filesystem reports; a session only ever stores one original.
func FindOriginalIn(names []string, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	prefix := sessionID + "_"
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, "_preview.jpg") ||
			strings.HasSuffix(name, "_adjusted.jpg") ||
			strings.HasSuffix(name, "_printready.zip") {
			continue
		}
		return name, true
	}
	return "", false
}

func baseName(name string) string {
	name = CleanFilename(name)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
