package filestore

import (
	"path"
	"strings"
	"time"
)

// DefaultFolder is the logical folder uploads land in when none is given.
const DefaultFolder = "journal"

// keyCharset keeps every rune of the sanitized filename inside [A-Za-z0-9.-].
func sanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// ObjectKey computes the storage key for an uploaded file:
//
//	<folder>/<ISO-date>/<id>_<sanitized-base>.<original-extension>
//
// The date partition uses the UTC day of `when`. A file without an extension
// gets no trailing dot.
func ObjectKey(folder, filename, id string, when time.Time) string {
	if folder == "" {
		folder = DefaultFolder
	}
	folder = strings.Trim(folder, "/")

	base := path.Base(filename)
	ext := path.Ext(base)
	base = strings.TrimSuffix(base, ext)
	ext = strings.TrimPrefix(ext, ".")

	name := id + "_" + sanitizeFilename(base)
	if ext != "" {
		name += "." + sanitizeFilename(ext)
	}

	return folder + "/" + when.UTC().Format("2006-01-02") + "/" + name
}
