package pathsafe

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxFilenameLength   = 255
	maxUploadNameLength = 100
)

var uploadNameUnsafe = regexp.MustCompile(`[^a-z0-9_-]`)

// SanitizeFilename strips directory components and filesystem-unsafe
// characters from a client-supplied filename. Returns "" if nothing safe
// remains.
func SanitizeFilename(name string) string {
	// Strip directory components from both separator conventions.
	name = name[strings.LastIndexByte(name, '/')+1:]
	name = name[strings.LastIndexByte(name, '\\')+1:]

	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', 0, ':', '*', '?', '"', '<', '>', '|':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	sanitized := strings.Trim(b.String(), ". ")

	if len(sanitized) > maxFilenameLength {
		ext := filepath.Ext(sanitized)
		base := sanitized[:len(sanitized)-len(ext)]
		keep := maxFilenameLength - len(ext)
		if keep < 0 {
			keep = 0
		}
		if len(base) > keep {
			base = base[:keep]
		}
		sanitized = base + ext
	}
	return sanitized
}

// SanitizeUploadName converts an upload batch name into a directory-safe
// token: lowercase, spaces to hyphens, only [a-z0-9_-] kept, bounded length.
// Falls back to "upload" if nothing safe remains.
func SanitizeUploadName(name string) string {
	sanitized := strings.ToLower(strings.TrimSpace(name))
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	sanitized = uploadNameUnsafe.ReplaceAllString(sanitized, "")
	sanitized = strings.Trim(sanitized, "-_")
	if len(sanitized) > maxUploadNameLength {
		sanitized = sanitized[:maxUploadNameLength]
	}
	if sanitized == "" {
		return "upload"
	}
	return sanitized
}
