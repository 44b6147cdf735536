package metadata

import (
	"strings"
	"time"
)

// exifDateLayout is the date/time format used by EXIF and exiftool.
const exifDateLayout = "2006:01:02 15:04:05"

// eventDateLayouts are the accepted input formats for event dates, most
// specific first.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseEventDate parses an ISO-8601-ish event date string. Returns nil for
// an empty or unparseable value.
func ParseEventDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	// EXIF-formatted values round-trip through here when reading embedded
	// tags back.
	if t, err := time.Parse(exifDateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006:01:02", s); err == nil {
		return &t
	}
	return nil
}

// FormatEXIFDate renders an event date for the EXIF date tags, truncated to
// the stated precision.
func FormatEXIFDate(t time.Time, precision DatePrecision) string {
	switch precision {
	case PrecisionYear:
		return t.Format("2006") + ":01:01 00:00:00"
	case PrecisionMonth:
		return t.Format("2006:01") + ":01 00:00:00"
	default:
		return t.Format(exifDateLayout)
	}
}

// FormatIPTCDate renders the date portion for IPTC DateCreated (YYYYMMDD).
func FormatIPTCDate(t time.Time) string {
	return t.Format("20060102")
}

// FormatIPTCTime renders the time portion for IPTC TimeCreated (HHMMSS).
func FormatIPTCTime(t time.Time) string {
	return t.Format("150405")
}
