package library

import (
	"time"

	"photomedit/internal/mediatypes"
	"photomedit/internal/metadata"
)

// MediaItem identifies one media file inside a library.
type MediaItem struct {
	ID           string          `json:"id"`
	LibraryID    string          `json:"libraryId"`
	RelativePath string          `json:"relativePath"`
	Name         string          `json:"name"`
	Kind         mediatypes.Kind `json:"kind"`
	SizeBytes    int64           `json:"sizeBytes"`
	ModTime      time.Time       `json:"modTime"`

	// SidecarPath is the library-relative sidecar location, empty when no
	// sidecar exists.
	SidecarPath string `json:"sidecarPath,omitempty"`
}

// Folder is one directory in a library tree.
type Folder struct {
	Name         string `json:"name"`
	RelativePath string `json:"relativePath"`
	HasChildren  bool   `json:"hasChildren"`
}

// Entry pairs a media item with its discovered logical metadata.
type Entry struct {
	MediaItem
	Metadata metadata.LogicalMetadata `json:"metadata"`
}

// Filter narrows media listings by review status.
type Filter string

const (
	// FilterUnreviewed is the default working set: media not yet curated.
	FilterUnreviewed Filter = "unreviewed"
	// FilterReviewed lists only curated media.
	FilterReviewed Filter = "reviewed"
	// FilterAll lists everything.
	FilterAll Filter = "all"
)

// ParseFilter maps a request string to a Filter, defaulting to unreviewed.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterReviewed:
		return FilterReviewed
	case FilterAll:
		return FilterAll
	}
	return FilterUnreviewed
}

// Matches reports whether an entry passes the filter.
func (f Filter) Matches(e Entry) bool {
	switch f {
	case FilterReviewed:
		return e.Metadata.ReviewStatus == metadata.StatusReviewed
	case FilterAll:
		return true
	}
	return e.Metadata.ReviewStatus != metadata.StatusReviewed
}
