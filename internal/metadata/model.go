package metadata

import (
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DatePrecision states how much of an event date is actually known.
type DatePrecision string

const (
	// PrecisionYear means only the year is known.
	PrecisionYear DatePrecision = "YEAR"
	// PrecisionMonth means year and month are known.
	PrecisionMonth DatePrecision = "MONTH"
	// PrecisionDay means the full date is known.
	PrecisionDay DatePrecision = "DAY"
	// PrecisionUnknown means the precision was never recorded.
	PrecisionUnknown DatePrecision = "UNKNOWN"
)

// ReviewStatus is the curation workflow flag.
type ReviewStatus string

const (
	// StatusUnreviewed marks media that has not been curated yet.
	StatusUnreviewed ReviewStatus = "unreviewed"
	// StatusReviewed marks curated media.
	StatusReviewed ReviewStatus = "reviewed"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the WGS84 ranges.
func (c Coordinates) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Lon, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// LogicalMetadata is the editable, format-independent view of a media item.
// Every field has a defined default so a freshly discovered file always
// yields a complete value; optional fields use nil for "absent".
type LogicalMetadata struct {
	EventDate            *time.Time    `json:"eventDate,omitempty"`
	EventDateDisplay     string        `json:"eventDateDisplay"`
	EventDatePrecision   DatePrecision `json:"eventDatePrecision"`
	EventDateApproximate bool          `json:"eventDateApproximate"`
	Subject              string        `json:"subject"`
	Notes                string        `json:"notes"`
	People               []string      `json:"people"`
	LocationName         string        `json:"locationName"`
	LocationCoords       *Coordinates  `json:"locationCoords,omitempty"`
	ReviewStatus         ReviewStatus  `json:"reviewStatus"`
}

// Defaults returns a complete LogicalMetadata with every field at its
// defined default.
func Defaults() LogicalMetadata {
	return LogicalMetadata{
		EventDatePrecision: PrecisionUnknown,
		People:             []string{},
		ReviewStatus:       StatusUnreviewed,
	}
}

// Update is a partial metadata edit. Nil pointer fields (and a nil People
// slice) leave the corresponding stored value untouched in every container.
type Update struct {
	EventDate            *time.Time
	EventDateDisplay     *string
	EventDatePrecision   *DatePrecision
	EventDateApproximate *bool
	Subject              *string
	Notes                *string
	People               []string
	LocationName         *string
	LocationCoords       *Coordinates
	ReviewStatus         *ReviewStatus

	// MarkReviewed forces ReviewStatus to reviewed, winning over any
	// explicit ReviewStatus carried in the same update.
	MarkReviewed bool
}

// Validate checks the enum and range constraints of all supplied fields.
func (u Update) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.EventDatePrecision, validation.By(validPrecision)),
		validation.Field(&u.ReviewStatus, validation.By(validReviewStatus)),
		validation.Field(&u.LocationCoords),
	)
}

func validPrecision(value interface{}) error {
	p, _ := value.(*DatePrecision)
	if p == nil {
		return nil
	}
	switch *p {
	case PrecisionYear, PrecisionMonth, PrecisionDay, PrecisionUnknown:
		return nil
	}
	return validation.NewError("validation_precision", "must be YEAR, MONTH, DAY or UNKNOWN")
}

func validReviewStatus(value interface{}) error {
	s, _ := value.(*ReviewStatus)
	if s == nil {
		return nil
	}
	switch *s {
	case StatusUnreviewed, StatusReviewed:
		return nil
	}
	return validation.NewError("validation_review_status", "must be unreviewed or reviewed")
}

// apply merges an update onto a base value and returns the result.
func apply(base LogicalMetadata, u Update) LogicalMetadata {
	out := base
	if u.EventDate != nil {
		d := *u.EventDate
		out.EventDate = &d
	}
	if u.EventDateDisplay != nil {
		out.EventDateDisplay = *u.EventDateDisplay
	}
	if u.EventDatePrecision != nil {
		out.EventDatePrecision = *u.EventDatePrecision
	}
	if u.EventDateApproximate != nil {
		out.EventDateApproximate = *u.EventDateApproximate
	}
	if u.Subject != nil {
		out.Subject = *u.Subject
	}
	if u.Notes != nil {
		out.Notes = *u.Notes
	}
	if u.People != nil {
		out.People = append([]string(nil), u.People...)
	}
	if u.LocationName != nil {
		out.LocationName = *u.LocationName
	}
	if u.LocationCoords != nil {
		c := *u.LocationCoords
		out.LocationCoords = &c
	}
	if u.ReviewStatus != nil {
		out.ReviewStatus = *u.ReviewStatus
	}
	if u.MarkReviewed {
		out.ReviewStatus = StatusReviewed
	}
	return out
}

// SidecarPath returns the path of the XMP sidecar for a media file: same
// directory, same basename, ".xmp" extension.
func SidecarPath(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	return strings.TrimSuffix(mediaPath, ext) + ".xmp"
}

// splitLocationName parses "City, Country" style location names. A single
// part is treated as a city.
func splitLocationName(name string) (city, country string) {
	parts := strings.Split(name, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) >= 2:
		return parts[0], parts[len(parts)-1]
	case len(parts) == 1:
		return parts[0], ""
	}
	return "", ""
}
