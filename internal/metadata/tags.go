package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Tags is a flat tag map as produced by the external tag tool, keyed by
// group-qualified tag name (e.g. "EXIF:DateTimeOriginal"). Values are
// strings, numbers or arrays depending on the tag.
type Tags map[string]interface{}

// TagReader reads the embedded tags of a media file.
type TagReader interface {
	ReadTags(path string) (Tags, error)
}

// TagWriter writes embedded tags to a media file. Values are pre-formatted
// strings; list-valued tags are comma-joined.
type TagWriter interface {
	WriteTags(path string, tags map[string]string) error
}

// Group-qualified tag names as read from the tool's JSON output (group
// family 0).
const (
	readXMPDate       = "XMP:DateTimeOriginal"
	readEXIFDate      = "EXIF:DateTimeOriginal"
	readEXIFCreate    = "EXIF:CreateDate"
	readEXIFModify    = "EXIF:ModifyDate"
	readIPTCDate      = "IPTC:DateCreated"
	readXMPTitle      = "XMP:Title"
	readIPTCObject    = "IPTC:ObjectName"
	readEXIFXPTitle   = "EXIF:XPTitle"
	readXMPDesc       = "XMP:Description"
	readIPTCCaption   = "IPTC:Caption-Abstract"
	readEXIFImageDesc = "EXIF:ImageDescription"
	readEXIFXPComment = "EXIF:XPComment"
	readXMPSubject    = "XMP:Subject"
	readIPTCKeywords  = "IPTC:Keywords"
	readXMPCity       = "XMP:City"
	readXMPCountry    = "XMP:Country"
	readIPTCCity      = "IPTC:City"
	readIPTCCountry   = "IPTC:Country-PrimaryLocationName"
	readGPSLat        = "EXIF:GPSLatitude"
	readGPSLon        = "EXIF:GPSLongitude"
	readGPSLatRef     = "EXIF:GPSLatitudeRef"
	readGPSLonRef     = "EXIF:GPSLongitudeRef"
	readCompositeLat  = "Composite:GPSLatitude"
	readCompositeLon  = "Composite:GPSLongitude"

	readDateDisplay  = "XMP:PhotoMeditEventDateDisplay"
	readPrecision    = "XMP:PhotoMeditEventDatePrecision"
	readApproximate  = "XMP:PhotoMeditEventDateApproximate"
	readReviewStatus = "XMP:PhotoMeditReviewStatus"
)

// Namespace-qualified tag names used when writing through the tool.
const (
	writeXMPDate      = "XMP-exif:DateTimeOriginal"
	writeEXIFDate     = "EXIF:DateTimeOriginal"
	writeEXIFCreate   = "EXIF:CreateDate"
	writeEXIFModify   = "EXIF:ModifyDate"
	writeIPTCDate     = "IPTC:DateCreated"
	writeIPTCTime     = "IPTC:TimeCreated"
	writeXMPTitle     = "XMP-dc:Title"
	writeIPTCObject   = "IPTC:ObjectName"
	writeEXIFXPTitle  = "EXIF:XPTitle"
	writeXMPDesc      = "XMP-dc:Description"
	writeIPTCCaption  = "IPTC:Caption-Abstract"
	writeEXIFDesc     = "EXIF:ImageDescription"
	writeEXIFXPCom    = "EXIF:XPComment"
	writeXMPSubject   = "XMP-dc:Subject"
	writeIPTCKeywords = "IPTC:Keywords"
	writeXMPCity      = "XMP-photoshop:City"
	writeXMPCountry   = "XMP-photoshop:Country"
	writeIPTCCity     = "IPTC:City"
	writeIPTCCountry  = "IPTC:Country-PrimaryLocationName"
	writeGPSLat       = "EXIF:GPSLatitude"
	writeGPSLon       = "EXIF:GPSLongitude"
	writeGPSLatRef    = "EXIF:GPSLatitudeRef"
	writeGPSLonRef    = "EXIF:GPSLongitudeRef"

	writeDateDisplay  = "XMP:PhotoMeditEventDateDisplay"
	writePrecision    = "XMP:PhotoMeditEventDatePrecision"
	writeApproximate  = "XMP:PhotoMeditEventDateApproximate"
	writeReviewStatus = "XMP:PhotoMeditReviewStatus"
)

// str returns the string value of a tag, converting scalars as needed.
func (t Tags) str(key string) string {
	v, ok := t[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// strList returns a list-valued tag; scalar values become one-element lists.
func (t Tags) strList(key string) []string {
	v, ok := t[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := fmt.Sprintf("%v", item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// float returns a numeric tag value, accepting both JSON numbers and
// numeric strings.
func (t Tags) float(key string) (float64, bool) {
	v, ok := t[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// firstStr returns the first non-empty value among the given keys.
func (t Tags) firstStr(keys ...string) string {
	for _, key := range keys {
		if s := t.str(key); s != "" {
			return s
		}
	}
	return ""
}

// fromEmbedded maps embedded container tags to a complete LogicalMetadata,
// reading each logical field from the first container that holds a value.
func fromEmbedded(tags Tags) LogicalMetadata {
	meta := Defaults()

	if raw := tags.firstStr(readXMPDate, readEXIFDate, readEXIFCreate, readEXIFModify, readIPTCDate); raw != "" {
		meta.EventDate = ParseEventDate(raw)
	}

	meta.EventDateDisplay = tags.str(readDateDisplay)
	if p := DatePrecision(tags.str(readPrecision)); p != "" {
		meta.EventDatePrecision = p
	}
	meta.EventDateApproximate = strings.EqualFold(tags.str(readApproximate), "true")

	meta.Subject = tags.firstStr(readXMPTitle, readIPTCObject, readEXIFXPTitle)
	meta.Notes = tags.firstStr(readXMPDesc, readIPTCCaption, readEXIFImageDesc, readEXIFXPComment)

	if people := tags.strList(readXMPSubject); len(people) > 0 {
		meta.People = people
	} else if people := tags.strList(readIPTCKeywords); len(people) > 0 {
		meta.People = people
	}

	meta.LocationName = composeLocationName(
		tags.firstStr(readXMPCity, readIPTCCity),
		tags.firstStr(readXMPCountry, readIPTCCountry),
	)

	meta.LocationCoords = coordsFromTags(tags)

	if s := ReviewStatus(tags.str(readReviewStatus)); s == StatusReviewed {
		meta.ReviewStatus = StatusReviewed
	}

	return meta
}

func composeLocationName(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	case country != "":
		return country
	}
	return ""
}

// coordsFromTags reads GPS coordinates, preferring the tool's composite
// signed values and falling back to raw EXIF values with hemisphere refs.
func coordsFromTags(tags Tags) *Coordinates {
	if lat, ok := tags.float(readCompositeLat); ok {
		if lon, ok := tags.float(readCompositeLon); ok {
			return &Coordinates{Lat: lat, Lon: lon}
		}
	}

	lat, latOK := tags.float(readGPSLat)
	lon, lonOK := tags.float(readGPSLon)
	if !latOK || !lonOK {
		return nil
	}
	if strings.HasPrefix(strings.ToUpper(tags.str(readGPSLatRef)), "S") && lat > 0 {
		lat = -lat
	}
	if strings.HasPrefix(strings.ToUpper(tags.str(readGPSLonRef)), "W") && lon > 0 {
		lon = -lon
	}
	return &Coordinates{Lat: lat, Lon: lon}
}

// embeddedTags builds the tag map for an embedded write. Only fields
// present in the update are included, so untouched fields stay untouched in
// the embedded stores. Callers never invoke this for videos.
func embeddedTags(u Update, merged LogicalMetadata) map[string]string {
	tags := make(map[string]string)

	if u.EventDate != nil {
		formatted := FormatEXIFDate(*u.EventDate, merged.EventDatePrecision)
		tags[writeXMPDate] = formatted
		tags[writeEXIFDate] = formatted
		tags[writeEXIFCreate] = formatted
		tags[writeEXIFModify] = formatted
		tags[writeIPTCDate] = FormatIPTCDate(*u.EventDate)
		tags[writeIPTCTime] = FormatIPTCTime(*u.EventDate)
	}
	if u.EventDateDisplay != nil {
		tags[writeDateDisplay] = *u.EventDateDisplay
	}
	if u.EventDatePrecision != nil {
		tags[writePrecision] = string(*u.EventDatePrecision)
	}
	if u.EventDateApproximate != nil {
		tags[writeApproximate] = strconv.FormatBool(*u.EventDateApproximate)
	}

	if u.Subject != nil {
		tags[writeXMPTitle] = *u.Subject
		tags[writeIPTCObject] = *u.Subject
		tags[writeEXIFXPTitle] = *u.Subject
	}
	if u.Notes != nil {
		tags[writeXMPDesc] = *u.Notes
		tags[writeIPTCCaption] = *u.Notes
		tags[writeEXIFDesc] = *u.Notes
		tags[writeEXIFXPCom] = *u.Notes
	}
	if u.People != nil {
		joined := strings.Join(u.People, ",")
		tags[writeXMPSubject] = joined
		tags[writeIPTCKeywords] = joined
	}

	if u.LocationName != nil {
		city, country := splitLocationName(*u.LocationName)
		if city != "" {
			tags[writeXMPCity] = city
			tags[writeIPTCCity] = city
		}
		if country != "" {
			tags[writeXMPCountry] = country
			tags[writeIPTCCountry] = country
		}
	}
	if u.LocationCoords != nil {
		lat, lon := u.LocationCoords.Lat, u.LocationCoords.Lon
		tags[writeGPSLat] = strconv.FormatFloat(absFloat(lat), 'f', -1, 64)
		tags[writeGPSLon] = strconv.FormatFloat(absFloat(lon), 'f', -1, 64)
		if lat >= 0 {
			tags[writeGPSLatRef] = "N"
		} else {
			tags[writeGPSLatRef] = "S"
		}
		if lon >= 0 {
			tags[writeGPSLonRef] = "E"
		} else {
			tags[writeGPSLonRef] = "W"
		}
	}

	if u.MarkReviewed {
		tags[writeReviewStatus] = string(StatusReviewed)
	} else if u.ReviewStatus != nil {
		tags[writeReviewStatus] = string(*u.ReviewStatus)
	}

	return tags
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
