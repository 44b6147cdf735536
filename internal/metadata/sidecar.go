package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XMP namespace URIs used in sidecar files. pmeditNS carries the fields
// that have no standard XMP home.
const (
	dcNS        = "http://purl.org/dc/elements/1.1/"
	exifNS      = "http://ns.adobe.com/exif/1.0/"
	photoshopNS = "http://ns.adobe.com/photoshop/1.0/"
	pmeditNS    = "http://photomedit.org/ns/1.0/"
)

// sidecarDateLayout is how event dates are stored inside sidecars.
const sidecarDateLayout = "2006-01-02T15:04:05"

// parseSidecar reads an XMP sidecar into a complete LogicalMetadata. The
// parser is lenient: it walks the element tree by local name so sidecars
// written by other tools (different prefixes, extra properties) still
// parse. Unknown properties are ignored.
func parseSidecar(r io.Reader) (LogicalMetadata, error) {
	meta := Defaults()

	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	// property is the local name of the nearest enclosing XMP property;
	// rdf structural elements (Alt, Bag, Seq, li) do not reset it.
	var property string
	var text strings.Builder

	flush := func() {
		value := strings.TrimSpace(text.String())
		text.Reset()
		if property == "" || value == "" {
			return
		}
		applySidecarProperty(&meta, property, value)
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return meta, fmt.Errorf("parsing sidecar: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Alt", "Bag", "Seq", "li":
			default:
				property = t.Name.Local
			}
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			flush()
			switch t.Name.Local {
			case "Alt", "Bag", "Seq", "li":
			default:
				property = ""
			}
		}
	}
	return meta, nil
}

func applySidecarProperty(meta *LogicalMetadata, name, value string) {
	switch name {
	case "DateTimeOriginal":
		meta.EventDate = ParseEventDate(value)
	case "title":
		meta.Subject = value
	case "description":
		meta.Notes = value
	case "subject":
		meta.People = append(meta.People, value)
	case "City":
		meta.LocationName = composeLocationName(value, locationCountry(meta.LocationName))
	case "Country":
		meta.LocationName = composeLocationName(locationCity(meta.LocationName), value)
	case "GPSLatitude":
		if lat, ok := parseXMPCoordinate(value); ok {
			if meta.LocationCoords == nil {
				meta.LocationCoords = &Coordinates{}
			}
			meta.LocationCoords.Lat = lat
		}
	case "GPSLongitude":
		if lon, ok := parseXMPCoordinate(value); ok {
			if meta.LocationCoords == nil {
				meta.LocationCoords = &Coordinates{}
			}
			meta.LocationCoords.Lon = lon
		}
	case "EventDateDisplay":
		meta.EventDateDisplay = value
	case "EventDatePrecision":
		switch p := DatePrecision(value); p {
		case PrecisionYear, PrecisionMonth, PrecisionDay, PrecisionUnknown:
			meta.EventDatePrecision = p
		}
	case "EventDateApproximate":
		meta.EventDateApproximate = strings.EqualFold(value, "true")
	case "ReviewStatus":
		if ReviewStatus(value) == StatusReviewed {
			meta.ReviewStatus = StatusReviewed
		}
	}
}

func locationCity(name string) string {
	city, _ := splitLocationName(name)
	return city
}

func locationCountry(name string) string {
	_, country := splitLocationName(name)
	return country
}

// parseXMPCoordinate accepts plain decimal values and the XMP
// "DD,MM.MMMMH" form with a trailing hemisphere letter.
func parseXMPCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}

	sign := 1.0
	switch s[len(s)-1] {
	case 'S', 's', 'W', 'w':
		sign = -1.0
		s = s[:len(s)-1]
	case 'N', 'n', 'E', 'e':
		s = s[:len(s)-1]
	}
	deg, min, found := strings.Cut(s, ",")
	if !found {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return sign * f, true
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(deg), 64)
	if err != nil {
		return 0, false
	}
	m, err := strconv.ParseFloat(strings.TrimSpace(min), 64)
	if err != nil {
		return 0, false
	}
	return sign * (d + m/60.0), true
}

// renderSidecar writes a complete LogicalMetadata as a canonical XMP
// packet. Fields at their defaults are written out too, so a sidecar is
// always a full statement of the item's metadata.
func renderSidecar(w io.Writer, meta LogicalMetadata) error {
	var b bytes.Buffer

	b.WriteString("<?xpacket begin=\"\uFEFF\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	b.WriteString("<x:xmpmeta xmlns:x=\"adobe:ns:meta/\">\n")
	b.WriteString(" <rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\">\n")
	b.WriteString("  <rdf:Description rdf:about=\"\"\n")
	fmt.Fprintf(&b, "    xmlns:dc=%q\n", dcNS)
	fmt.Fprintf(&b, "    xmlns:exif=%q\n", exifNS)
	fmt.Fprintf(&b, "    xmlns:photoshop=%q\n", photoshopNS)
	fmt.Fprintf(&b, "    xmlns:pmedit=%q>\n", pmeditNS)

	if meta.EventDate != nil {
		writeSimple(&b, "exif:DateTimeOriginal", meta.EventDate.Format(sidecarDateLayout))
	}
	if meta.LocationCoords != nil {
		writeSimple(&b, "exif:GPSLatitude", strconv.FormatFloat(meta.LocationCoords.Lat, 'f', -1, 64))
		writeSimple(&b, "exif:GPSLongitude", strconv.FormatFloat(meta.LocationCoords.Lon, 'f', -1, 64))
	}
	writeAlt(&b, "dc:title", meta.Subject)
	writeAlt(&b, "dc:description", meta.Notes)
	writeBag(&b, "dc:subject", meta.People)

	city, country := splitLocationName(meta.LocationName)
	if city != "" {
		writeSimple(&b, "photoshop:City", city)
	}
	if country != "" {
		writeSimple(&b, "photoshop:Country", country)
	}

	if meta.EventDateDisplay != "" {
		writeSimple(&b, "pmedit:EventDateDisplay", meta.EventDateDisplay)
	}
	writeSimple(&b, "pmedit:EventDatePrecision", string(meta.EventDatePrecision))
	writeSimple(&b, "pmedit:EventDateApproximate", strconv.FormatBool(meta.EventDateApproximate))
	writeSimple(&b, "pmedit:ReviewStatus", string(meta.ReviewStatus))

	b.WriteString("  </rdf:Description>\n")
	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString(`<?xpacket end="w"?>` + "\n")

	_, err := w.Write(b.Bytes())
	return err
}

func writeSimple(b *bytes.Buffer, name, value string) {
	fmt.Fprintf(b, "   <%s>%s</%s>\n", name, escapeXML(value), name)
}

func writeAlt(b *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "   <%s>\n    <rdf:Alt>\n     <rdf:li xml:lang=\"x-default\">%s</rdf:li>\n    </rdf:Alt>\n   </%s>\n",
		name, escapeXML(value), name)
}

func writeBag(b *bytes.Buffer, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "   <%s>\n    <rdf:Bag>\n", name)
	for _, v := range values {
		fmt.Fprintf(b, "     <rdf:li>%s</rdf:li>\n", escapeXML(v))
	}
	fmt.Fprintf(b, "    </rdf:Bag>\n   </%s>\n", name)
}

func escapeXML(s string) string {
	var b bytes.Buffer
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
