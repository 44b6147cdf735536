package mediatypes

import (
	"bytes"
	"errors"
)

// SniffLen is the number of bytes Classify expects from the start of a
// stream. Shorter prefixes are allowed; signatures that need more bytes than
// were supplied simply do not match.
const SniffLen = 8192

// ErrUnsupportedFileType indicates a byte stream that matches no supported
// media signature.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Classification is the result of sniffing a byte-stream prefix.
type Classification struct {
	Kind    Kind
	Subtype string
}

// Classify matches the header bytes against known magic signatures. It is a
// pure function of the prefix: no filesystem access, no extension checks.
func Classify(header []byte) Classification {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return Classification{KindImage, "jpeg"}

	case len(header) >= 16 && bytes.HasPrefix(header, []byte("FUJIFILMCCD-RAW")):
		return Classification{KindImage, "raf"}

	// Olympus RAW: TIFF-like with "IIRO"/"IIRS" instead of the TIFF magic.
	case len(header) >= 4 && (bytes.HasPrefix(header, []byte("IIRO")) || bytes.HasPrefix(header, []byte("IIRS"))):
		return Classification{KindImage, "orf"}

	// Panasonic RAW: little-endian TIFF variant with magic 0x55.
	case len(header) >= 4 && header[0] == 0x49 && header[1] == 0x49 && header[2] == 0x55 && header[3] == 0x00:
		return Classification{KindImage, "rw2"}

	// Canon CR2: TIFF header plus "CR" marker at offset 8.
	case len(header) >= 10 && header[0] == 0x49 && header[1] == 0x49 && header[2] == 0x2A && header[3] == 0x00 &&
		header[8] == 'C' && header[9] == 'R':
		return Classification{KindImage, "cr2"}

	// Plain TIFF, either byte order. Covers .tif/.tiff and the TIFF-based
	// RAW containers (NEF, ARW, DNG) which are indistinguishable at the
	// signature level.
	case len(header) >= 4 && ((header[0] == 0x49 && header[1] == 0x49 && header[2] == 0x2A && header[3] == 0x00) ||
		(header[0] == 0x4D && header[1] == 0x4D && header[2] == 0x00 && header[3] == 0x2A)):
		return Classification{KindImage, "tiff"}

	case len(header) >= 12 && bytes.Equal(header[4:8], []byte("ftyp")):
		return classifyISOBMFF(string(header[8:12]))

	// AVI: RIFF container with "AVI " form type.
	case len(header) >= 12 && bytes.HasPrefix(header, []byte("RIFF")) && bytes.Equal(header[8:12], []byte("AVI ")):
		return Classification{KindVideo, "avi"}

	// Matroska EBML header.
	case len(header) >= 4 && header[0] == 0x1A && header[1] == 0x45 && header[2] == 0xDF && header[3] == 0xA3:
		return Classification{KindVideo, "mkv"}
	}

	return Classification{KindUnsupported, ""}
}

// classifyISOBMFF maps an ISO base media file format brand to a
// classification. Canon CR3 shares the container with MP4/QuickTime video.
func classifyISOBMFF(brand string) Classification {
	switch brand {
	case "crx ":
		return Classification{KindImage, "cr3"}
	case "qt  ":
		return Classification{KindVideo, "mov"}
	case "M4V ", "M4VH", "M4VP":
		return Classification{KindVideo, "m4v"}
	case "isom", "iso2", "iso4", "iso5", "iso6", "mp41", "mp42", "avc1", "dash":
		return Classification{KindVideo, "mp4"}
	}
	return Classification{KindUnsupported, ""}
}
