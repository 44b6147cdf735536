package mediatypes

import (
	"testing"
)

// ftypHeader builds a minimal ISO-BMFF header with the given brand.
func ftypHeader(brand string) []byte {
	h := []byte{0x00, 0x00, 0x00, 0x18}
	h = append(h, []byte("ftyp")...)
	h = append(h, []byte(brand)...)
	h = append(h, 0x00, 0x00, 0x00, 0x00)
	return h
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		header  []byte
		kind    Kind
		subtype string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, KindImage, "jpeg"},
		{"TIFFLittleEndian", []byte{0x49, 0x49, 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00}, KindImage, "tiff"},
		{"TIFFBigEndian", []byte{0x4D, 0x4D, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08}, KindImage, "tiff"},
		{"CR2", []byte{0x49, 0x49, 0x2A, 0x00, 0x10, 0x00, 0x00, 0x00, 'C', 'R', 0x02, 0x00}, KindImage, "cr2"},
		{"ORF", []byte("IIRO\x08\x00\x00\x00"), KindImage, "orf"},
		{"RW2", []byte{0x49, 0x49, 0x55, 0x00, 0x18, 0x00, 0x00, 0x00}, KindImage, "rw2"},
		{"RAF", []byte("FUJIFILMCCD-RAW 0201"), KindImage, "raf"},
		{"CR3", ftypHeader("crx "), KindImage, "cr3"},
		{"MP4", ftypHeader("isom"), KindVideo, "mp4"},
		{"MP4v2", ftypHeader("mp42"), KindVideo, "mp4"},
		{"QuickTime", ftypHeader("qt  "), KindVideo, "mov"},
		{"M4V", ftypHeader("M4V "), KindVideo, "m4v"},
		{"AVI", []byte("RIFF\x24\x00\x00\x00AVI LIST"), KindVideo, "avi"},
		{"Matroska", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01, 0x00}, KindVideo, "mkv"},
		{"PNGUnsupported", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, KindUnsupported, ""},
		{"UnknownBrand", ftypHeader("heic"), KindUnsupported, ""},
		{"Text", []byte("hello world, definitely not media"), KindUnsupported, ""},
		{"OneByte", []byte{0xFF}, KindUnsupported, ""},
		{"Empty", nil, KindUnsupported, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.header)
			if got.Kind != tt.kind || got.Subtype != tt.subtype {
				t.Errorf("Classify() = {%s %q}, want {%s %q}", got.Kind, got.Subtype, tt.kind, tt.subtype)
			}
		})
	}
}

func TestClassifyIgnoresExtensionConventions(t *testing.T) {
	// A 1-byte file is unsupported no matter what the caller believes its
	// extension to be; Classify never sees a filename at all.
	if got := Classify([]byte{0x00}); got.Kind != KindUnsupported {
		t.Errorf("Classify(1 byte) = %s, want unsupported", got.Kind)
	}
}
