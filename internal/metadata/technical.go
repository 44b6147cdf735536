package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"photomedit/internal/logging"
	"photomedit/internal/mediatypes"
)

// TechnicalMetadata is the read-only camera and file information shown
// alongside the editable fields. It is never written back.
type TechnicalMetadata struct {
	CameraMake    string       `json:"cameraMake,omitempty"`
	CameraModel   string       `json:"cameraModel,omitempty"`
	Width         int          `json:"width,omitempty"`
	Height        int          `json:"height,omitempty"`
	ISO           int          `json:"iso,omitempty"`
	ExposureTime  string       `json:"exposureTime,omitempty"`
	FNumber       float64      `json:"fNumber,omitempty"`
	FocalLength   float64      `json:"focalLength,omitempty"`
	DurationSecs  float64      `json:"durationSecs,omitempty"`
	VideoCodec    string       `json:"videoCodec,omitempty"`
	FrameRate     float64      `json:"frameRate,omitempty"`
	FileSizeBytes int64        `json:"fileSizeBytes"`
	GPS           *Coordinates `json:"gps,omitempty"`
}

// ReadTechnical extracts technical metadata. JPEG and TIFF images are
// decoded in-process; everything else goes through the external tag tool
// when one is available. Extraction failures degrade to file size only.
func (c *Codec) ReadTechnical(path string, kind mediatypes.Kind) TechnicalMetadata {
	tech := TechnicalMetadata{}
	if info, err := os.Stat(path); err == nil {
		tech.FileSizeBytes = info.Size()
	}

	if kind == mediatypes.KindImage && hasNativeEXIF(path) {
		if readNativeEXIF(path, &tech) {
			return tech
		}
	}

	if c.reader == nil {
		return tech
	}
	tags, err := c.reader.ReadTags(path)
	if err != nil {
		logging.Debug("technical read for %s: %v", path, err)
		return tech
	}
	fillFromTags(tags, &tech)
	return tech
}

// hasNativeEXIF reports whether the in-process EXIF decoder understands
// the file format.
func hasNativeEXIF(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

func readNativeEXIF(path string, tech *TechnicalMetadata) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		logging.Debug("EXIF decode for %s: %v", path, err)
		return false
	}

	tech.CameraMake = exifString(x, exif.Make)
	tech.CameraModel = exifString(x, exif.Model)
	tech.Width = exifInt(x, exif.PixelXDimension)
	tech.Height = exifInt(x, exif.PixelYDimension)
	tech.ISO = exifInt(x, exif.ISOSpeedRatings)
	tech.FNumber = exifRatio(x, exif.FNumber)
	tech.FocalLength = exifRatio(x, exif.FocalLength)
	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			tech.ExposureTime = fmt.Sprintf("%d/%d", num, den)
		}
	}
	if lat, lon, err := x.LatLong(); err == nil {
		tech.GPS = &Coordinates{Lat: lat, Lon: lon}
	}
	return true
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func exifInt(x *exif.Exif, field exif.FieldName) int {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

func exifRatio(x *exif.Exif, field exif.FieldName) float64 {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// fillFromTags maps tool output onto the technical fields. Works for both
// images the native decoder cannot handle (RAW formats) and videos.
func fillFromTags(tags Tags, tech *TechnicalMetadata) {
	tech.CameraMake = tags.firstStr("EXIF:Make", "QuickTime:Make")
	tech.CameraModel = tags.firstStr("EXIF:Model", "QuickTime:Model")
	if w, ok := tags.float("File:ImageWidth"); ok {
		tech.Width = int(w)
	} else if w, ok := tags.float("EXIF:ImageWidth"); ok {
		tech.Width = int(w)
	}
	if h, ok := tags.float("File:ImageHeight"); ok {
		tech.Height = int(h)
	} else if h, ok := tags.float("EXIF:ImageHeight"); ok {
		tech.Height = int(h)
	}
	if iso, ok := tags.float("EXIF:ISO"); ok {
		tech.ISO = int(iso)
	}
	tech.ExposureTime = tags.str("EXIF:ExposureTime")
	if f, ok := tags.float("EXIF:FNumber"); ok {
		tech.FNumber = f
	}
	if f, ok := tags.float("EXIF:FocalLength"); ok {
		tech.FocalLength = f
	}
	if d, ok := tags.float("QuickTime:Duration"); ok {
		tech.DurationSecs = d
	} else if d, ok := tags.float("Matroska:Duration"); ok {
		tech.DurationSecs = d
	}
	tech.VideoCodec = tags.firstStr("QuickTime:CompressorID", "Matroska:VideoCodecID", "RIFF:VideoCodec")
	if r, ok := tags.float("QuickTime:VideoFrameRate"); ok {
		tech.FrameRate = r
	} else if r, ok := tags.float("RIFF:FrameRate"); ok {
		tech.FrameRate = r
	}
	if tech.GPS == nil {
		tech.GPS = coordsFromTags(tags)
	}
}
