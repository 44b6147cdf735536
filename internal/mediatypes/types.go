package mediatypes

// Kind represents the coarse classification of a media file.
type Kind string

const (
	// KindImage represents a supported still image (JPEG, TIFF or RAW).
	KindImage Kind = "image"
	// KindVideo represents a supported video container.
	KindVideo Kind = "video"
	// KindUnsupported represents a file the engine does not handle.
	KindUnsupported Kind = "unsupported"
)

// ImageExtensions maps file extensions to whether they are supported image
// formats. RAW container extensions cover the cameras the family archive
// actually holds.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".orf":  true,
	".nef":  true,
	".cr2":  true,
	".cr3":  true,
	".raf":  true,
	".arw":  true,
	".dng":  true,
	".rw2":  true,
}

// VideoExtensions maps file extensions to whether they are supported video
// containers.
var VideoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".m4v": true,
	".avi": true,
	".mkv": true,
}

// SidecarExtension is the extension of XMP sidecar files.
const SidecarExtension = ".xmp"

// KindForExtension returns the Kind for a lowercase extension including the
// leading dot (e.g. ".jpg"). Returns KindUnsupported if unrecognized.
func KindForExtension(ext string) Kind {
	if ImageExtensions[ext] {
		return KindImage
	}
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindUnsupported
}

// IsMediaExtension returns true if the extension belongs to a supported
// media format.
func IsMediaExtension(ext string) bool {
	return KindForExtension(ext) != KindUnsupported
}
