// Package metadata reads and writes the logical metadata of media files.
//
// Logical fields (event date, subject, notes, people, location, review
// status) live in up to three technical containers: the XMP sidecar beside
// the file, and for images the embedded EXIF and IPTC stores. The sidecar,
// when present, is the sole source of truth on read. Writes always update
// the sidecar atomically; for images the embedded containers are updated as
// well, while videos are sidecar-only as a hard policy.
//
// Embedded tags are accessed through the narrow TagReader/TagWriter
// capability interfaces. The production implementation shells out to
// exiftool; tests use an in-memory double.
package metadata
