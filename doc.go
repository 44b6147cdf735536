// Package main provides the entry point for the PhotoMedit server.
//
// PhotoMedit is a self-hosted engine for curating family photo and video
// collections that live on plain filesystem trees, typically NAS mounts.
// It edits logical metadata (event dates, subjects, people, locations,
// review status) through XMP sidecars and embedded EXIF/IPTC/XMP tags,
// without ever moving or renaming the user's files.
//
// # Application Lifecycle
//
//  1. Configuration Loading: reads the YAML config (libraries, upload
//     root, limits) plus .env overrides, and validates every library root
//  2. Tag Tool Detection: locates exiftool on PATH; when absent, embedded
//     tag reads and writes are disabled and sidecars carry all edits
//  3. Engine Construction: wires the codec, scanner, navigator, ingestor
//     and packager around an immutable library registry
//  4. HTTP Server: registers the API routes and the Prometheus /metrics
//     endpoint, then serves until SIGINT/SIGTERM
//  5. Graceful Shutdown: drains in-flight requests with a 30s deadline
//
// # Storage Model
//
// There is no database. Every listing scans the filesystem lazily through
// a short-lived cache, so changes made by other tools appear within
// seconds. Metadata edits commit to an XMP sidecar first via an atomic
// temp-file-and-rename write; embedded tags in image files are updated
// afterwards so the metadata travels with the file. Rejected media moves
// into a .rejected directory that mirrors the original folder structure
// and is excluded from all listings.
//
// # Environment Variables
//
//   - PHOTOMEDIT_CONFIG: path to the YAML configuration file
//   - LOG_LEVEL: debug, info, warn or error (default info)
//   - DEBUG: set to 1/true as a shorthand for LOG_LEVEL=debug
//   - SCAN_WORKERS: overrides the metadata discovery worker count
package main
