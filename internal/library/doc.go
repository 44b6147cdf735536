// Package library scans media library trees on demand. There is no
// background indexer and no database: every listing reads the filesystem
// (through a short-lived scan cache) so external changes to the tree are
// picked up within the cache max-age. Folder and media listings are
// deterministic, ordered case-insensitively, and never descend into the
// .rejected holding area.
package library
