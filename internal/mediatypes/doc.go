// Package mediatypes classifies media files for the PhotoMedit engine.
//
// Two mechanisms are provided: extension tables used as a cheap pre-filter
// when scanning library folders, and magic-byte signature sniffing
// (Classify) which is authoritative during upload ingestion. Sniffing never
// trusts the file extension or a declared content type.
package mediatypes
