// Package export packages library media into zip archives for download.
// Archives preserve library-relative paths, carry each included file's
// sidecar beside it, and open with a contents.txt manifest summarizing the
// metadata of everything inside.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"photomedit/internal/config"
	"photomedit/internal/library"
	"photomedit/internal/logging"
	"photomedit/internal/metadata"
	"photomedit/internal/metrics"
)

// Scope selects which media an archive includes.
type Scope string

const (
	// ScopeAll exports every media file in range.
	ScopeAll Scope = "all"
	// ScopeReviewed exports only curated media.
	ScopeReviewed Scope = "reviewed"
)

// manifestName is the archive-root manifest file.
const manifestName = "contents.txt"

// Summary reports what an archive contains.
type Summary struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"totalBytes"`
}

// Packager builds export archives from live library scans.
type Packager struct {
	registry *config.Registry
	scanner  *library.Scanner
}

// NewPackager wires a packager.
func NewPackager(registry *config.Registry, scanner *library.Scanner) *Packager {
	return &Packager{registry: registry, scanner: scanner}
}

// BuildArchive streams a zip of the selected media to w. folderRel limits
// the export to one folder subtree; "" exports the whole library. The
// configured download limits are checked against the full candidate set
// before any archive bytes are written; a violation returns
// ErrLimitExceeded with nothing written to w.
func (p *Packager) BuildArchive(libraryID string, scope Scope, folderRel string, w io.Writer) (Summary, error) {
	lib, ok := p.registry.Library(libraryID)
	if !ok {
		metrics.ExportArchivesTotal.WithLabelValues("error").Inc()
		return Summary{}, fmt.Errorf("%w: %s", library.ErrUnknownLibrary, libraryID)
	}

	entries, err := p.collect(libraryID, folderRel, scope)
	if err != nil {
		metrics.ExportArchivesTotal.WithLabelValues("error").Inc()
		return Summary{}, err
	}

	limits := p.registry.Limits()
	summary := Summary{Files: len(entries)}
	for _, e := range entries {
		summary.TotalBytes += e.SizeBytes
	}
	if summary.Files > limits.MaxDownloadFiles {
		metrics.ExportArchivesTotal.WithLabelValues("rejected").Inc()
		return Summary{}, fmt.Errorf("%w: %d files, limit %d",
			config.ErrLimitExceeded, summary.Files, limits.MaxDownloadFiles)
	}
	if summary.TotalBytes > limits.MaxDownloadBytes {
		metrics.ExportArchivesTotal.WithLabelValues("rejected").Inc()
		return Summary{}, fmt.Errorf("%w: %d bytes, limit %d",
			config.ErrLimitExceeded, summary.TotalBytes, limits.MaxDownloadBytes)
	}

	if err := p.writeArchive(lib, entries, w); err != nil {
		metrics.ExportArchivesTotal.WithLabelValues("error").Inc()
		return Summary{}, err
	}

	logging.Info("export from %s: %d files, %d bytes", libraryID, summary.Files, summary.TotalBytes)
	metrics.ExportArchivesTotal.WithLabelValues("success").Inc()
	metrics.ExportFilesTotal.Add(float64(summary.Files))
	return summary, nil
}

// collect walks the folder subtree depth-first and returns the entries in
// scope, in stable scan order.
func (p *Packager) collect(libraryID, folderRel string, scope Scope) ([]library.Entry, error) {
	entries, err := p.scanner.ListAll(libraryID, folderRel)
	if err != nil {
		return nil, err
	}
	if scope == ScopeReviewed {
		kept := entries[:0]
		for _, e := range entries {
			if e.Metadata.ReviewStatus == metadata.StatusReviewed {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	folders, err := p.scanner.ListFolders(libraryID, folderRel)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		sub, err := p.collect(libraryID, f.RelativePath, scope)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

func (p *Packager) writeArchive(lib config.Library, entries []library.Entry, w io.Writer) error {
	zw := zip.NewWriter(w)

	manifest, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	if err := writeManifest(manifest, entries); err != nil {
		return err
	}

	for _, e := range entries {
		mediaPath := filepath.Join(lib.RootPath, e.RelativePath)
		if err := addFile(zw, e.RelativePath, mediaPath, zip.Store); err != nil {
			return err
		}
		sidecar := metadata.SidecarPath(mediaPath)
		if _, err := os.Stat(sidecar); err == nil {
			if err := addFile(zw, metadata.SidecarPath(e.RelativePath), sidecar, zip.Deflate); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

// addFile copies one file into the archive. Media is stored uncompressed;
// deflating already-compressed camera formats wastes CPU for nothing.
func addFile(zw *zip.Writer, name, path string, method uint16) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	header := &zip.FileHeader{
		Name:   name,
		Method: method,
	}
	header.SetMode(0644)
	header.Modified = info.ModTime()

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive entry %s: %w", name, err)
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying %s: %w", name, err)
	}
	return nil
}

// writeManifest renders the tab-separated contents listing.
func writeManifest(w io.Writer, entries []library.Entry) error {
	columns := []string{"Path", "FileName", "Reviewed", "EventDate", "Subject", "People", "Location", "Notes"}
	if _, err := fmt.Fprintln(w, strings.Join(columns, "\t")); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.RelativePath,
			e.Name,
			reviewedColumn(e.Metadata.ReviewStatus),
			eventDateColumn(e.Metadata),
			manifestText(e.Metadata.Subject),
			manifestText(strings.Join(e.Metadata.People, "; ")),
			manifestText(e.Metadata.LocationName),
			manifestText(e.Metadata.Notes),
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func reviewedColumn(s metadata.ReviewStatus) string {
	if s == metadata.StatusReviewed {
		return "yes"
	}
	return "no"
}

// eventDateColumn prefers the human display form; otherwise the date is
// rendered to its known precision.
func eventDateColumn(m metadata.LogicalMetadata) string {
	if m.EventDateDisplay != "" {
		return m.EventDateDisplay
	}
	if m.EventDate == nil {
		return ""
	}
	switch m.EventDatePrecision {
	case metadata.PrecisionYear:
		return m.EventDate.Format("2006")
	case metadata.PrecisionMonth:
		return m.EventDate.Format("2006-01")
	default:
		return m.EventDate.Format("2006-01-02")
	}
}

// manifestText keeps free text on one tab-separated line.
func manifestText(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
