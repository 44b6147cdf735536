package curation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"photomedit/internal/config"
	"photomedit/internal/filesystem"
	"photomedit/internal/logging"
	"photomedit/internal/metadata"
)

// PublishedFileName is the per-folder register of files copied to the DAM.
const PublishedFileName = "published.csv"

var publishedHeader = []string{"filename", "published_by", "published_at", "dam_name", "dam_path"}

// ErrDAMDisabled means publishing was requested with no DAM configured.
var ErrDAMDisabled = errors.New("dam publishing is not configured")

// ErrAlreadyPublished means the target file already exists in the DAM
// folder. The existing copy is never overwritten.
var ErrAlreadyPublished = errors.New("file already exists in the dam folder")

// PublishRecord is one row of a folder's published register.
type PublishRecord struct {
	FileName    string `json:"fileName"`
	PublishedBy string `json:"publishedBy"`
	PublishedAt string `json:"publishedAt"`
	DAMName     string `json:"damName"`
	DAMPath     string `json:"damPath"`
}

// Publisher copies media into the configured DAM drop folder and records
// every publish in the source folder's published.csv.
type Publisher struct {
	dam config.DAM
	now func() time.Time
}

// NewPublisher wires a publisher for the configured DAM.
func NewPublisher(dam config.DAM) *Publisher {
	return &Publisher{dam: dam, now: time.Now}
}

// Enabled reports whether a DAM drop folder is configured.
func (p *Publisher) Enabled() bool {
	return p.dam.Enabled && p.dam.FolderPath != ""
}

// DAM returns the configured DAM description.
func (p *Publisher) DAM() config.DAM {
	return p.dam
}

// Publish copies one media file (and its sidecar, when present) into the
// DAM folder and records it. With preserveStructure the file lands in a
// subfolder named after its source folder, keeping siblings together.
func (p *Publisher) Publish(srcPath, publishedBy string, preserveStructure bool) (PublishRecord, error) {
	if !p.Enabled() {
		return PublishRecord{}, ErrDAMDisabled
	}
	if _, err := os.Stat(srcPath); err != nil {
		return PublishRecord{}, fmt.Errorf("publish source: %w", err)
	}

	fileName := filepath.Base(srcPath)
	srcFolder := filepath.Dir(srcPath)

	destFolder := p.dam.FolderPath
	if preserveStructure {
		destFolder = filepath.Join(destFolder, filepath.Base(srcFolder))
	}
	if err := os.MkdirAll(destFolder, 0755); err != nil {
		return PublishRecord{}, fmt.Errorf("creating dam folder: %w", err)
	}

	destPath := filepath.Join(destFolder, fileName)
	if _, err := os.Stat(destPath); err == nil {
		return PublishRecord{}, fmt.Errorf("%w: %s", ErrAlreadyPublished, fileName)
	}

	if err := filesystem.CopyVerify(srcPath, destPath); err != nil {
		return PublishRecord{}, fmt.Errorf("publishing %s: %w", fileName, err)
	}
	copySidecar(srcPath, destPath)

	record := PublishRecord{
		FileName:    fileName,
		PublishedBy: publishedBy,
		PublishedAt: p.now().UTC().Format(time.RFC3339),
		DAMName:     p.dam.Name,
		DAMPath:     destPath,
	}
	if err := p.record(srcFolder, record); err != nil {
		return PublishRecord{}, err
	}

	logging.Info("published %s to %s at %s", fileName, p.dam.Name, destPath)
	return record, nil
}

// IsPublished reports whether a file in a folder has a publish record.
func (p *Publisher) IsPublished(folderPath, fileName string) (bool, error) {
	records, err := readPublished(folderPath)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.FileName == fileName {
			return true, nil
		}
	}
	return false, nil
}

// ListPublished returns every publish record in a folder, in file order.
func (p *Publisher) ListPublished(folderPath string) ([]PublishRecord, error) {
	return readPublished(folderPath)
}

// record replaces any earlier entry for the same file and appends the new
// one, so the register holds the latest publish per file.
func (p *Publisher) record(folderPath string, rec PublishRecord) error {
	records, err := readPublished(folderPath)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.FileName != rec.FileName {
			kept = append(kept, r)
		}
	}
	kept = append(kept, rec)
	return writePublished(folderPath, kept)
}

// copySidecar brings the sidecar along when one exists. The media copy
// already succeeded, so a sidecar failure is logged rather than unwinding
// the publish.
func copySidecar(mediaSrc, mediaDst string) {
	src := metadata.SidecarPath(mediaSrc)
	if _, err := os.Stat(src); err != nil {
		return
	}
	if err := filesystem.CopyVerify(src, metadata.SidecarPath(mediaDst)); err != nil {
		logging.Error("copying sidecar %s: %v", src, err)
	}
}

func readPublished(folderPath string) ([]PublishRecord, error) {
	path := filepath.Join(folderPath, PublishedFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(publishedHeader)
	var records []PublishRecord
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if first {
			first = false
			continue
		}
		records = append(records, PublishRecord{
			FileName:    record[0],
			PublishedBy: record[1],
			PublishedAt: record[2],
			DAMName:     record[3],
			DAMPath:     record[4],
		})
	}
	return records, nil
}

func writePublished(folderPath string, records []PublishRecord) error {
	path := filepath.Join(folderPath, PublishedFileName)
	return filesystem.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(publishedHeader); err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write([]string{r.FileName, r.PublishedBy, r.PublishedAt, r.DAMName, r.DAMPath}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
