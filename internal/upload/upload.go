// Package upload ingests batches of media files into the upload tree. A
// batch gets its own timestamped directory; every file is validated by
// content sniffing before it is stored, and the configured limits are
// enforced for the whole batch before a single byte is written.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"photomedit/internal/config"
	"photomedit/internal/filesystem"
	"photomedit/internal/logging"
	"photomedit/internal/mediatypes"
	"photomedit/internal/metadata"
	"photomedit/internal/metrics"
	"photomedit/internal/pathsafe"
)

// batchDirTimestamp names batch directories down to the second; the
// collision loop handles two batches landing in the same second.
const batchDirTimestamp = "20060102-150405"

// maxBatchNameLength bounds the client-supplied batch name.
const maxBatchNameLength = 100

// ErrBadBatchName rejects blank or over-long batch names.
var ErrBadBatchName = errors.New("invalid batch name")

// File is one member of an upload batch. Size must be known up front so
// limits can be checked before anything is written.
type File struct {
	Name string
	Size int64
	Data io.Reader
}

// FileResult records the outcome for one file of a batch.
type FileResult struct {
	OriginalName string                   `json:"originalName"`
	StoredName   string                   `json:"storedName,omitempty"`
	SizeBytes    int64                    `json:"sizeBytes"`
	Kind         mediatypes.Kind          `json:"kind,omitempty"`
	Subtype      string                   `json:"subtype,omitempty"`
	Metadata     metadata.LogicalMetadata `json:"metadata,omitempty"`
	Err          error                    `json:"-"`
	Error        string                   `json:"error,omitempty"`
}

// BatchResult describes a completed ingest.
type BatchResult struct {
	BatchID   string       `json:"batchId"`
	Directory string       `json:"directory"`
	Files     []FileResult `json:"files"`
	Stored    int          `json:"stored"`
	Rejected  int          `json:"rejected"`
}

// Ingestor stores upload batches under the configured upload root.
type Ingestor struct {
	registry *config.Registry
	codec    *metadata.Codec
	now      func() time.Time
}

// NewIngestor wires an ingestor.
func NewIngestor(registry *config.Registry, codec *metadata.Codec) *Ingestor {
	return &Ingestor{registry: registry, codec: codec, now: time.Now}
}

// IngestBatch validates and stores a batch of files. The batch name is
// sanitized into the directory name. Limit violations fail the whole batch
// up front with ErrLimitExceeded and write nothing; per-file sniffing
// failures reject only that file.
func (ing *Ingestor) IngestBatch(name string, files []File) (BatchResult, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		metrics.UploadBatchesTotal.WithLabelValues("rejected").Inc()
		return BatchResult{}, fmt.Errorf("%w: name is empty", ErrBadBatchName)
	}
	if len(trimmed) > maxBatchNameLength {
		metrics.UploadBatchesTotal.WithLabelValues("rejected").Inc()
		return BatchResult{}, fmt.Errorf("%w: %d characters, limit %d", ErrBadBatchName, len(trimmed), maxBatchNameLength)
	}

	limits := ing.registry.Limits()
	if err := checkBatchLimits(files, limits); err != nil {
		metrics.UploadBatchesTotal.WithLabelValues("rejected").Inc()
		return BatchResult{}, err
	}

	dir, err := ing.createBatchDir(name)
	if err != nil {
		metrics.UploadBatchesTotal.WithLabelValues("error").Inc()
		return BatchResult{}, err
	}

	result := BatchResult{
		BatchID:   uuid.NewString(),
		Directory: dir,
		Files:     make([]FileResult, 0, len(files)),
	}
	for _, f := range files {
		fr := ing.ingestFile(dir, f, limits)
		if fr.Err != nil {
			fr.Error = fr.Err.Error()
			result.Rejected++
			metrics.UploadFilesTotal.WithLabelValues("rejected").Inc()
		} else {
			result.Stored++
			metrics.UploadFilesTotal.WithLabelValues("stored").Inc()
			metrics.UploadBytesTotal.Add(float64(fr.SizeBytes))
		}
		result.Files = append(result.Files, fr)
	}

	logging.Info("upload batch %s: %d stored, %d rejected in %s",
		result.BatchID, result.Stored, result.Rejected, dir)
	metrics.UploadBatchesTotal.WithLabelValues("success").Inc()
	return result, nil
}

func checkBatchLimits(files []File, limits config.Limits) error {
	if len(files) == 0 {
		return fmt.Errorf("empty batch")
	}
	if len(files) > limits.MaxUploadFiles {
		return fmt.Errorf("%w: %d files, limit %d", config.ErrLimitExceeded, len(files), limits.MaxUploadFiles)
	}
	var total int64
	for _, f := range files {
		if f.Size > limits.MaxUploadBytesPerFile {
			return fmt.Errorf("%w: %s is %d bytes, per-file limit %d",
				config.ErrLimitExceeded, f.Name, f.Size, limits.MaxUploadBytesPerFile)
		}
		total += f.Size
	}
	if total > limits.MaxUploadBytesTotal {
		return fmt.Errorf("%w: batch is %d bytes, limit %d", config.ErrLimitExceeded, total, limits.MaxUploadBytesTotal)
	}
	return nil
}

// createBatchDir makes "<sanitized>-<timestamp>" under the upload root,
// suffixing on collision.
func (ing *Ingestor) createBatchDir(name string) (string, error) {
	base := pathsafe.SanitizeUploadName(name) + "-" + ing.now().Format(batchDirTimestamp)
	root := ing.registry.UploadRoot()

	candidate := filepath.Join(root, base)
	for i := 1; ; i++ {
		err := os.Mkdir(candidate, 0755)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating batch directory: %w", err)
		}
		candidate = filepath.Join(root, fmt.Sprintf("%s-%d", base, i))
	}
}

func (ing *Ingestor) ingestFile(dir string, f File, limits config.Limits) FileResult {
	fr := FileResult{OriginalName: f.Name, SizeBytes: f.Size}

	header := make([]byte, mediatypes.SniffLen)
	n, err := io.ReadFull(f.Data, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		fr.Err = fmt.Errorf("reading %s: %w", f.Name, err)
		return fr
	}
	header = header[:n]

	class := mediatypes.Classify(header)
	if class.Kind == mediatypes.KindUnsupported {
		fr.Err = fmt.Errorf("%s: %w", f.Name, mediatypes.ErrUnsupportedFileType)
		return fr
	}
	fr.Kind = class.Kind
	fr.Subtype = class.Subtype

	safe := pathsafe.SanitizeFilename(f.Name)
	if safe == "" {
		fr.Err = fmt.Errorf("%s: no usable file name after sanitization", f.Name)
		return fr
	}
	stored, path, err := availableName(dir, safe)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.StoredName = stored

	var written int64
	err = filesystem.WriteAtomic(path, func(w io.Writer) error {
		n, err := io.Copy(w, io.MultiReader(bytes.NewReader(header), f.Data))
		written = n
		if err != nil {
			return err
		}
		if written > limits.MaxUploadBytesPerFile {
			return fmt.Errorf("%w: %s grew past the per-file limit", config.ErrLimitExceeded, f.Name)
		}
		return nil
	})
	if err != nil {
		fr.StoredName = ""
		fr.Err = err
		return fr
	}
	fr.SizeBytes = written

	meta, err := ing.codec.Discover(path, class.Kind)
	if err != nil {
		logging.Warn("post-ingest discover %s: %v", path, err)
		meta = metadata.Defaults()
	}
	fr.Metadata = meta
	return fr
}

// availableName returns the first free variant of name in dir, appending
// -1, -2... before the extension on collision.
func availableName(dir, name string) (string, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return candidate, path, nil
		} else if err != nil && !os.IsExist(err) {
			return "", "", fmt.Errorf("checking %s: %w", path, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}
