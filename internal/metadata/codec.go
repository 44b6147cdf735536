package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"

	"photomedit/internal/filesystem"
	"photomedit/internal/logging"
	"photomedit/internal/mediatypes"
	"photomedit/internal/metrics"
)

// ErrMetadataWriteFailed means the embedded write phase failed after the
// sidecar was already committed. The edit is durable (the sidecar wins on
// every subsequent read) but the embedded tags are stale.
var ErrMetadataWriteFailed = errors.New("embedded metadata write failed")

// Codec translates between embedded container tags, XMP sidecars and the
// logical metadata model. The sidecar always wins: once one exists, the
// embedded tags are never consulted again for that file.
type Codec struct {
	reader TagReader
	writer TagWriter
	retry  filesystem.RetryConfig
}

// NewCodec builds a Codec. reader and writer may be nil, in which case
// discovery falls back to defaults and embedded writes are skipped.
func NewCodec(reader TagReader, writer TagWriter) *Codec {
	return &Codec{
		reader: reader,
		writer: writer,
		retry:  filesystem.DefaultRetryConfig(),
	}
}

// Discover returns the complete logical metadata of a media file without
// modifying anything. Precedence: sidecar, then embedded tags, then
// defaults. Unreadable embedded tags degrade to defaults rather than
// failing the read.
func (c *Codec) Discover(path string, kind mediatypes.Kind) (LogicalMetadata, error) {
	return c.discover(path, kind, false)
}

// discover implements Discover. In strict mode an embedded-read failure is
// an error instead of degrading to defaults; the write path needs that,
// because committing a sidecar merged onto defaults would shadow every
// embedded field the failed read hid.
func (c *Codec) discover(path string, kind mediatypes.Kind, strict bool) (LogicalMetadata, error) {
	sidecar := SidecarPath(path)
	if meta, ok, err := c.readSidecar(sidecar); err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("sidecar", "error").Inc()
		return Defaults(), err
	} else if ok {
		metrics.MetadataReadsTotal.WithLabelValues("sidecar", "success").Inc()
		return meta, nil
	}

	if c.reader == nil {
		metrics.MetadataReadsTotal.WithLabelValues("none", "success").Inc()
		return Defaults(), nil
	}

	tags, err := c.reader.ReadTags(path)
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("embedded", "error").Inc()
		if strict {
			return Defaults(), fmt.Errorf("reading embedded tags for %s: %w", path, err)
		}
		logging.Warn("reading embedded tags for %s: %v", path, err)
		return Defaults(), nil
	}
	metrics.MetadataReadsTotal.WithLabelValues("embedded", "success").Inc()
	return fromEmbedded(tags), nil
}

// readSidecar loads and parses the sidecar if one exists. ok is false when
// there is no sidecar; a sidecar that exists but cannot be read is an
// error, never silently ignored.
func (c *Codec) readSidecar(path string) (meta LogicalMetadata, ok bool, err error) {
	file, err := filesystem.OpenWithRetry(path, c.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return LogicalMetadata{}, false, nil
		}
		return LogicalMetadata{}, false, fmt.Errorf("opening sidecar %s: %w", path, err)
	}
	defer file.Close()

	meta, err = parseSidecar(file)
	if err != nil {
		return LogicalMetadata{}, false, fmt.Errorf("sidecar %s: %w", path, err)
	}
	return meta, true, nil
}

// Write applies a partial update to a media file's metadata and returns
// the resulting complete logical metadata.
//
// The write runs in two phases. Phase one renders the merged state into
// the sidecar with an atomic replace; this is the commit point. Phase two
// pushes the changed fields into the embedded tags of image files so the
// metadata travels with the file. Videos never get phase two. A phase-two
// failure surfaces as ErrMetadataWriteFailed, but the sidecar is not
// rolled back: the edit is already durable and the sidecar wins on read.
// When no sidecar exists yet and the embedded tags cannot be read, the
// write fails before touching anything, so a transient read failure can
// never bake defaults into a new sidecar.
func (c *Codec) Write(path string, kind mediatypes.Kind, update Update) (LogicalMetadata, error) {
	if err := update.Validate(); err != nil {
		return LogicalMetadata{}, fmt.Errorf("invalid metadata update: %w", err)
	}

	current, err := c.discover(path, kind, true)
	if err != nil {
		return LogicalMetadata{}, err
	}
	merged := apply(current, update)

	sidecar := SidecarPath(path)
	err = filesystem.WriteAtomic(sidecar, func(w io.Writer) error {
		return renderSidecar(w, merged)
	})
	if err != nil {
		metrics.MetadataWritesTotal.WithLabelValues("sidecar", "error").Inc()
		return LogicalMetadata{}, fmt.Errorf("writing sidecar %s: %w", sidecar, err)
	}
	metrics.MetadataWritesTotal.WithLabelValues("sidecar", "success").Inc()

	if kind != mediatypes.KindImage || c.writer == nil {
		return merged, nil
	}
	tags := embeddedTags(update, merged)
	if len(tags) == 0 {
		return merged, nil
	}
	if err := c.writer.WriteTags(path, tags); err != nil {
		logging.Error("embedded write for %s: %v", path, err)
		metrics.MetadataWritesTotal.WithLabelValues("embedded", "error").Inc()
		return merged, fmt.Errorf("%w: %s", ErrMetadataWriteFailed, path)
	}
	metrics.MetadataWritesTotal.WithLabelValues("embedded", "success").Inc()
	return merged, nil
}

// HasSidecar reports whether a sidecar exists for the media file.
func (c *Codec) HasSidecar(path string) bool {
	_, err := os.Stat(SidecarPath(path))
	return err == nil
}
