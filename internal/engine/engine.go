// Package engine is the facade over the metadata codec, scanner,
// navigator, ingestor and packager. All state lives in the library trees;
// the engine itself only holds the wired collaborators and is safe for
// concurrent use.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"photomedit/internal/config"
	"photomedit/internal/curation"
	"photomedit/internal/export"
	"photomedit/internal/filesystem"
	"photomedit/internal/library"
	"photomedit/internal/logging"
	"photomedit/internal/metadata"
	"photomedit/internal/navigation"
	"photomedit/internal/pathsafe"
	"photomedit/internal/upload"
)

// ErrLimitExceeded is re-exported for callers that only import the engine.
var ErrLimitExceeded = config.ErrLimitExceeded

// ErrBadFolderName means a folder name contains separators or is a
// reserved dot name.
var ErrBadFolderName = errors.New("invalid folder name")

// ErrNotRejected means a restore was requested for media that is not in
// the rejected holding area.
var ErrNotRejected = errors.New("media item is not rejected")

// defaultScanCacheAge bounds how stale a folder listing may be. External
// edits to the tree appear within this window.
const defaultScanCacheAge = 15 * time.Second

// Geocoder resolves a location name to coordinates. Only consulted when a
// write explicitly asks for resolution; the engine never geocodes
// implicitly.
type Geocoder interface {
	ResolveCoordinates(name string) (*metadata.Coordinates, error)
}

// Engine exposes every library operation.
type Engine struct {
	registry    *config.Registry
	codec       *metadata.Codec
	scanner     *library.Scanner
	navigator   *navigation.Navigator
	ingestor    *upload.Ingestor
	packager    *export.Packager
	corrections *curation.Tracker
	publisher   *curation.Publisher
	geocoder    Geocoder
}

// Option customizes engine construction.
type Option func(*options)

type options struct {
	reader   metadata.TagReader
	writer   metadata.TagWriter
	cache    library.Cache
	geocoder Geocoder
}

// WithTagTool supplies the embedded tag reader/writer, normally the
// exiftool subprocess wrapper.
func WithTagTool(reader metadata.TagReader, writer metadata.TagWriter) Option {
	return func(o *options) {
		o.reader = reader
		o.writer = writer
	}
}

// WithCache replaces the default scan cache.
func WithCache(cache library.Cache) Option {
	return func(o *options) { o.cache = cache }
}

// WithGeocoder supplies the optional location resolver.
func WithGeocoder(g Geocoder) Option {
	return func(o *options) { o.geocoder = g }
}

// New wires an engine from a registry.
func New(registry *config.Registry, opts ...Option) *Engine {
	o := &options{cache: library.NewTTLCache(defaultScanCacheAge)}
	for _, opt := range opts {
		opt(o)
	}

	codec := metadata.NewCodec(o.reader, o.writer)
	scanner := library.NewScanner(registry, codec, o.cache)
	return &Engine{
		registry:    registry,
		codec:       codec,
		scanner:     scanner,
		navigator:   navigation.NewNavigator(scanner),
		ingestor:    upload.NewIngestor(registry, codec),
		packager:    export.NewPackager(registry, scanner),
		corrections: curation.NewTracker(),
		publisher:   curation.NewPublisher(registry.DAM()),
		geocoder:    o.geocoder,
	}
}

// Libraries returns the configured libraries.
func (e *Engine) Libraries() []config.Library {
	return e.registry.Libraries()
}

// ListFolders lists the subfolders of a library folder.
// Limits exposes the configured operation limits.
func (e *Engine) Limits() config.Limits {
	return e.registry.Limits()
}

func (e *Engine) ListFolders(libraryID, parentRel string) ([]library.Folder, error) {
	return e.scanner.ListFolders(libraryID, parentRel)
}

// ListMedia lists the media of a library folder under a review filter.
func (e *Engine) ListMedia(libraryID, folderRel string, filter library.Filter) ([]library.Entry, error) {
	return e.scanner.ListMedia(libraryID, folderRel, filter)
}

// Discover returns an item and its complete logical metadata without
// modifying anything.
func (e *Engine) Discover(id string) (library.MediaItem, metadata.LogicalMetadata, error) {
	item, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return library.MediaItem{}, metadata.LogicalMetadata{}, err
	}
	meta, err := e.codec.Discover(abs, item.Kind)
	if err != nil {
		return library.MediaItem{}, metadata.LogicalMetadata{}, err
	}
	return item, meta, nil
}

// Technical returns the read-only technical metadata of an item.
func (e *Engine) Technical(id string) (metadata.TechnicalMetadata, error) {
	item, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return metadata.TechnicalMetadata{}, err
	}
	return e.codec.ReadTechnical(abs, item.Kind), nil
}

// Write applies a partial metadata update to an item. When geocode is true
// and the update carries a location name without coordinates, the
// configured geocoder fills the coordinates in; geocoding failures are
// logged and the write proceeds without coordinates.
func (e *Engine) Write(id string, update metadata.Update, geocode bool) (metadata.LogicalMetadata, error) {
	item, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return metadata.LogicalMetadata{}, err
	}

	if geocode && e.geocoder != nil && update.LocationName != nil &&
		*update.LocationName != "" && update.LocationCoords == nil {
		coords, err := e.geocoder.ResolveCoordinates(*update.LocationName)
		if err != nil {
			logging.Warn("geocoding %q: %v", *update.LocationName, err)
		} else {
			update.LocationCoords = coords
		}
	}

	merged, err := e.codec.Write(abs, item.Kind, update)
	if err != nil && !errors.Is(err, metadata.ErrMetadataWriteFailed) {
		return metadata.LogicalMetadata{}, err
	}
	e.scanner.Invalidate(item.LibraryID, folderOf(item.RelativePath))
	return merged, err
}

// Navigate returns the neighboring item id in the current folder sequence.
func (e *Engine) Navigate(currentID string, direction navigation.Direction, filter library.Filter) (string, error) {
	return e.navigator.Navigate(currentID, direction, filter)
}

// IngestBatch stores an upload batch.
func (e *Engine) IngestBatch(name string, files []upload.File) (upload.BatchResult, error) {
	return e.ingestor.IngestBatch(name, files)
}

// BuildArchive streams an export archive to w.
func (e *Engine) BuildArchive(libraryID string, scope export.Scope, folderRel string, w io.Writer) (export.Summary, error) {
	return e.packager.BuildArchive(libraryID, scope, folderRel, w)
}

// Reject moves an item and its sidecar into the library's .rejected
// holding area, mirroring the original relative path. Each file is copied,
// verified and only then removed, so a failure never loses data.
func (e *Engine) Reject(id string) error {
	item, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return err
	}
	if pathsafe.IsRejected(item.RelativePath) {
		return fmt.Errorf("%s already rejected", id)
	}
	lib, _ := e.registry.Library(item.LibraryID)
	dest := filepath.Join(lib.RootPath, pathsafe.RejectedDirName, filepath.FromSlash(item.RelativePath))

	if err := filesystem.CopyVerifyRemove(abs, dest); err != nil {
		return fmt.Errorf("rejecting %s: %w", id, err)
	}
	moveSidecar(abs, dest)

	logging.Info("rejected %s", id)
	e.scanner.Invalidate(item.LibraryID, folderOf(item.RelativePath))
	return nil
}

// Restore moves a rejected item (and sidecar) back to its original place.
// The id must address the item inside .rejected.
func (e *Engine) Restore(id string) error {
	item, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return err
	}
	if !pathsafe.IsRejected(item.RelativePath) {
		return fmt.Errorf("%w: %s", ErrNotRejected, id)
	}
	originalRel := strings.TrimPrefix(item.RelativePath, pathsafe.RejectedDirName+"/")
	lib, _ := e.registry.Library(item.LibraryID)
	dest := filepath.Join(lib.RootPath, filepath.FromSlash(originalRel))

	if err := filesystem.CopyVerifyRemove(abs, dest); err != nil {
		return fmt.Errorf("restoring %s: %w", id, err)
	}
	moveSidecar(abs, dest)

	logging.Info("restored %s to %s", id, originalRel)
	e.scanner.Invalidate(item.LibraryID, folderOf(originalRel))
	return nil
}

// CreateFolder makes one new directory under parentRel. The name must be a
// single path element.
func (e *Engine) CreateFolder(libraryID, parentRel, name string) (library.Folder, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return library.Folder{}, fmt.Errorf("%w: %q", ErrBadFolderName, name)
	}
	lib, ok := e.registry.Library(libraryID)
	if !ok {
		return library.Folder{}, fmt.Errorf("%w: %s", library.ErrUnknownLibrary, libraryID)
	}
	parent, err := pathsafe.Resolve(lib.RootPath, parentRel)
	if err != nil {
		return library.Folder{}, err
	}
	if err := os.Mkdir(filepath.Join(parent, name), 0755); err != nil {
		return library.Folder{}, fmt.Errorf("creating folder: %w", err)
	}
	return library.Folder{
		Name:         name,
		RelativePath: path.Join(parentRel, name),
	}, nil
}

// FlagCorrection marks a media item as needing rework in its folder's
// corrections register. Re-flagging updates the existing entry.
func (e *Engine) FlagCorrection(id, flaggedBy, notes string) error {
	_, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return err
	}
	return e.corrections.Flag(filepath.Dir(abs), filepath.Base(abs), flaggedBy, notes)
}

// ClearCorrection resolves the active flag for a media item. Clearing an
// unflagged item is a no-op.
func (e *Engine) ClearCorrection(id string) error {
	_, abs, err := e.scanner.Resolve(id)
	if err != nil {
		return err
	}
	return e.corrections.Clear(filepath.Dir(abs), filepath.Base(abs))
}

// ListCorrections returns the active corrections in a folder.
func (e *Engine) ListCorrections(libraryID, folderRel string) ([]curation.Correction, error) {
	lib, ok := e.registry.Library(libraryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", library.ErrUnknownLibrary, libraryID)
	}
	if pathsafe.IsRejected(folderRel) {
		return nil, fmt.Errorf("%w: %s", pathsafe.ErrPathTraversal, folderRel)
	}
	dir, err := pathsafe.Resolve(lib.RootPath, folderRel)
	if err != nil {
		return nil, err
	}
	return e.corrections.List(dir)
}

// PublishResult is the outcome of publishing one media item.
type PublishResult struct {
	ID      string `json:"id"`
	DAMPath string `json:"damPath,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublishSummary aggregates a batch publish.
type PublishSummary struct {
	Published int             `json:"published"`
	Failed    int             `json:"failed"`
	Results   []PublishResult `json:"results"`
}

// Publish copies the given media items (with sidecars) into the DAM drop
// folder. Per-item failures are reported in the summary and do not abort
// the rest of the batch.
func (e *Engine) Publish(ids []string, publishedBy string, preserveStructure bool) (PublishSummary, error) {
	if !e.publisher.Enabled() {
		return PublishSummary{}, curation.ErrDAMDisabled
	}
	if len(ids) == 0 {
		return PublishSummary{}, fmt.Errorf("no media ids to publish")
	}

	var sum PublishSummary
	for _, id := range ids {
		res := PublishResult{ID: id}
		_, abs, err := e.scanner.Resolve(id)
		if err == nil {
			var rec curation.PublishRecord
			rec, err = e.publisher.Publish(abs, publishedBy, preserveStructure)
			if err == nil {
				res.DAMPath = rec.DAMPath
			}
		}
		if err != nil {
			res.Error = err.Error()
			sum.Failed++
		} else {
			sum.Published++
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, nil
}

// DAMConfig exposes the configured DAM description for clients.
func (e *Engine) DAMConfig() config.DAM {
	return e.registry.DAM()
}

// moveSidecar moves the sidecar alongside its media if one exists. The
// media move already succeeded at this point, so a sidecar move failure
// is logged rather than unwinding the whole operation.
func moveSidecar(mediaSrc, mediaDst string) {
	src := metadata.SidecarPath(mediaSrc)
	if _, err := os.Stat(src); err != nil {
		return
	}
	if err := filesystem.CopyVerifyRemove(src, metadata.SidecarPath(mediaDst)); err != nil {
		logging.Error("moving sidecar %s: %v", src, err)
	}
}

func folderOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}
