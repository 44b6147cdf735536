package library

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"photomedit/internal/config"
	"photomedit/internal/logging"
	"photomedit/internal/mediaid"
	"photomedit/internal/mediatypes"
	"photomedit/internal/metadata"
	"photomedit/internal/metrics"
	"photomedit/internal/pathsafe"
	"photomedit/internal/workers"
)

var (
	// ErrUnknownLibrary means the id does not match a configured library.
	ErrUnknownLibrary = errors.New("unknown library")
	// ErrNotFound means the id points at a file that does not exist.
	ErrNotFound = errors.New("media item not found")
)

// discoverWorkerCap bounds the concurrent metadata discoveries per scan;
// each one may fork the external tag tool.
const discoverWorkerCap = 8

// Scanner lists folders and media lazily from the configured library
// trees.
type Scanner struct {
	registry *config.Registry
	codec    *metadata.Codec
	cache    Cache
}

// NewScanner wires a scanner. Pass NoopCache{} to disable caching.
func NewScanner(registry *config.Registry, codec *metadata.Codec, cache Cache) *Scanner {
	return &Scanner{registry: registry, codec: codec, cache: cache}
}

// ListFolders returns the direct subfolders of parentRel, ordered
// case-insensitively. Dot-entries and the .rejected holding area never
// appear.
func (s *Scanner) ListFolders(libraryID, parentRel string) ([]Folder, error) {
	start := time.Now()
	lib, ok := s.registry.Library(libraryID)
	if !ok {
		metrics.ScannerOperationsTotal.WithLabelValues("list_folders", "error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownLibrary, libraryID)
	}
	if pathsafe.IsRejected(parentRel) {
		metrics.ScannerOperationsTotal.WithLabelValues("list_folders", "error").Inc()
		return nil, fmt.Errorf("%w: %s", pathsafe.ErrPathTraversal, parentRel)
	}

	dir, err := pathsafe.Resolve(lib.RootPath, parentRel)
	if err != nil {
		metrics.ScannerOperationsTotal.WithLabelValues("list_folders", "error").Inc()
		return nil, err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		metrics.ScannerOperationsTotal.WithLabelValues("list_folders", "error").Inc()
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	folders := make([]Folder, 0)
	for _, de := range dirEntries {
		if !de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		rel := path.Join(parentRel, de.Name())
		folders = append(folders, Folder{
			Name:         de.Name(),
			RelativePath: rel,
			HasChildren:  hasSubfolders(filepath.Join(dir, de.Name())),
		})
	}
	sortFolders(folders)

	metrics.ScannerOperationsTotal.WithLabelValues("list_folders", "success").Inc()
	metrics.ScannerOperationDuration.WithLabelValues("list_folders").Observe(time.Since(start).Seconds())
	metrics.ScannerItemsReturned.WithLabelValues("list_folders").Observe(float64(len(folders)))
	return folders, nil
}

// ListMedia returns the media files directly inside folderRel that pass
// the filter, with their discovered metadata, ordered case-insensitively
// by file name.
func (s *Scanner) ListMedia(libraryID, folderRel string, filter Filter) ([]Entry, error) {
	start := time.Now()
	entries, err := s.ListAll(libraryID, folderRel)
	if err != nil {
		metrics.ScannerOperationsTotal.WithLabelValues("list_media", "error").Inc()
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}

	metrics.ScannerOperationsTotal.WithLabelValues("list_media", "success").Inc()
	metrics.ScannerOperationDuration.WithLabelValues("list_media").Observe(time.Since(start).Seconds())
	metrics.ScannerItemsReturned.WithLabelValues("list_media").Observe(float64(len(out)))
	return out, nil
}

// ListAll returns every media entry in a folder regardless of filter,
// serving from the scan cache when fresh.
func (s *Scanner) ListAll(libraryID, folderRel string) ([]Entry, error) {
	lib, ok := s.registry.Library(libraryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLibrary, libraryID)
	}
	if pathsafe.IsRejected(folderRel) {
		return nil, fmt.Errorf("%w: %s", pathsafe.ErrPathTraversal, folderRel)
	}

	key := cacheKey(libraryID, folderRel)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	entries, err := s.scanFolder(lib, libraryID, folderRel)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, entries)
	return entries, nil
}

// Invalidate drops the cached scan of one folder, forcing the next listing
// to rescan. Call after any write into that folder.
func (s *Scanner) Invalidate(libraryID, folderRel string) {
	s.cache.Invalidate(cacheKey(libraryID, folderRel))
}

func cacheKey(libraryID, folderRel string) string {
	return libraryID + "\x00" + path.Clean("/"+folderRel)
}

func (s *Scanner) scanFolder(lib config.Library, libraryID, folderRel string) ([]Entry, error) {
	dir, err := pathsafe.Resolve(lib.RootPath, folderRel)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	present := make(map[string]bool, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() {
			present[de.Name()] = true
		}
	}

	entries := make([]Entry, 0)
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !mediatypes.IsMediaExtension(ext) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			logging.Warn("stat %s: %v", filepath.Join(dir, name), err)
			continue
		}
		rel := path.Join(folderRel, name)
		item := MediaItem{
			ID:           mediaid.Encode(libraryID, rel),
			LibraryID:    libraryID,
			RelativePath: rel,
			Name:         name,
			Kind:         mediatypes.KindForExtension(ext),
			SizeBytes:    info.Size(),
			ModTime:      info.ModTime(),
		}
		if sidecar := metadata.SidecarPath(name); present[sidecar] {
			item.SidecarPath = path.Join(folderRel, sidecar)
		}
		entries = append(entries, Entry{MediaItem: item})
	}

	s.discoverAll(dir, entries)
	sortEntries(entries)
	return entries, nil
}

// discoverAll fills in logical metadata for all entries with a bounded
// worker pool.
func (s *Scanner) discoverAll(dir string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	count := workers.ForIO(discoverWorkerCap)
	if count > len(entries) {
		count = len(entries)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				e := &entries[idx]
				meta, err := s.codec.Discover(filepath.Join(dir, e.Name), e.Kind)
				if err != nil {
					logging.Warn("discover %s: %v", e.RelativePath, err)
					meta = metadata.Defaults()
				}
				e.Metadata = meta
			}
		}()
	}
	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// Resolve decodes a media id into its item and absolute path, verifying
// the file exists.
func (s *Scanner) Resolve(id string) (MediaItem, string, error) {
	libraryID, rel, err := mediaid.Decode(id)
	if err != nil {
		return MediaItem{}, "", err
	}
	lib, ok := s.registry.Library(libraryID)
	if !ok {
		return MediaItem{}, "", fmt.Errorf("%w: %s", ErrUnknownLibrary, libraryID)
	}
	abs, err := pathsafe.Resolve(lib.RootPath, rel)
	if err != nil {
		return MediaItem{}, "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return MediaItem{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return MediaItem{}, "", fmt.Errorf("stat %s: %w", abs, err)
	}
	ext := strings.ToLower(filepath.Ext(rel))
	item := MediaItem{
		ID:           id,
		LibraryID:    libraryID,
		RelativePath: rel,
		Name:         path.Base(rel),
		Kind:         mediatypes.KindForExtension(ext),
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
	}
	if _, err := os.Stat(metadata.SidecarPath(abs)); err == nil {
		item.SidecarPath = metadata.SidecarPath(rel)
	}
	return item, abs, nil
}

func hasSubfolders(dir string) bool {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, de := range dirEntries {
		if de.IsDir() && !strings.HasPrefix(de.Name(), ".") {
			return true
		}
	}
	return false
}

func sortFolders(folders []Folder) {
	sort.Slice(folders, func(i, j int) bool {
		return caseInsensitiveLess(folders[i].Name, folders[j].Name)
	})
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return caseInsensitiveLess(entries[i].Name, entries[j].Name)
	})
}

// caseInsensitiveLess orders names case-insensitively with a byte-order
// tiebreak so the ordering is total and deterministic.
func caseInsensitiveLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
