package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"photomedit/internal/config"
	"photomedit/internal/curation"
	"photomedit/internal/library"
	"photomedit/internal/mediaid"
	"photomedit/internal/metadata"
	"photomedit/internal/navigation"
)

type fakeGeocoder struct {
	calls  int
	coords *metadata.Coordinates
	err    error
}

func (g *fakeGeocoder) ResolveCoordinates(name string) (*metadata.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	reg, err := config.NewRegistry(&config.Config{
		Libraries: []config.Library{{ID: "family", Name: "Family", RootPath: root}},
		Limits: config.Limits{
			MaxUploadFiles:        10,
			MaxUploadBytesPerFile: 1 << 20,
			MaxUploadBytesTotal:   1 << 20,
			MaxDownloadFiles:      100,
			MaxDownloadBytes:      1 << 20,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(reg, opts...), root
}

func seed(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		path := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("media-"+n), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWriteThenDiscover(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg")
	id := mediaid.Encode("family", "box/a.jpg")

	subject := "Lake trip"
	merged, err := eng.Write(id, metadata.Update{Subject: &subject, MarkReviewed: true}, false)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Subject != "Lake trip" || merged.ReviewStatus != metadata.StatusReviewed {
		t.Errorf("merged = %+v", merged)
	}

	_, meta, err := eng.Discover(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Subject != "Lake trip" {
		t.Errorf("re-read subject = %q", meta.Subject)
	}

	// The write must be visible in listings immediately despite the cache.
	reviewed, err := eng.ListMedia("family", "box", library.FilterReviewed)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviewed) != 1 {
		t.Errorf("reviewed listing = %+v", reviewed)
	}
}

func TestWriteGeocoding(t *testing.T) {
	geo := &fakeGeocoder{coords: &metadata.Coordinates{Lat: 60.39, Lon: 5.32}}
	eng, root := newTestEngine(t, WithGeocoder(geo))
	seed(t, root, "box/a.jpg")
	id := mediaid.Encode("family", "box/a.jpg")
	location := "Bergen, Norway"

	// Without the flag the geocoder is never consulted.
	merged, err := eng.Write(id, metadata.Update{LocationName: &location}, false)
	if err != nil {
		t.Fatal(err)
	}
	if geo.calls != 0 {
		t.Errorf("geocoder called %d times without request", geo.calls)
	}
	if merged.LocationCoords != nil {
		t.Error("coordinates set without geocode request")
	}

	merged, err = eng.Write(id, metadata.Update{LocationName: &location}, true)
	if err != nil {
		t.Fatal(err)
	}
	if geo.calls != 1 {
		t.Errorf("geocoder calls = %d", geo.calls)
	}
	if merged.LocationCoords == nil || merged.LocationCoords.Lat != 60.39 {
		t.Errorf("coords = %+v", merged.LocationCoords)
	}
}

func TestWriteGeocoderFailureProceedsWithoutCoords(t *testing.T) {
	geo := &fakeGeocoder{err: errors.New("service down")}
	eng, root := newTestEngine(t, WithGeocoder(geo))
	seed(t, root, "box/a.jpg")
	id := mediaid.Encode("family", "box/a.jpg")
	location := "Nowhere"

	merged, err := eng.Write(id, metadata.Update{LocationName: &location}, true)
	if err != nil {
		t.Fatal(err)
	}
	if merged.LocationName != "Nowhere" {
		t.Errorf("location = %q", merged.LocationName)
	}
	if merged.LocationCoords != nil {
		t.Error("coords set despite geocoder failure")
	}
}

func TestRejectAndRestore(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg", "box/b.jpg")
	id := mediaid.Encode("family", "box/a.jpg")

	// Annotate so a sidecar travels with the move.
	subject := "Keeper"
	if _, err := eng.Write(id, metadata.Update{Subject: &subject}, false); err != nil {
		t.Fatal(err)
	}

	if err := eng.Reject(id); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(root, "box/a.jpg")); !os.IsNotExist(err) {
		t.Error("rejected media still in place")
	}
	rejectedMedia := filepath.Join(root, ".rejected/box/a.jpg")
	if _, err := os.Stat(rejectedMedia); err != nil {
		t.Fatalf("rejected media missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".rejected/box/a.xmp")); err != nil {
		t.Errorf("sidecar did not travel: %v", err)
	}

	// Rejected media disappears from listings.
	entries, err := eng.ListMedia("family", "box", library.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "b.jpg" {
		t.Errorf("listing after reject = %+v", entries)
	}

	rejectedID := mediaid.Encode("family", ".rejected/box/a.jpg")
	if err := eng.Restore(rejectedID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "box/a.jpg")); err != nil {
		t.Fatalf("restored media missing: %v", err)
	}

	_, meta, err := eng.Discover(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Subject != "Keeper" {
		t.Errorf("metadata lost across reject/restore: %+v", meta)
	}
}

func TestRestoreRequiresRejectedPath(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg")

	err := eng.Restore(mediaid.Encode("family", "box/a.jpg"))
	if !errors.Is(err, ErrNotRejected) {
		t.Fatalf("err = %v, want ErrNotRejected", err)
	}
}

func TestCreateFolder(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg")

	folder, err := eng.CreateFolder("family", "box", "new album")
	if err != nil {
		t.Fatal(err)
	}
	if folder.RelativePath != "box/new album" {
		t.Errorf("relative path = %q", folder.RelativePath)
	}
	info, err := os.Stat(filepath.Join(root, "box/new album"))
	if err != nil || !info.IsDir() {
		t.Fatalf("folder not created: %v", err)
	}

	bad := []string{"", ".", "..", "a/b", `a\b`, ".hidden"}
	for _, name := range bad {
		if _, err := eng.CreateFolder("family", "box", name); !errors.Is(err, ErrBadFolderName) {
			t.Errorf("CreateFolder(%q) err = %v, want ErrBadFolderName", name, err)
		}
	}
}

func TestNavigateThroughEngine(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg", "box/b.jpg")

	next, err := eng.Navigate(mediaid.Encode("family", "box/a.jpg"),
		navigation.DirectionNext, library.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if next != mediaid.Encode("family", "box/b.jpg") {
		t.Errorf("next = %q", next)
	}
}

func TestCorrectionsFlow(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg", "box/b.jpg")
	id := mediaid.Encode("family", "box/a.jpg")

	if err := eng.FlagCorrection(id, "alex", "date is off by a decade"); err != nil {
		t.Fatal(err)
	}

	active, err := eng.ListCorrections("family", "box")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].FileName != "a.jpg" {
		t.Fatalf("active = %+v", active)
	}
	if active[0].Notes != "date is off by a decade" {
		t.Errorf("notes = %q", active[0].Notes)
	}

	// The register is bookkeeping, never a media item.
	entries, err := eng.ListMedia("family", "box", library.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name == curation.CorrectionsFileName {
			t.Error("corrections register leaked into the media listing")
		}
	}

	if err := eng.ClearCorrection(id); err != nil {
		t.Fatal(err)
	}
	active, err = eng.ListCorrections("family", "box")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active after clear = %+v", active)
	}
}

func TestListCorrectionsRejectedBlocked(t *testing.T) {
	eng, _ := newTestEngine(t)
	if _, err := eng.ListCorrections("family", ".rejected/box"); err == nil {
		t.Fatal("corrections listing inside .rejected must fail")
	}
}

func newTestEngineWithDAM(t *testing.T) (*Engine, string, string) {
	t.Helper()
	root := t.TempDir()
	damRoot := t.TempDir()
	reg, err := config.NewRegistry(&config.Config{
		Libraries: []config.Library{{ID: "family", Name: "Family", RootPath: root}},
		Limits: config.Limits{
			MaxUploadFiles:        10,
			MaxUploadBytesPerFile: 1 << 20,
			MaxUploadBytesTotal:   1 << 20,
			MaxDownloadFiles:      100,
			MaxDownloadBytes:      1 << 20,
		},
		DAM: config.DAM{Enabled: true, Name: "Archive", FolderPath: damRoot},
	})
	if err != nil {
		t.Fatal(err)
	}
	return New(reg), root, damRoot
}

func TestPublishThroughEngine(t *testing.T) {
	eng, root, damRoot := newTestEngineWithDAM(t)
	seed(t, root, "box/a.jpg", "box/b.jpg")

	ids := []string{
		mediaid.Encode("family", "box/a.jpg"),
		mediaid.Encode("family", "missing.jpg"),
	}
	sum, err := eng.Publish(ids, "alex", true)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Published != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Results[1].Error == "" {
		t.Error("missing item must carry an error")
	}
	if _, err := os.Stat(filepath.Join(damRoot, "box", "a.jpg")); err != nil {
		t.Errorf("published copy missing: %v", err)
	}
}

func TestPublishWithoutDAMConfigured(t *testing.T) {
	eng, root := newTestEngine(t)
	seed(t, root, "box/a.jpg")

	_, err := eng.Publish([]string{mediaid.Encode("family", "box/a.jpg")}, "alex", true)
	if !errors.Is(err, curation.ErrDAMDisabled) {
		t.Errorf("err = %v, want ErrDAMDisabled", err)
	}
}
