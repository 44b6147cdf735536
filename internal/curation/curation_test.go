package curation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photomedit/internal/config"
)

func newTestTracker() *Tracker {
	tr := NewTracker()
	tr.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return tr
}

func writeMedia(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("media-"+n), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFlagAndList(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker()

	if err := tr.Flag(dir, "a.jpg", "alex", "wrong date"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Flag(dir, "b.jpg", "alex", "crop needed"); err != nil {
		t.Fatal(err)
	}

	active, err := tr.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %+v, want 2 entries", active)
	}
	if active[0].FileName != "a.jpg" || active[0].Notes != "wrong date" {
		t.Errorf("first = %+v", active[0])
	}
	if active[0].FlaggedAt != "2024-03-15T10:30:00Z" {
		t.Errorf("flaggedAt = %q", active[0].FlaggedAt)
	}

	got, ok, err := tr.Get(dir, "b.jpg")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Notes != "crop needed" {
		t.Errorf("notes = %q", got.Notes)
	}
}

func TestFlagUpdatesExisting(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker()

	if err := tr.Flag(dir, "a.jpg", "alex", "first"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Flag(dir, "a.jpg", "sam", "second"); err != nil {
		t.Fatal(err)
	}

	active, err := tr.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("active = %+v, want a single updated entry", active)
	}
	if active[0].FlaggedBy != "sam" || active[0].Notes != "second" {
		t.Errorf("entry = %+v", active[0])
	}
}

func TestClearKeepsAuditTrail(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker()

	if err := tr.Flag(dir, "a.jpg", "alex", "fix"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Clear(dir, "a.jpg"); err != nil {
		t.Fatal(err)
	}

	active, err := tr.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active = %+v, want none after clear", active)
	}

	// The cleared row stays in the register.
	rows, err := readCorrections(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ClearedAt == "" {
		t.Errorf("rows = %+v, want one cleared entry", rows)
	}
}

func TestClearUnflaggedIsNoop(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker()

	if err := tr.Clear(dir, "never-flagged.jpg"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, CorrectionsFileName)); !os.IsNotExist(err) {
		t.Error("clearing with no register must not create one")
	}
}

func TestNotesWithCommasSurviveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker()

	notes := `date is wrong, should be "July 1962"`
	if err := tr.Flag(dir, "a.jpg", "alex", notes); err != nil {
		t.Fatal(err)
	}
	got, ok, err := tr.Get(dir, "a.jpg")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Notes != notes {
		t.Errorf("notes = %q, want %q", got.Notes, notes)
	}
}

func newTestPublisher(t *testing.T, enabled bool) (*Publisher, string) {
	t.Helper()
	damRoot := t.TempDir()
	p := NewPublisher(config.DAM{
		Enabled:    enabled,
		Name:       "Archive",
		FolderPath: damRoot,
	})
	p.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return p, damRoot
}

func TestPublishCopiesMediaAndSidecar(t *testing.T) {
	src := t.TempDir()
	box := filepath.Join(src, "box")
	if err := os.Mkdir(box, 0755); err != nil {
		t.Fatal(err)
	}
	writeMedia(t, box, "a.jpg", "a.xmp")

	p, damRoot := newTestPublisher(t, true)
	rec, err := p.Publish(filepath.Join(box, "a.jpg"), "alex", true)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(damRoot, "box", "a.jpg")
	if rec.DAMPath != want {
		t.Errorf("damPath = %q, want %q", rec.DAMPath, want)
	}
	for _, name := range []string{"a.jpg", "a.xmp"} {
		if _, err := os.Stat(filepath.Join(damRoot, "box", name)); err != nil {
			t.Errorf("%s not published: %v", name, err)
		}
	}

	published, err := p.IsPublished(box, "a.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !published {
		t.Error("a.jpg should be recorded as published")
	}
	if rec.PublishedAt != "2024-03-15T10:30:00Z" || rec.DAMName != "Archive" {
		t.Errorf("record = %+v", rec)
	}
}

func TestPublishFlatStructure(t *testing.T) {
	src := t.TempDir()
	writeMedia(t, src, "a.jpg")

	p, damRoot := newTestPublisher(t, true)
	rec, err := p.Publish(filepath.Join(src, "a.jpg"), "alex", false)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(rec.DAMPath) != damRoot {
		t.Errorf("damPath = %q, want directly under %q", rec.DAMPath, damRoot)
	}
}

func TestPublishNeverOverwrites(t *testing.T) {
	src := t.TempDir()
	writeMedia(t, src, "a.jpg")

	p, _ := newTestPublisher(t, true)
	if _, err := p.Publish(filepath.Join(src, "a.jpg"), "alex", false); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Publish(filepath.Join(src, "a.jpg"), "alex", false); !errors.Is(err, ErrAlreadyPublished) {
		t.Errorf("err = %v, want ErrAlreadyPublished", err)
	}
}

func TestPublishDisabled(t *testing.T) {
	src := t.TempDir()
	writeMedia(t, src, "a.jpg")

	p, _ := newTestPublisher(t, false)
	if _, err := p.Publish(filepath.Join(src, "a.jpg"), "alex", false); !errors.Is(err, ErrDAMDisabled) {
		t.Errorf("err = %v, want ErrDAMDisabled", err)
	}
}

func TestRepublishReplacesRecord(t *testing.T) {
	src := t.TempDir()
	writeMedia(t, src, "a.jpg")

	p, damRoot := newTestPublisher(t, true)
	if _, err := p.Publish(filepath.Join(src, "a.jpg"), "alex", false); err != nil {
		t.Fatal(err)
	}
	// Remove the DAM copy and publish again; the register must hold one
	// row for the file, not two.
	if err := os.Remove(filepath.Join(damRoot, "a.jpg")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Publish(filepath.Join(src, "a.jpg"), "sam", false); err != nil {
		t.Fatal(err)
	}

	records, err := p.ListPublished(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].PublishedBy != "sam" {
		t.Errorf("records = %+v, want one row by sam", records)
	}

	data, err := os.ReadFile(filepath.Join(src, PublishedFileName))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "a.jpg"); n != 1 {
		t.Errorf("register mentions a.jpg %d times, want 1", n)
	}
}
