package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomedit/internal/config"
	"photomedit/internal/library"
	"photomedit/internal/mediatypes"
	"photomedit/internal/metadata"
)

func newTestPackager(t *testing.T, limits config.Limits) (*Packager, string) {
	t.Helper()
	root := t.TempDir()
	reg, err := config.NewRegistry(&config.Config{
		Libraries: []config.Library{{ID: "family", Name: "Family", RootPath: root}},
		Limits:    limits,
	})
	if err != nil {
		t.Fatal(err)
	}
	scanner := library.NewScanner(reg, metadata.NewCodec(nil, nil), library.NoopCache{})
	return NewPackager(reg, scanner), root
}

func bigLimits() config.Limits {
	return config.Limits{MaxDownloadFiles: 1000, MaxDownloadBytes: 1 << 30}
}

func seed(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		path := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("data-"+n), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(content)
	}
	return out
}

func TestBuildArchiveAllScope(t *testing.T) {
	pkg, root := newTestPackager(t, bigLimits())
	seed(t, root, "beach/one.jpg", "beach/two.mp4", "box/three.jpg")

	var buf bytes.Buffer
	summary, err := pkg.BuildArchive("family", ScopeAll, "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Files != 3 {
		t.Errorf("files = %d", summary.Files)
	}

	files := readArchive(t, buf.Bytes())
	for _, name := range []string{"contents.txt", "beach/one.jpg", "beach/two.mp4", "box/three.jpg"} {
		if _, ok := files[name]; !ok {
			t.Errorf("archive missing %s", name)
		}
	}
	if files["beach/one.jpg"] != "data-beach/one.jpg" {
		t.Errorf("media content = %q", files["beach/one.jpg"])
	}
}

func TestBuildArchiveReviewedScope(t *testing.T) {
	pkg, root := newTestPackager(t, bigLimits())
	seed(t, root, "box/keep.jpg", "box/skip.jpg")

	codec := metadata.NewCodec(nil, nil)
	subject := "Keeper"
	if _, err := codec.Write(filepath.Join(root, "box/keep.jpg"), mediatypes.KindImage,
		metadata.Update{Subject: &subject, MarkReviewed: true}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	summary, err := pkg.BuildArchive("family", ScopeReviewed, "", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Files != 1 {
		t.Fatalf("files = %d", summary.Files)
	}

	files := readArchive(t, buf.Bytes())
	if _, ok := files["box/keep.jpg"]; !ok {
		t.Error("reviewed file missing")
	}
	if _, ok := files["box/skip.jpg"]; ok {
		t.Error("unreviewed file included")
	}
	// The sidecar travels with its media.
	if _, ok := files["box/keep.xmp"]; !ok {
		t.Error("sidecar missing")
	}

	manifest := files["contents.txt"]
	lines := strings.Split(strings.TrimSpace(manifest), "\n")
	if len(lines) != 2 {
		t.Fatalf("manifest lines = %d:\n%s", len(lines), manifest)
	}
	if !strings.HasPrefix(lines[0], "Path\tFileName\tReviewed") {
		t.Errorf("manifest header = %q", lines[0])
	}
	row := strings.Split(lines[1], "\t")
	if row[0] != "box/keep.jpg" || row[2] != "yes" || row[4] != "Keeper" {
		t.Errorf("manifest row = %v", row)
	}
}

func TestBuildArchiveNoOrphanSidecars(t *testing.T) {
	pkg, root := newTestPackager(t, bigLimits())
	seed(t, root, "box/skip.jpg")

	// A sidecar whose media is out of scope must not be exported alone.
	codec := metadata.NewCodec(nil, nil)
	if _, err := codec.Write(filepath.Join(root, "box/skip.jpg"), mediatypes.KindImage,
		metadata.Update{Subject: strPtr("unreviewed but annotated")}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := pkg.BuildArchive("family", ScopeReviewed, "", &buf); err != nil {
		t.Fatal(err)
	}
	files := readArchive(t, buf.Bytes())
	for name := range files {
		if strings.HasSuffix(name, ".xmp") {
			t.Errorf("orphan sidecar %s in archive", name)
		}
	}
}

func TestBuildArchiveFolderSubtree(t *testing.T) {
	pkg, root := newTestPackager(t, bigLimits())
	seed(t, root, "beach/one.jpg", "beach/deep/two.jpg", "box/other.jpg")

	var buf bytes.Buffer
	summary, err := pkg.BuildArchive("family", ScopeAll, "beach", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Files != 2 {
		t.Errorf("files = %d", summary.Files)
	}
	files := readArchive(t, buf.Bytes())
	if _, ok := files["box/other.jpg"]; ok {
		t.Error("file outside subtree included")
	}
	if _, ok := files["beach/deep/two.jpg"]; !ok {
		t.Error("nested file missing")
	}
}

func TestBuildArchiveLimits(t *testing.T) {
	tests := []struct {
		name   string
		limits config.Limits
	}{
		{"TooManyFiles", config.Limits{MaxDownloadFiles: 1, MaxDownloadBytes: 1 << 30}},
		{"TooManyBytes", config.Limits{MaxDownloadFiles: 1000, MaxDownloadBytes: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, root := newTestPackager(t, tt.limits)
			seed(t, root, "box/one.jpg", "box/two.jpg")

			var buf bytes.Buffer
			_, err := pkg.BuildArchive("family", ScopeAll, "", &buf)
			if !errors.Is(err, config.ErrLimitExceeded) {
				t.Fatalf("err = %v, want ErrLimitExceeded", err)
			}
			if buf.Len() != 0 {
				t.Errorf("%d archive bytes written despite limit rejection", buf.Len())
			}
		})
	}
}

func strPtr(s string) *string { return &s }
