package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomedit/internal/config"
	"photomedit/internal/engine"
	"photomedit/internal/library"
	"photomedit/internal/mediaid"
	"photomedit/internal/metadata"
	"photomedit/internal/navigation"
	"photomedit/internal/pathsafe"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
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
	return setupRouter(engine.New(reg)), root
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListLibrariesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/libraries", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var libs []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &libs); err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || libs[0].ID != "family" || libs[0].Name != "Family" {
		t.Errorf("libraries = %+v, want single family entry", libs)
	}
}

func TestMediaEndpointsRoundTrip(t *testing.T) {
	router, root := newTestRouter(t)

	if err := os.MkdirAll(filepath.Join(root, "box"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "box", "a.jpg"), []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}
	id := mediaid.Encode("family", "box/a.jpg")

	patch := httptest.NewRequest("PATCH", "/api/media/metadata?id="+id,
		strings.NewReader(`{"subject":"Birthday","markReviewed":true}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, patch)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", w.Code, w.Body.String())
	}

	get := httptest.NewRequest("GET", "/api/media/metadata?id="+id, http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, get)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Metadata metadata.LogicalMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Metadata.Subject != "Birthday" {
		t.Errorf("subject = %q, want Birthday", resp.Metadata.Subject)
	}
	if resp.Metadata.ReviewStatus != metadata.StatusReviewed {
		t.Errorf("review status = %q, want reviewed", resp.Metadata.ReviewStatus)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Traversal", pathsafe.ErrPathTraversal, http.StatusBadRequest},
		{"MalformedID", mediaid.ErrMalformedID, http.StatusBadRequest},
		{"BadFolderName", engine.ErrBadFolderName, http.StatusBadRequest},
		{"BadDirection", navigation.ErrBadDirection, http.StatusBadRequest},
		{"NotFound", library.ErrNotFound, http.StatusNotFound},
		{"UnknownLibrary", library.ErrUnknownLibrary, http.StatusNotFound},
		{"LimitExceeded", engine.ErrLimitExceeded, http.StatusRequestEntityTooLarge},
		{"BodyTooLarge", &http.MaxBytesError{Limit: 5}, http.StatusRequestEntityTooLarge},
		{"Other", os.ErrPermission, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestUpdateRequestToUpdate(t *testing.T) {
	subject := "Picnic"
	t.Run("ValidDate", func(t *testing.T) {
		date := "2018-07-04"
		req := updateRequest{EventDate: &date, Subject: &subject}
		u, err := req.toUpdate()
		if err != nil {
			t.Fatal(err)
		}
		if u.EventDate == nil || u.EventDate.Year() != 2018 {
			t.Errorf("event date = %v, want year 2018", u.EventDate)
		}
		if u.Subject == nil || *u.Subject != "Picnic" {
			t.Errorf("subject = %v, want Picnic", u.Subject)
		}
	})

	t.Run("UnparseableDate", func(t *testing.T) {
		date := "next tuesday"
		req := updateRequest{EventDate: &date}
		if _, err := req.toUpdate(); err == nil {
			t.Error("expected error for unparseable date")
		}
	})

	t.Run("PrecisionAndStatus", func(t *testing.T) {
		prec := "MONTH"
		status := "reviewed"
		req := updateRequest{EventDatePrecision: &prec, ReviewStatus: &status}
		u, err := req.toUpdate()
		if err != nil {
			t.Fatal(err)
		}
		if u.EventDatePrecision == nil || *u.EventDatePrecision != metadata.PrecisionMonth {
			t.Errorf("precision = %v, want MONTH", u.EventDatePrecision)
		}
		if u.ReviewStatus == nil || *u.ReviewStatus != metadata.StatusReviewed {
			t.Errorf("review status = %v, want reviewed", u.ReviewStatus)
		}
	})
}

func TestUploadBodyBounded(t *testing.T) {
	router, _ := newTestRouter(t)

	// Test limits allow 1 MiB total plus framing slack; send well past it.
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "huge.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(bytes.Repeat([]byte{0xFF}, 3<<20)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload?name=box", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestUnknownLibraryReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/media?library=nope", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
