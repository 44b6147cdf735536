package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"photomedit/internal/config"
	"photomedit/internal/curation"
	"photomedit/internal/engine"
	"photomedit/internal/export"
	"photomedit/internal/library"
	"photomedit/internal/logging"
	"photomedit/internal/mediaid"
	"photomedit/internal/mediatypes"
	"photomedit/internal/metadata"
	"photomedit/internal/navigation"
	"photomedit/internal/pathsafe"
	"photomedit/internal/upload"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	registry, err := config.NewRegistry(cfg)
	if err != nil {
		logging.Fatal("Registry error: %v", err)
	}

	opts := []engine.Option{}
	tool, err := metadata.NewExifTool()
	if err != nil {
		logging.Warn("Embedded tag support disabled: %v", err)
	} else {
		opts = append(opts, engine.WithTagTool(tool, tool))
	}

	eng := engine.New(registry, opts...)
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      setupRouter(eng),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv)

	logging.Info("PhotoMedit listening on %s (started in %v)", srv.Addr, time.Since(startTime).Round(time.Millisecond))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(eng *engine.Engine) *mux.Router {
	s := &server{engine: eng}
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/libraries", s.listLibraries).Methods("GET")
	api.HandleFunc("/folders", s.listFolders).Methods("GET")
	api.HandleFunc("/folders", s.createFolder).Methods("POST")
	api.HandleFunc("/media", s.listMedia).Methods("GET")
	api.HandleFunc("/media/metadata", s.getMetadata).Methods("GET")
	api.HandleFunc("/media/metadata", s.updateMetadata).Methods("PATCH")
	api.HandleFunc("/media/technical", s.getTechnical).Methods("GET")
	api.HandleFunc("/media/navigate", s.navigate).Methods("GET")
	api.HandleFunc("/media/reject", s.reject).Methods("POST")
	api.HandleFunc("/media/restore", s.restore).Methods("POST")
	api.HandleFunc("/media/correction", s.flagCorrection).Methods("POST")
	api.HandleFunc("/media/correction", s.clearCorrection).Methods("DELETE")
	api.HandleFunc("/corrections", s.listCorrections).Methods("GET")
	api.HandleFunc("/publish", s.publish).Methods("POST")
	api.HandleFunc("/publish/config", s.publishConfig).Methods("GET")
	api.HandleFunc("/upload", s.uploadBatch).Methods("POST")
	api.HandleFunc("/export", s.exportArchive).Methods("GET")

	return r
}

func handleShutdown(srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %s, shutting down", sig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	logging.Info("Shutdown complete")
}

// server adapts HTTP requests 1:1 onto engine operations.
type server struct {
	engine *engine.Engine
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listLibraries(w http.ResponseWriter, r *http.Request) {
	type libraryInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	libs := s.engine.Libraries()
	out := make([]libraryInfo, 0, len(libs))
	for _, lib := range libs {
		out = append(out, libraryInfo{ID: lib.ID, Name: lib.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.engine.ListFolders(r.URL.Query().Get("library"), r.URL.Query().Get("parent"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Library string `json:"library"`
		Parent  string `json:"parent"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	folder, err := s.engine.CreateFolder(req.Library, req.Parent, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (s *server) listMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.engine.ListMedia(q.Get("library"), q.Get("folder"), library.ParseFilter(q.Get("filter")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) getMetadata(w http.ResponseWriter, r *http.Request) {
	item, meta, err := s.engine.Discover(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item, "metadata": meta})
}

// updateRequest is the wire form of a partial metadata edit.
type updateRequest struct {
	EventDate            *string               `json:"eventDate"`
	EventDateDisplay     *string               `json:"eventDateDisplay"`
	EventDatePrecision   *string               `json:"eventDatePrecision"`
	EventDateApproximate *bool                 `json:"eventDateApproximate"`
	Subject              *string               `json:"subject"`
	Notes                *string               `json:"notes"`
	People               []string              `json:"people"`
	LocationName         *string               `json:"locationName"`
	LocationCoords       *metadata.Coordinates `json:"locationCoords"`
	ReviewStatus         *string               `json:"reviewStatus"`
	MarkReviewed         bool                  `json:"markReviewed"`
	ResolveLocation      bool                  `json:"resolveLocation"`
}

func (req updateRequest) toUpdate() (metadata.Update, error) {
	u := metadata.Update{
		EventDateDisplay:     req.EventDateDisplay,
		EventDateApproximate: req.EventDateApproximate,
		Subject:              req.Subject,
		Notes:                req.Notes,
		People:               req.People,
		LocationName:         req.LocationName,
		LocationCoords:       req.LocationCoords,
		MarkReviewed:         req.MarkReviewed,
	}
	if req.EventDate != nil {
		parsed := metadata.ParseEventDate(*req.EventDate)
		if parsed == nil {
			return u, fmt.Errorf("unparseable event date %q", *req.EventDate)
		}
		u.EventDate = parsed
	}
	if req.EventDatePrecision != nil {
		p := metadata.DatePrecision(*req.EventDatePrecision)
		u.EventDatePrecision = &p
	}
	if req.ReviewStatus != nil {
		st := metadata.ReviewStatus(*req.ReviewStatus)
		u.ReviewStatus = &st
	}
	return u, nil
}

func (s *server) updateMetadata(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	merged, err := s.engine.Write(r.URL.Query().Get("id"), update, req.ResolveLocation)
	if err != nil && !errors.Is(err, metadata.ErrMetadataWriteFailed) {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{"metadata": merged}
	if err != nil {
		// Sidecar committed; embedded tags are stale.
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getTechnical(w http.ResponseWriter, r *http.Request) {
	tech, err := s.engine.Technical(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

func (s *server) navigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next, err := s.engine.Navigate(q.Get("id"),
		navigation.Direction(q.Get("direction")), library.ParseFilter(q.Get("filter")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": next})
}

func (s *server) reject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reject(r.URL.Query().Get("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (s *server) restore(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Restore(r.URL.Query().Get("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (s *server) flagCorrection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FlaggedBy string `json:"flaggedBy"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.engine.FlagCorrection(r.URL.Query().Get("id"), req.FlaggedBy, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flagged"})
}

func (s *server) clearCorrection(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearCorrection(r.URL.Query().Get("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *server) listCorrections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	corrections, err := s.engine.ListCorrections(q.Get("library"), q.Get("folder"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, corrections)
}

func (s *server) publish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaIDs                []string `json:"mediaIds"`
		PublishedBy             string   `json:"publishedBy"`
		PreserveFolderStructure *bool    `json:"preserveFolderStructure"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	preserve := true
	if req.PreserveFolderStructure != nil {
		preserve = *req.PreserveFolderStructure
	}
	summary, err := s.engine.Publish(req.MediaIDs, req.PublishedBy, preserve)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) publishConfig(w http.ResponseWriter, r *http.Request) {
	dam := s.engine.DAMConfig()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": dam.Enabled,
		"name":    dam.Name,
		"url":     dam.URL,
	})
}

func (s *server) uploadBatch(w http.ResponseWriter, r *http.Request) {
	// Bound the request body before buffering anything, so an oversized
	// batch fails here instead of filling the temp filesystem. The slack
	// covers multipart framing around MaxUploadBytesTotal of payload.
	limit := s.engine.Limits().MaxUploadBytesTotal + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart body required"})
		return
	}
	// Multipart streaming gives no sizes up front; buffer to temp files so
	// the whole batch can be limit-checked before ingestion.
	name := r.URL.Query().Get("name")
	var files []upload.File
	var cleanup []*os.File
	defer func() {
		for _, f := range cleanup {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if part.FormName() == "name" {
			data, _ := io.ReadAll(io.LimitReader(part, 256))
			name = string(data)
			continue
		}
		if part.FileName() == "" {
			continue
		}
		tmp, err := os.CreateTemp("", "photomedit-upload-*")
		if err != nil {
			writeError(w, err)
			return
		}
		cleanup = append(cleanup, tmp)
		size, err := tmp.ReadFrom(part)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := tmp.Seek(0, 0); err != nil {
			writeError(w, err)
			return
		}
		files = append(files, upload.File{Name: part.FileName(), Size: size, Data: tmp})
	}

	result, err := s.engine.IngestBatch(name, files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) exportArchive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := export.ScopeAll
	if q.Get("scope") == string(export.ScopeReviewed) {
		scope = export.ScopeReviewed
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="photomedit-export.zip"`)
	if _, err := s.engine.BuildArchive(q.Get("library"), scope, q.Get("folder"), w); err != nil {
		// Limit violations are detected before any bytes stream out.
		if errors.Is(err, engine.ErrLimitExceeded) {
			w.Header().Del("Content-Disposition")
			writeError(w, err)
			return
		}
		logging.Error("export failed mid-stream: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encoding response: %v", err)
	}
}

// writeError maps engine error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pathsafe.ErrPathTraversal),
		errors.Is(err, mediaid.ErrMalformedID),
		errors.Is(err, mediatypes.ErrUnsupportedFileType),
		errors.Is(err, engine.ErrBadFolderName),
		errors.Is(err, upload.ErrBadBatchName),
		errors.Is(err, curation.ErrDAMDisabled),
		errors.Is(err, navigation.ErrBadDirection):
		status = http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound), errors.Is(err, library.ErrUnknownLibrary):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrLimitExceeded):
		status = http.StatusRequestEntityTooLarge
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
