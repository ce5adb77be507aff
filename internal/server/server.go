// Package server wires together HTTP routes, dependency injection, and
// business logic for the generation and reporting APIs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/uzsteam/xmlator/internal/archive"
	"github.com/uzsteam/xmlator/internal/config"
	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/generator"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/queue"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/s3storage"
	"github.com/uzsteam/xmlator/internal/schema"
	"github.com/uzsteam/xmlator/internal/stats"
)

// Server hosts the HTTP request layer. It stitches together configuration,
// the generation pipeline, reporting queries, and bulk archive handling.
type Server struct {
	cfg      *config.Config
	service  *generator.Service
	stats    *stats.Aggregator
	schemas  *schema.Store
	archiver *archive.Archiver
	store    *s3storage.Storage // nil when S3 is not configured
	queue    *asynq.Client      // nil when Redis is not configured
	server   *http.Server
	once     sync.Once
	cleanup  sync.Once
}

// New constructs a Server. store and queueClient may be nil; the matching
// endpoints then report the feature as unavailable.
func New(cfg *config.Config, service *generator.Service, agg *stats.Aggregator, schemas *schema.Store, archiver *archive.Archiver, store *s3storage.Storage, queueClient *asynq.Client) *Server {
	return &Server{
		cfg:      cfg,
		service:  service,
		stats:    agg,
		schemas:  schemas,
		archiver: archiver,
		store:    store,
		queue:    queueClient,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", s.handleHealth)
		mux.HandleFunc("/ready", s.handleReady)
		mux.HandleFunc("/api/generate", s.handleGenerate)
		mux.HandleFunc("/api/validate", s.handleValidate)
		mux.HandleFunc("/api/bulk", s.handleBulk)
		mux.HandleFunc("/api/results", s.handleResults)
		mux.HandleFunc("/api/results/zip", s.handleResultsZip)
		mux.HandleFunc("/api/xml/throughput", s.handleThroughput)
		mux.HandleFunc("/api/xml-stats", s.handleThroughput) // legacy alias
		mux.HandleFunc("/api/xml/events", s.handleEvents)
		mux.HandleFunc("/api/test/totaal", s.handleTotaal)
		mux.HandleFunc("/api/test/laatste", s.handleLaatste)
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: corsMiddleware(loggingMiddleware(mux)),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{}
	ok := true
	if err := os.MkdirAll(s.cfg.DownloadsDir, 0o750); err != nil {
		checks["downloads_writable"] = false
		ok = false
	} else {
		probe := filepath.Join(s.cfg.DownloadsDir, ".probe")
		if err := os.WriteFile(probe, nil, 0o640); err != nil {
			checks["downloads_writable"] = false
			ok = false
		} else {
			os.Remove(probe)
			checks["downloads_writable"] = true
		}
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{"ready": ok, "checks": checks})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req generator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.MessageType == "" {
		http.Error(w, "aanvraag_type is required", http.StatusBadRequest)
		return
	}
	if req.Version == "" {
		req.Version = "v0428"
	}
	result, err := s.service.Generate(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	messageType := r.URL.Query().Get("type")
	if messageType == "" {
		http.Error(w, "type query parameter is required", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty document", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, s.schemas.Validate(data, messageType))
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.queue == nil {
		http.Error(w, "bulk generation unavailable: no queue configured", http.StatusServiceUnavailable)
		return
	}
	var payload queue.BulkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if payload.MessageType == "" || payload.Count <= 0 {
		http.Error(w, "aanvraag_type and a positive count are required", http.StatusBadRequest)
		return
	}
	if payload.Version == "" {
		payload.Version = "v0428"
	}
	payload.JobID = uuid.NewString()
	if err := queue.EnqueueBulk(r.Context(), s.queue, payload); err != nil {
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": payload.JobID, "status": "queued"})
}

// generatedFile is one row in the results listing.
type generatedFile struct {
	Tijdstip    string `json:"tijdstip"`
	Filename    string `json:"filename"`
	MessageType string `json:"aanvraag_type"`
	OutputPath  string `json:"output_path"`
	Size        int64  `json:"size"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.cleanup.Do(func() {
		// One-time housekeeping per process, triggered lazily like the
		// original dashboard did.
		s.archiver.CleanupOld(s.cfg.DownloadsMaxAge)
	})
	files := s.listGenerated()
	sort.Slice(files, func(i, j int) bool { return files[i].Tijdstip > files[j].Tijdstip })
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generated": files,
		"zip_limits": map[string]int64{
			"max_files":       int64(s.cfg.ZipMaxFiles),
			"max_file_bytes":  s.cfg.ZipMaxFileBytes,
			"max_total_bytes": s.cfg.ZipMaxTotalBytes,
		},
	})
}

func (s *Server) listGenerated() []generatedFile {
	var out []generatedFile
	_ = filepath.WalkDir(s.cfg.OutputRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".xml") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, generatedFile{
			Tijdstip:    info.ModTime().Format(time.RFC3339),
			Filename:    d.Name(),
			MessageType: typeFromFilename(d.Name()),
			OutputPath:  path,
			Size:        info.Size(),
		})
		return nil
	})
	return out
}

// typeFromFilename recovers the message type from the generated filename
// convention aanvraag_<type>_<timestamp>_<seq>.xml.
func typeFromFilename(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) >= 2 && parts[0] == "aanvraag" {
		return parts[1]
	}
	return ""
}

func (s *Server) handleResultsZip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Filenames []string `json:"filenames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Filenames) == 0 {
		http.Error(w, "missing 'filenames' list", http.StatusBadRequest)
		return
	}
	known := make(map[string]string)
	for _, f := range s.listGenerated() {
		known[f.Filename] = f.OutputPath
	}
	var entries []archive.Entry
	for _, name := range req.Filenames {
		// Reject path separators outright; archive names come from listings.
		if name == "" || name != filepath.Base(name) {
			continue
		}
		if path, ok := known[name]; ok {
			entries = append(entries, archive.Entry{Name: name, Path: path})
		}
	}
	if len(entries) == 0 {
		http.Error(w, "none of the requested files were found", http.StatusNotFound)
		return
	}
	zipName := fmt.Sprintf("bulk_selected_%s.zip", time.Now().Format("20060102150405"))
	zipPath, err := s.archiver.Create(zipName, entries)
	if err != nil {
		if errors.Is(err, archive.ErrLimitExceeded) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to create archive", http.StatusInternalServerError)
		return
	}
	resp := map[string]string{"archive": zipName, "path": zipPath}
	if s.store != nil {
		if objectKey, err := s.store.UploadArchive(r.Context(), zipPath); err == nil {
			if url, err := s.store.PresignArchiveURL(r.Context(), objectKey, time.Hour); err == nil {
				resp["url"] = url
			}
		} else {
			log.Printf("upload archive failed: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleThroughput(w http.ResponseWriter, r *http.Request) {
	days := 14
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			days = parsed
		}
	}
	buckets, err := s.stats.Throughput(days)
	if err != nil {
		http.Error(w, "failed to read event log", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"aggregated": buckets})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	events, err := s.stats.EventsFor(date)
	if err != nil {
		http.Error(w, "failed to read event log", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleTotaal(w http.ResponseWriter, r *http.Request) {
	totaal, pct, err := s.stats.Totals()
	if err != nil {
		http.Error(w, "failed to read event log", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"totaal": totaal, "succes_percentage": pct})
}

func (s *Server) handleLaatste(w http.ResponseWriter, r *http.Request) {
	ev, ok, err := s.stats.Latest()
	if err != nil {
		http.Error(w, "failed to read event log", http.StatusInternalServerError)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]string{})
		return
	}
	status := "Gefaald"
	if ev.Success {
		status = "Geslaagd"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"datum":  ev.Timestamp.Format(time.RFC3339),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, dataset.ErrEmptyDataset):
		return http.StatusConflict
	case errors.Is(err, message.ErrUnknownType), errors.Is(err, router.ErrUnroutableType):
		return http.StatusBadRequest
	case errors.Is(err, router.ErrWriteCollision):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
