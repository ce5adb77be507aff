package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uzsteam/xmlator/internal/archive"
	"github.com/uzsteam/xmlator/internal/config"
	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/generator"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/model"
	"github.com/uzsteam/xmlator/internal/refgen"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/schema"
	"github.com/uzsteam/xmlator/internal/stats"
)

type stubSource struct{ records []model.Record }

func (s stubSource) Load() ([]model.Record, error) { return s.records, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Address:          ":0",
		OutputRoot:       filepath.Join(base, "filedrop"),
		DownloadsDir:     filepath.Join(base, "downloads"),
		ZipMaxFiles:      50,
		ZipMaxFileBytes:  10 << 20,
		ZipMaxTotalBytes: 50 << 20,
		DownloadsMaxAge:  24 * time.Hour,
	}
	log := eventlog.New(filepath.Join(base, "events.jsonl"))
	records := []model.Record{{
		ID:    1,
		Types: []string{"*"},
		Fields: map[string]string{
			"Burgerservicenr": "123456789",
			"Naam":            "Jan van Dam",
		},
	}}
	schemas := schema.NewStore(filepath.Join(base, "schemas"))
	svc := generator.New(
		dataset.NewRegistry(stubSource{records: records}),
		message.NewComposer(refgen.New()),
		router.New(cfg.OutputRoot),
		schemas,
		log,
		nil,
	)
	archiver := archive.New(cfg.DownloadsDir, archive.Limits{
		MaxFiles:      cfg.ZipMaxFiles,
		MaxFileBytes:  cfg.ZipMaxFileBytes,
		MaxTotalBytes: cfg.ZipMaxTotalBytes,
	})
	return New(cfg, svc, stats.New(log), schemas, archiver, nil, nil)
}

func TestHandleGenerate(t *testing.T) {
	s := newTestServer(t)
	body := `{"aanvraag_type": "ZBM"}`
	r := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleGenerate(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var res generator.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(res.Filename, "aanvraag_ZBM_") {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
	if res.Validation != nil {
		t.Fatalf("validation ran without being requested")
	}
}

func TestHandleGenerateRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		body string
		want int
	}{
		{`{`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
		{`{"aanvraag_type": "Onbekend"}`, http.StatusBadRequest},
		{`{"aanvraag_type": "ZBM", "version": "v9999"}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(c.body))
		w := httptest.NewRecorder()
		s.handleGenerate(w, r)
		if w.Code != c.want {
			t.Fatalf("body %q: status %d, want %d", c.body, w.Code, c.want)
		}
	}
	r := httptest.NewRequest(http.MethodGet, "/api/generate", nil)
	w := httptest.NewRecorder()
	s.handleGenerate(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET allowed on generate endpoint")
	}
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/validate?type=ZBM", bytes.NewReader([]byte("<UwvZwMeldingInternBody/>")))
	w := httptest.NewRecorder()
	s.handleValidate(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var res schema.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// No schema on disk in the test store: explicit skip, not a failure.
	if !res.Valid || !res.Skipped {
		t.Fatalf("expected skip, got %+v", res)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewReader([]byte("<x/>")))
	w = httptest.NewRecorder()
	s.handleValidate(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing type accepted: %d", w.Code)
	}
}

func TestHandleBulkWithoutQueue(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/bulk", strings.NewReader(`{"aanvraag_type":"ZBM","count":5}`))
	w := httptest.NewRecorder()
	s.handleBulk(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("bulk without queue: status %d", w.Code)
	}
}

func TestHandleResultsListsGeneratedFiles(t *testing.T) {
	s := newTestServer(t)
	gen := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"aanvraag_type": "ZBM"}`))
	w := httptest.NewRecorder()
	s.handleGenerate(w, gen)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate: %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	w = httptest.NewRecorder()
	s.handleResults(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("results: %d", w.Code)
	}
	var res struct {
		Generated []generatedFile  `json:"generated"`
		ZipLimits map[string]int64 `json:"zip_limits"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Generated) != 1 {
		t.Fatalf("expected 1 listed file, got %d", len(res.Generated))
	}
	if res.Generated[0].MessageType != "ZBM" {
		t.Fatalf("type not recovered from filename: %+v", res.Generated[0])
	}
	if res.ZipLimits["max_files"] != 50 {
		t.Fatalf("zip limits missing: %v", res.ZipLimits)
	}
}

func TestHandleThroughputShape(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/api/xml/throughput?days=3", nil)
	w := httptest.NewRecorder()
	s.handleThroughput(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var res struct {
		Aggregated []model.DayBucket `json:"aggregated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Aggregated) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(res.Aggregated))
	}
}

func TestTypeFromFilename(t *testing.T) {
	if got := typeFromFilename("aanvraag_ZBM_20251028130000_17.xml"); got != "ZBM" {
		t.Fatalf("typeFromFilename = %q", got)
	}
	if got := typeFromFilename("random.xml"); got != "" {
		t.Fatalf("unexpected type for foreign file: %q", got)
	}
}
