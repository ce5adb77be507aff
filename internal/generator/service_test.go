package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/model"
	"github.com/uzsteam/xmlator/internal/refgen"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/schema"
)

type stubSource struct {
	records []model.Record
	err     error
}

func (s stubSource) Load() ([]model.Record, error) { return s.records, s.err }

type memorySink struct {
	mu     sync.Mutex
	events []model.GenerationEvent
}

func (m *memorySink) Insert(_ context.Context, ev model.GenerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type testHarness struct {
	service *Service
	log     *eventlog.Log
	sink    *memorySink
	root    string
}

func newTestHarness(t *testing.T, records []model.Record) *testHarness {
	t.Helper()
	base := t.TempDir()
	log := eventlog.New(filepath.Join(base, "events.jsonl"))
	sink := &memorySink{}
	root := filepath.Join(base, "filedrop")
	svc := New(
		dataset.NewRegistry(stubSource{records: records}),
		message.NewComposer(refgen.New()),
		router.New(root),
		schema.NewStore(filepath.Join(base, "schemas")),
		log,
		sink,
	)
	svc.now = func() time.Time { return time.Date(2025, 10, 28, 13, 0, 0, 0, time.UTC) }
	return &testHarness{service: svc, log: log, sink: sink, root: root}
}

func testRecords() []model.Record {
	return []model.Record{
		{ID: 1, Label: "testpersoon", Types: []string{"*"}, Fields: map[string]string{
			"Burgerservicenr": "123456789",
			"Naam":            "Jan van Dam",
			"Geboortedat":     "2000-01-01",
			"Iban":            "NL00BANK0123456789",
		}},
	}
}

func TestGenerateWritesRoutedFile(t *testing.T) {
	h := newTestHarness(t, testRecords())
	res, err := h.service.Generate(context.Background(), Request{
		MessageType: "ZBM",
		Version:     "v0428",
		Selection:   "0",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	wantDir := filepath.Join(h.root, "UZI-GAP3", "UZSx_ACC1", "v0428")
	if filepath.Dir(res.Path) != wantDir {
		t.Fatalf("file written to %q, want directory %q", res.Path, wantDir)
	}
	if !strings.HasPrefix(res.Filename, "aanvraag_ZBM_20251028130000_") || !strings.HasSuffix(res.Filename, ".xml") {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if int64(len(data)) != res.Size {
		t.Fatalf("reported size %d, file has %d bytes", res.Size, len(data))
	}
	if !strings.Contains(string(data), "<Burgerservicenr>123456789</Burgerservicenr>") {
		t.Fatalf("record field missing from output")
	}
}

func TestGenerateReferencesDistinctAcrossCalls(t *testing.T) {
	h := newTestHarness(t, testRecords())
	first, err := h.service.Generate(context.Background(), Request{MessageType: "ZBM", Version: "v0428"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := h.service.Generate(context.Background(), Request{MessageType: "ZBM", Version: "v0428"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Refs.BerichtReferentienr == second.Refs.BerichtReferentienr {
		t.Fatalf("reference reused: %q", first.Refs.BerichtReferentienr)
	}
	if first.Filename == second.Filename {
		t.Fatalf("filename collision despite fresh references")
	}
}

func TestGenerateRecordsEvent(t *testing.T) {
	h := newTestHarness(t, testRecords())
	res, err := h.service.Generate(context.Background(), Request{MessageType: "VM", Version: "v0428"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	events, err := h.log.Read()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if !ev.Success || ev.Filename != res.Filename || ev.MessageType != "VM" || ev.OutputPath != res.Path {
		t.Fatalf("event mismatch: %+v", ev)
	}
	if len(h.sink.events) != 1 {
		t.Fatalf("event not mirrored to sink")
	}
}

func TestGenerateValidationIsDataNotError(t *testing.T) {
	h := newTestHarness(t, testRecords())
	res, err := h.service.Generate(context.Background(), Request{
		MessageType: "ZBM",
		Version:     "v0428",
		Validate:    true,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// No schema file on disk: validation reports a skip, the file is still
	// written and the request still succeeds.
	if res.Validation == nil {
		t.Fatalf("validation requested but result missing")
	}
	if !res.Validation.Valid || !res.Validation.Skipped {
		t.Fatalf("expected skip, got %+v", res.Validation)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestGenerateWithoutValidation(t *testing.T) {
	h := newTestHarness(t, testRecords())
	res, err := h.service.Generate(context.Background(), Request{MessageType: "ZBM", Version: "v0428"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Validation != nil {
		t.Fatalf("validation ran without being requested")
	}
}

func TestGenerateUnknownTypeAndVersion(t *testing.T) {
	h := newTestHarness(t, testRecords())
	if _, err := h.service.Generate(context.Background(), Request{MessageType: "Onbekend", Version: "v0428"}); !errors.Is(err, message.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := h.service.Generate(context.Background(), Request{MessageType: "ZBM", Version: "v9999"}); !errors.Is(err, router.ErrUnroutableType) {
		t.Fatalf("expected ErrUnroutableType, got %v", err)
	}
}

func TestGenerateEmptyDataset(t *testing.T) {
	h := newTestHarness(t, nil)
	if _, err := h.service.Generate(context.Background(), Request{MessageType: "ZBM", Version: "v0428"}); !errors.Is(err, dataset.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	events, err := h.log.Read()
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("selection failure must not be logged as a generation event")
	}
}

func TestGenerateAppliesOverrides(t *testing.T) {
	h := newTestHarness(t, testRecords())
	res, err := h.service.Generate(context.Background(), Request{
		MessageType: "ZBM",
		Version:     "v0428",
		Overrides:   map[string]string{"Iban": "NL99OVER0000000001"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "NL99OVER0000000001") {
		t.Fatalf("override not applied to output")
	}
}
