package eventlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/uzsteam/xmlator/internal/model"
)

func testEvent(filename string, success bool) model.GenerationEvent {
	return model.GenerationEvent{
		Timestamp:   time.Date(2025, 10, 28, 13, 0, 0, 0, time.UTC),
		Filename:    filename,
		MessageType: "ZBM",
		OutputPath:  "/tmp/" + filename,
		Size:        1234,
		Success:     success,
	}
}

func TestAppendReadRoundTrip(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "events.jsonl"))
	want := []model.GenerationEvent{
		testEvent("a.xml", true),
		testEvent("b.xml", false),
	}
	want[1].Error = "schrijffout"
	for _, ev := range want {
		if err := log.Append(ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := log.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Filename != want[i].Filename || got[i].Success != want[i].Success || got[i].Error != want[i].Error {
			t.Fatalf("event %d mismatch: %+v vs %+v", i, got[i], want[i])
		}
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Fatalf("event %d timestamp drifted: %v", i, got[i].Timestamp)
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "nope.jsonl"))
	events, err := log.Read()
	if err != nil {
		t.Fatalf("missing log must read as empty, got %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestReadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log := New(path)
	if err := log.Append(testEvent("good.xml", true)); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Simulate a torn write from a crashed process.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"tijdstip\": tru\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()
	if err := log.Append(testEvent("after.xml", true)); err != nil {
		t.Fatalf("append after garbage: %v", err)
	}
	events, err := log.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected garbage line skipped, got %d events", len(events))
	}
	if events[0].Filename != "good.xml" || events[1].Filename != "after.xml" {
		t.Fatalf("log order broken: %v %v", events[0].Filename, events[1].Filename)
	}
}

func TestAppendConcurrent(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "events.jsonl"))
	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := log.Append(testEvent("c.xml", true)); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	events, err := log.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Every line must parse: interleaved partial writes would show up as
	// skipped lines and a short count.
	if len(events) != workers*perWorker {
		t.Fatalf("expected %d events, got %d", workers*perWorker, len(events))
	}
}
