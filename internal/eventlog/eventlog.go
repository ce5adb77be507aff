// Package eventlog owns the append-only generation event log: one
// self-describing JSON record per line.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/uzsteam/xmlator/internal/model"
)

// Log appends and reads generation events. Appends are serialized under a
// mutex and each line is written with a single Write call, so concurrent
// callers never interleave partial lines.
type Log struct {
	path string
	mu   sync.Mutex
}

// New constructs a Log at path. The file is created lazily on first append.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes one complete event line. The caller treats a returned error
// as an operational signal only; an append failure must never fail the
// generation request that produced the event.
func (l *Log) Append(event model.GenerationEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Read returns all events in log order. Lines that fail to parse are skipped
// rather than failing the whole read; the log is best-effort observability
// and a torn line from a crashed process must not block reporting.
func (l *Log) Read() ([]model.GenerationEvent, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []model.GenerationEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev model.GenerationEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}
	return events, nil
}
