package dataset

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/uzsteam/xmlator/internal/model"
)

// ErrEmptyDataset is exported so callers elsewhere can compare errors using
// errors.Is; it signals that the source yielded zero usable records.
var ErrEmptyDataset = errors.New("dataset contains no records")

// SelectionRandom is the criteria sentinel for a uniformly random record. Any
// criteria that is not a valid in-range index is treated the same way.
const SelectionRandom = "random"

// Registry caches the records from a Source for the process lifetime. A load
// failure is returned to the caller and not cached, so the next request
// retries cleanly instead of carrying a poisoned cache forward.
type Registry struct {
	source Source

	mu      sync.RWMutex
	records []model.Record
	loaded  bool
}

// NewRegistry constructs a Registry around a Source.
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// List returns all records, loading them on first use.
func (r *Registry) List(ctx context.Context) ([]model.Record, error) {
	r.mu.RLock()
	if r.loaded {
		defer r.mu.RUnlock()
		return r.records, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.records, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := r.source.Load()
	if err != nil {
		// Deliberately leave loaded=false: the failure belongs to this
		// request only.
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	r.records = records
	r.loaded = true
	return r.records, nil
}

// Select returns one record eligible for messageType. criteria is either an
// explicit index into the eligible subset, the "random" sentinel, or anything
// else (including out-of-range indices), which falls back to a uniformly
// random eligible record.
func (r *Registry) Select(ctx context.Context, criteria, messageType string) (model.Record, error) {
	records, err := r.List(ctx)
	if err != nil {
		return model.Record{}, err
	}
	eligible := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rec.EligibleFor(messageType) {
			eligible = append(eligible, rec)
		}
	}
	if len(eligible) == 0 {
		return model.Record{}, ErrEmptyDataset
	}
	if idx, ok := parseIndex(criteria, len(eligible)); ok {
		return eligible[idx], nil
	}
	return eligible[rand.Intn(len(eligible))], nil
}

func parseIndex(criteria string, n int) (int, bool) {
	criteria = strings.TrimSpace(strings.ToLower(criteria))
	if criteria == "" || criteria == SelectionRandom || criteria == "willekeurig" {
		return 0, false
	}
	idx, err := strconv.Atoi(criteria)
	if err != nil || idx < 0 || idx >= n {
		// Historical behavior: invalid selection falls back to random rather
		// than failing the request.
		return 0, false
	}
	return idx, true
}
