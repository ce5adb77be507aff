package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/uzsteam/xmlator/internal/model"
)

// stubSource lets tests control what the registry sees without touching disk.
type stubSource struct {
	records []model.Record
	err     error
	calls   int
}

func (s *stubSource) Load() ([]model.Record, error) {
	s.calls++
	return s.records, s.err
}

func TestSelectFiltersByTag(t *testing.T) {
	src := &stubSource{records: []model.Record{
		{ID: 0, Types: []string{"ZBM"}, Fields: map[string]string{"Naam": "record1"}},
		{ID: 1, Fields: map[string]string{"Naam": "record2"}},
	}}
	reg := NewRegistry(src)
	// Selecting for VM must only ever return the untagged record, no matter
	// how often we ask.
	for i := 0; i < 20; i++ {
		rec, err := reg.Select(context.Background(), SelectionRandom, "VM")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if rec.Fields["Naam"] != "record2" {
			t.Fatalf("selected ZBM-tagged record for VM: %+v", rec)
		}
	}
}

func TestSelectUntypedSentinelAlwaysEligible(t *testing.T) {
	src := &stubSource{records: []model.Record{
		{ID: 0, Types: []string{model.TypeAny}, Fields: map[string]string{"Naam": "wild"}},
	}}
	reg := NewRegistry(src)
	rec, err := reg.Select(context.Background(), "0", "VM")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if rec.Fields["Naam"] != "wild" {
		t.Fatalf("expected sentinel-tagged record, got %+v", rec)
	}
}

func TestSelectByIndex(t *testing.T) {
	src := &stubSource{records: []model.Record{
		{ID: 0, Fields: map[string]string{"Naam": "a"}},
		{ID: 1, Fields: map[string]string{"Naam": "b"}},
		{ID: 2, Fields: map[string]string{"Naam": "c"}},
	}}
	reg := NewRegistry(src)
	rec, err := reg.Select(context.Background(), "1", "ZBM")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if rec.Fields["Naam"] != "b" {
		t.Fatalf("index selection returned %q", rec.Fields["Naam"])
	}
}

func TestInvalidCriteriaFallsBackToRandom(t *testing.T) {
	src := &stubSource{records: []model.Record{
		{ID: 0, Fields: map[string]string{"Naam": "only"}},
	}}
	reg := NewRegistry(src)
	for _, criteria := range []string{"", "random", "willekeurig", "99", "-1", "garbage"} {
		rec, err := reg.Select(context.Background(), criteria, "ZBM")
		if err != nil {
			t.Fatalf("criteria %q: %v", criteria, err)
		}
		if rec.Fields["Naam"] != "only" {
			t.Fatalf("criteria %q returned unexpected record", criteria)
		}
	}
}

func TestEmptyDataset(t *testing.T) {
	reg := NewRegistry(&stubSource{})
	if _, err := reg.List(context.Background()); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	if _, err := reg.Select(context.Background(), SelectionRandom, "ZBM"); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset from select, got %v", err)
	}
}

func TestNoEligibleRecordsForType(t *testing.T) {
	src := &stubSource{records: []model.Record{
		{ID: 0, Types: []string{"ZBM"}, Fields: map[string]string{}},
	}}
	reg := NewRegistry(src)
	if _, err := reg.Select(context.Background(), SelectionRandom, "VM"); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset for unmatched type, got %v", err)
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	src := &stubSource{err: errors.New("disk on fire")}
	reg := NewRegistry(src)
	if _, err := reg.List(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	// The failure must not poison the cache: once the source recovers, the
	// next request succeeds.
	src.err = nil
	src.records = []model.Record{{ID: 0, Fields: map[string]string{"Naam": "x"}}}
	records, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestListCachesAfterSuccess(t *testing.T) {
	src := &stubSource{records: []model.Record{{ID: 0, Fields: map[string]string{}}}}
	reg := NewRegistry(src)
	for i := 0; i < 3; i++ {
		if _, err := reg.List(context.Background()); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected exactly one source load, got %d", src.calls)
	}
}
