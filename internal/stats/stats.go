// Package stats buckets the event log by calendar day and serves the
// windowed throughput series behind the reporting dashboard.
package stats

import (
	"math"
	"time"

	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/model"
)

// Aggregator derives day buckets from the event log. Buckets are recomputed
// per query, never stored, so two successive calls with no intervening
// appends return identical results.
type Aggregator struct {
	log *eventlog.Log
	now func() time.Time
}

// New constructs an Aggregator over the given log.
func New(log *eventlog.Log) *Aggregator {
	return &Aggregator{log: log, now: time.Now}
}

// Throughput returns one bucket per calendar day for the last days days
// ending today inclusive, oldest first. Days without events appear as
// zero-valued buckets so the series has no gaps. days <= 0 yields an empty
// series.
func (a *Aggregator) Throughput(days int) ([]model.DayBucket, error) {
	if days <= 0 {
		return []model.DayBucket{}, nil
	}
	events, err := a.log.Read()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]*model.DayBucket)
	for _, ev := range events {
		key := ev.Date()
		b, ok := counts[key]
		if !ok {
			b = &model.DayBucket{Datum: key}
			counts[key] = b
		}
		b.Totaal++
		if ev.Success {
			b.Geslaagd++
		} else {
			b.Gefaald++
		}
	}

	today := a.now()
	buckets := make([]model.DayBucket, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format("2006-01-02")
		bucket := model.DayBucket{Datum: key}
		if b, ok := counts[key]; ok {
			bucket = *b
		}
		if bucket.Totaal > 0 {
			pct := math.Round(100 * float64(bucket.Geslaagd) / float64(bucket.Totaal))
			bucket.SuccesPercentage = &pct
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// EventsFor returns the events whose calendar date matches date (YYYY-MM-DD),
// preserving original log order. No matches yields an empty slice.
func (a *Aggregator) EventsFor(date string) ([]model.GenerationEvent, error) {
	events, err := a.log.Read()
	if err != nil {
		return nil, err
	}
	out := make([]model.GenerationEvent, 0)
	for _, ev := range events {
		if ev.Date() == date {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Totals returns the all-time event count and overall success percentage
// (nil when the log is empty), for the dashboard tiles.
func (a *Aggregator) Totals() (int, *float64, error) {
	events, err := a.log.Read()
	if err != nil {
		return 0, nil, err
	}
	if len(events) == 0 {
		return 0, nil, nil
	}
	success := 0
	for _, ev := range events {
		if ev.Success {
			success++
		}
	}
	pct := math.Round(100 * float64(success) / float64(len(events)))
	return len(events), &pct, nil
}

// Latest returns the newest event, or false when the log is empty.
func (a *Aggregator) Latest() (model.GenerationEvent, bool, error) {
	events, err := a.log.Read()
	if err != nil {
		return model.GenerationEvent{}, false, err
	}
	if len(events) == 0 {
		return model.GenerationEvent{}, false, nil
	}
	return events[len(events)-1], true, nil
}
