package model

import "time"

// GenerationEvent is one line in the append-only event log. The JSON keys
// match the historical wire format consumed by the reporting dashboard, so
// they stay in Dutch. Once written an event is never mutated or deleted.
type GenerationEvent struct {
	Timestamp   time.Time `json:"tijdstip"`
	Filename    string    `json:"filename"`
	MessageType string    `json:"aanvraag_type"`
	OutputPath  string    `json:"output_path"`
	Size        int64     `json:"size"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// Date returns the event's calendar date in ISO form (YYYY-MM-DD).
func (e GenerationEvent) Date() string {
	return e.Timestamp.Format("2006-01-02")
}

// DayBucket aggregates the events of one calendar day. It is derived per
// query, never stored. Totaal == Geslaagd + Gefaald always holds.
type DayBucket struct {
	Datum    string `json:"datum"`
	Totaal   int    `json:"totaal"`
	Geslaagd int    `json:"geslaagd"`
	Gefaald  int    `json:"gefaald"`
	// SuccesPercentage is nil when Totaal is zero; a day without events has
	// no success rate, which is different from 0%.
	SuccesPercentage *float64 `json:"succes_percentage"`
}
