// Package model contains simple struct definitions shared across packages.
package model

// TypeAny is the untyped sentinel: a record tagged with it is eligible for
// every message type, just like a record with no tags at all.
const TypeAny = "*"

// Record is one test-data entry as loaded from a dataset source. Fields maps
// raw source field names to values; Types restricts which message types the
// record may be used for (empty means all). Records are never mutated after
// loading.
type Record struct {
	ID     int               `json:"id"`
	Label  string            `json:"label,omitempty"`
	Types  []string          `json:"types,omitempty"`
	Fields map[string]string `json:"fields"`
}

// EligibleFor reports whether the record may be used to generate a message of
// the given type.
func (r Record) EligibleFor(messageType string) bool {
	if len(r.Types) == 0 {
		return true
	}
	for _, t := range r.Types {
		if t == messageType || t == TypeAny {
			return true
		}
	}
	return false
}

// CanonicalFields is the normalized field set derived from one Record for one
// generation request. Keys are canonical field names; a field with no source
// value is present with an empty string.
type CanonicalFields map[string]string
