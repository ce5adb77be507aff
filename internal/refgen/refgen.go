// Package refgen produces the unique transactional reference numbers carried
// by every generated message.
package refgen

import (
	"fmt"
	"sync"
	"time"
)

// Reference kinds. Each kind keeps its own sequence, so references of
// different kinds may share a timestamp but never a full value.
const (
	KindGegevensUitwisseling = "GegUitNr"
	KindBerichtReferentie    = "BerRefNr"
	KindTransactieReferentie = "TraRefNr"
)

// Generator hands out references of the form <kind>_<yyyymmddhhmmss>_<seq>.
// The per-kind sequence increases monotonically for the process lifetime and
// never resets, so any two calls for the same kind yield distinct values even
// within the same second. Cross-process collisions are tolerated; downstream
// consumers de-duplicate on the full reference string.
type Generator struct {
	mu   sync.Mutex
	seqs map[string]uint64
	now  func() time.Time
}

// New constructs a Generator.
func New() *Generator {
	return &Generator{
		seqs: make(map[string]uint64),
		now:  time.Now,
	}
}

// Next returns the next unique reference for kind.
func (g *Generator) Next(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[kind]++
	return fmt.Sprintf("%s_%s_%d", kind, g.now().Format("20060102150405"), g.seqs[kind])
}
