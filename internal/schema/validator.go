// Package schema validates generated documents against the XSD associated
// with a message type. Schemas live as <type>.xsd files in a configured
// directory; absence of a file is a valid "skip validation" state.
//
// Validation is structural: the document must be well-formed XML and its body
// must use exactly the element vocabulary the schema declares, with every
// required element present. Full XSD semantics (facets, patterns, type
// lexical spaces) are out of scope here; there is no maintained pure-Go XSD
// engine and the cgo libxml2 bindings are not an option for this deployment.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/beevik/etree"
)

// Result reports one validation attempt. Skipped distinguishes "no schema
// configured for this type" from a real pass; the two must never be conflated.
type Result struct {
	Valid   bool     `json:"valid"`
	Skipped bool     `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// compiled is the usable form of one parsed schema.
type compiled struct {
	declared map[string]bool
	required []string
}

// Store loads and caches schemas per message type for the process lifetime.
// Load failures are returned to the caller and not cached, so a transient
// read error does not poison later requests. A confirmed missing file is
// cached as a nil entry (permanent skip until restart).
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*compiled
}

// NewStore constructs a Store over a schema directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string]*compiled)}
}

// Validate checks a serialized document against the schema for messageType.
// It never returns an error to the caller: malformed input and schema
// violations are reported as data in the Result.
func (s *Store) Validate(xmlBytes []byte, messageType string) Result {
	sch, err := s.load(messageType)
	if err != nil {
		// The schema itself could not be read or parsed; report it as a
		// validation failure so the outcome is visible, not silently passed.
		return Result{Valid: false, Errors: []string{fmt.Sprintf("schema %s: %v", messageType, err)}}
	}
	if sch == nil {
		return Result{Valid: true, Skipped: true, Errors: []string{"geen XSD voor dit berichttype; validatie overgeslagen"}}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return Result{Valid: false, Errors: []string{fmt.Sprintf("parse error: %v", err)}}
	}
	root := doc.Root()
	if root == nil {
		return Result{Valid: false, Errors: []string{"parse error: document has no root element"}}
	}

	// Schema vocabulary applies to the message body; the SOAP wrapper and
	// routing header are governed by their own schemas.
	scope := root
	if body := root.FindElement("//Body"); body != nil {
		scope = body
	}

	present := make(map[string]bool)
	if scope == root {
		present[root.Tag] = true
	}
	collectTags(scope, present)

	var violations []string
	for _, name := range sch.required {
		if !present[name] {
			violations = append(violations, fmt.Sprintf("verplicht element ontbreekt: %s", name))
		}
	}
	var unexpected []string
	for tag := range present {
		if !sch.declared[tag] && tag != "Body" {
			unexpected = append(unexpected, tag)
		}
	}
	sort.Strings(unexpected)
	for _, tag := range unexpected {
		violations = append(violations, fmt.Sprintf("element niet gedeclareerd in schema: %s", tag))
	}
	return Result{Valid: len(violations) == 0, Errors: violations}
}

func (s *Store) load(messageType string) (*compiled, error) {
	s.mu.RLock()
	sch, ok := s.cache[messageType]
	s.mu.RUnlock()
	if ok {
		return sch, nil
	}

	path := filepath.Join(s.dir, messageType+".xsd")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.cache[messageType] = nil
		s.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err = compile(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[messageType] = sch
	s.mu.Unlock()
	return sch, nil
}

// compile extracts the element vocabulary from an XSD: every xs:element
// declaration's name, and whether it is required (minOccurs defaults to 1).
func compile(data []byte) (*compiled, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	sch := &compiled{declared: make(map[string]bool)}
	requiredSeen := make(map[string]bool)
	for _, el := range doc.FindElements("//element") {
		name := el.SelectAttrValue("name", "")
		if name == "" {
			name = stripPrefix(el.SelectAttrValue("ref", ""))
		}
		if name == "" {
			continue
		}
		sch.declared[name] = true
		if el.SelectAttrValue("minOccurs", "1") != "0" && !requiredSeen[name] {
			requiredSeen[name] = true
			sch.required = append(sch.required, name)
		}
	}
	return sch, nil
}

func collectTags(el *etree.Element, into map[string]bool) {
	for _, child := range el.ChildElements() {
		into[child.Tag] = true
		collectTags(child, into)
	}
}

func stripPrefix(ref string) string {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			return ref[i+1:]
		}
	}
	return ref
}
