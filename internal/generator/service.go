// Package generator orchestrates one generation request: record selection,
// normalization, composition, routing, optional validation, and event
// logging.
package generator

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/model"
	"github.com/uzsteam/xmlator/internal/normalize"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/schema"
)

// EventSink receives a best-effort copy of every logged event, typically the
// Postgres mirror. Sink failures are reported operationally and never fail a
// request.
type EventSink interface {
	Insert(ctx context.Context, ev model.GenerationEvent) error
}

// Request describes one generation call from the request layer.
type Request struct {
	MessageType string            `json:"aanvraag_type"`
	Version     string            `json:"version"`
	Selection   string            `json:"selection"`
	Overrides   map[string]string `json:"overrides"`
	Validate    bool              `json:"validate"`
}

// Result is the outcome of a successful generation. Validation is nil when
// validation was not requested; when present it may truthfully report a
// schema failure or skip even though the file was written.
type Result struct {
	Path       string             `json:"output_path"`
	Filename   string             `json:"filename"`
	Size       int64              `json:"size"`
	Refs       message.References `json:"refs"`
	Fields     map[string]string  `json:"fields"`
	Validation *schema.Result     `json:"validation,omitempty"`
}

// Service wires the pipeline stages together. Each request executes
// independently; shared state lives inside the stage implementations.
type Service struct {
	registry *dataset.Registry
	composer *message.Composer
	routes   *router.Router
	schemas  *schema.Store
	events   *eventlog.Log
	sink     EventSink
	now      func() time.Time
}

// New constructs a Service. sink may be nil.
func New(registry *dataset.Registry, composer *message.Composer, routes *router.Router, schemas *schema.Store, events *eventlog.Log, sink EventSink) *Service {
	return &Service{
		registry: registry,
		composer: composer,
		routes:   routes,
		schemas:  schemas,
		events:   events,
		sink:     sink,
		now:      time.Now,
	}
}

// Generate runs the full pipeline for one request. Dataset, composition, and
// routing errors abort the request; validation failures are data in the
// Result; event log trouble is reported operationally only.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	rec, err := s.registry.Select(ctx, req.Selection, req.MessageType)
	if err != nil {
		return nil, err
	}
	fields := normalize.Canonical(rec)

	msg, err := s.composer.Compose(req.MessageType, fields, req.Overrides)
	if err != nil {
		return nil, err
	}

	dir, err := s.routes.Route(req.MessageType, req.Version)
	if err != nil {
		return nil, err
	}
	now := s.now()
	filename := router.Filename(req.MessageType, refSuffix(msg.Refs.BerichtReferentienr), now)

	path, err := s.routes.Write(dir, filename, msg.XML)
	if err != nil {
		s.record(ctx, model.GenerationEvent{
			Timestamp:   now,
			Filename:    filename,
			MessageType: req.MessageType,
			OutputPath:  path,
			Success:     false,
			Error:       err.Error(),
		})
		return nil, err
	}

	result := &Result{
		Path:     path,
		Filename: filename,
		Size:     int64(len(msg.XML)),
		Refs:     msg.Refs,
		Fields:   msg.Fields,
	}
	if req.Validate {
		vr := s.schemas.Validate(msg.XML, req.MessageType)
		result.Validation = &vr
	}

	s.record(ctx, model.GenerationEvent{
		Timestamp:   now,
		Filename:    filename,
		MessageType: req.MessageType,
		OutputPath:  path,
		Size:        result.Size,
		Success:     true,
	})
	return result, nil
}

// record appends the event to the log and mirrors it to the sink. Both are
// best-effort: generation outcomes must never depend on observability.
func (s *Service) record(ctx context.Context, ev model.GenerationEvent) {
	if err := s.events.Append(ev); err != nil {
		log.Printf("event log append failed: %v", err)
	}
	if s.sink != nil {
		if err := s.sink.Insert(ctx, ev); err != nil {
			log.Printf("event mirror insert failed: %v", err)
		}
	}
}

// refSuffix extracts the trailing sequence number from a reference so the
// filename stays short while still embedding a unique component.
func refSuffix(ref string) string {
	if i := strings.LastIndex(ref, "_"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
