package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/uzsteam/xmlator/internal/archive"
	"github.com/uzsteam/xmlator/internal/generator"
	"github.com/uzsteam/xmlator/internal/queue"
	"github.com/uzsteam/xmlator/internal/s3storage"
)

// Processor is plugged into the asynq worker loop. It fans a bulk job out
// over a bounded pool of goroutines, zips the generated files, and ships the
// archive to the distribution bucket when one is configured.
type Processor struct {
	service  *generator.Service
	archiver *archive.Archiver
	store    *s3storage.Storage // nil when no S3 endpoint is configured
	workers  int
}

// NewProcessor constructs a worker processor. store may be nil.
func NewProcessor(service *generator.Service, archiver *archive.Archiver, store *s3storage.Storage, workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{service: service, archiver: archiver, store: store, workers: workers}
}

// Handler registers the bulk job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.BulkGenerateTask, p.handleBulk)
	return mux
}

func (p *Processor) handleBulk(ctx context.Context, task *asynq.Task) error {
	var payload queue.BulkPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.Count <= 0 {
		return fmt.Errorf("bulk job %s: count must be positive", payload.JobID)
	}

	type outcome struct {
		idx    int
		result *generator.Result
		err    error
	}
	outcomes := make([]outcome, payload.Count)
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i := 0; i < payload.Count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := p.service.Generate(ctx, generator.Request{
				MessageType: payload.MessageType,
				Version:     payload.Version,
				Selection:   payload.Selection,
				Overrides:   payload.Overrides,
				Validate:    payload.Validate,
			})
			outcomes[i] = outcome{idx: i, result: res, err: err}
		}(i)
	}
	wg.Wait()

	var entries []archive.Entry
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			log.Printf("bulk %s: message %d failed: %v", payload.JobID, o.idx, o.err)
			continue
		}
		entries = append(entries, archive.Entry{Name: o.result.Filename, Path: o.result.Path})
	}
	if len(entries) == 0 {
		return fmt.Errorf("bulk job %s: all %d generations failed", payload.JobID, payload.Count)
	}

	zipName := fmt.Sprintf("bulk_%s_%s.zip", payload.MessageType, time.Now().Format("20060102150405"))
	zipPath, err := p.archiver.Create(zipName, entries)
	if err != nil {
		return fmt.Errorf("bulk job %s: archive: %w", payload.JobID, err)
	}
	if p.store != nil {
		objectKey, err := p.store.UploadArchive(ctx, zipPath)
		if err != nil {
			// The archive still exists locally; distribution is best-effort.
			log.Printf("bulk %s: upload archive failed: %v", payload.JobID, err)
		} else {
			log.Printf("bulk %s: archive uploaded as %s", payload.JobID, objectKey)
		}
	}
	log.Printf("bulk %s: %d generated, %d failed, archive %s", payload.JobID, len(entries), failed, zipPath)
	return nil
}
