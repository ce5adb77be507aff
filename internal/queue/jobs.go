package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// BulkGenerateTask is scheduled for each bulk generation request.
	BulkGenerateTask = "bulk:generate"
)

// BulkPayload is serialized into the task payload so the worker knows what to
// generate and how many.
type BulkPayload struct {
	JobID       string            `json:"job_id"`
	MessageType string            `json:"aanvraag_type"`
	Version     string            `json:"version"`
	Count       int               `json:"count"`
	Selection   string            `json:"selection"`
	Overrides   map[string]string `json:"overrides,omitempty"`
	Validate    bool              `json:"validate"`
}

// EnqueueBulk enqueues a bulk generation job.
func EnqueueBulk(ctx context.Context, client *asynq.Client, payload BulkPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(BulkGenerateTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue bulk task: %w", err)
	}
	return nil
}
