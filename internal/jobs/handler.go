// Package jobs contains the asynchronous job orchestration core: the handler
// contract, the registry, the job service owning operation state transitions,
// and the two dispatch strategies (in-process queue and durable delivery).
package jobs

import (
	"context"
	"encoding/json"

	"server/internal/domain"
)

// ProgressFunc reports handler progress. Values are clamped to [0,100] and
// persisted together with a human-readable step label.
type ProgressFunc func(ctx context.Context, percent int, step string)

// Job is the execution context handed to a handler. Handlers never touch
// operation status directly; progress flows through the callback and terminal
// transitions belong to the Service.
type Job struct {
	UserID      string
	OperationID string
	Input       json.RawMessage
	Meta        domain.OperationMetadata
	Progress    ProgressFunc
}

// ReportProgress invokes the progress callback when one is attached.
func (j Job) ReportProgress(ctx context.Context, percent int, step string) {
	if j.Progress != nil {
		j.Progress(ctx, percent, step)
	}
}

// Handler is one pluggable unit of background work. Implementations hold the
// business logic for a single operation type; errors propagate unmodified to
// the Service, which records them. Handlers must not retry on their own.
type Handler interface {
	Type() domain.OperationType
	Process(ctx context.Context, job Job) (json.RawMessage, error)
}
