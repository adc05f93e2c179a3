package jobs

import (
	"context"

	"server/internal/domain"
)

// Processor turns an enqueue request into an eventual Service invocation.
// Which implementation is wired in is a one-time, process-start decision.
type Processor interface {
	// Enqueue schedules execution of the request's pre-existing operation.
	// It returns quickly; job completion is observed through the operation
	// record, not the return value.
	Enqueue(ctx context.Context, req domain.JobRequest) error
}
