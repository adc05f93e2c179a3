package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
	"server/internal/providers/taskqueue"
)

// DefaultDispatchDelay spaces out scheduled (non-manual) work so a scheduler
// scan does not hit the generation provider with one burst.
const DefaultDispatchDelay = 30 * time.Second

// CallbackPayload is the body delivered back to this service's internal job
// endpoint by the task-delivery system.
type CallbackPayload struct {
	OperationID string          `json:"operation_id"`
	UserID      string          `json:"user_id"`
	InputData   json.RawMessage `json:"input_data,omitempty"`
}

// callbackRoutes maps each operation type onto its internal callback path.
var callbackRoutes = map[domain.OperationType]string{
	domain.OperationCareerPlan:            "/internal/jobs/career_plan_generation",
	domain.OperationWeeklyReflection:      "/internal/jobs/weekly_reflection",
	domain.OperationPerformanceAssessment: "/internal/jobs/performance_assessment",
	domain.OperationIntegrationSync:       "/internal/jobs/integration_sync",
	domain.OperationBulkExport:            "/internal/jobs/bulk_export",
}

// DispatchOptions configures the durable dispatch processor.
type DispatchOptions struct {
	Client *taskqueue.Client
	// CallbackBaseURL is this service's externally reachable base URL.
	CallbackBaseURL string
	// Secret is the pre-shared bearer token the callback endpoint verifies.
	Secret string
	Delay  time.Duration
	Logger infra.Logger
	Now    func() time.Time
}

// DispatchProcessor hands each job to the external durable delivery service
// instead of running it in process. Delivery is at-least-once; the receiving
// endpoint stays idempotent per operation id, so redelivery is safe.
type DispatchProcessor struct {
	client  *taskqueue.Client
	baseURL string
	secret  string
	delay   time.Duration
	logger  infra.Logger
	now     func() time.Time
}

// NewDispatchProcessor creates a durable dispatch processor.
func NewDispatchProcessor(opts DispatchOptions) *DispatchProcessor {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDispatchDelay
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &DispatchProcessor{
		client:  opts.Client,
		baseURL: strings.TrimRight(opts.CallbackBaseURL, "/"),
		secret:  opts.Secret,
		delay:   delay,
		logger:  opts.Logger,
		now:     now,
	}
}

// Enqueue builds the delivery task and submits it. Errors propagate to the
// caller; a fire-and-forget caller logs them, an awaited caller surfaces them.
func (p *DispatchProcessor) Enqueue(ctx context.Context, req domain.JobRequest) error {
	path, ok := callbackRoutes[req.Type]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownOperation, req.Type)
	}

	body := jsoncfg.MustMarshal(CallbackPayload{
		OperationID: req.OperationID,
		UserID:      req.UserID,
		InputData:   req.Input,
	})

	// Manual and test triggers go out immediately; scheduled work is spaced.
	schedule := p.now()
	if req.Meta.TriggerType == domain.TriggerScheduled {
		schedule = schedule.Add(p.delay)
	}

	task := taskqueue.Task{
		URL:          p.baseURL + path,
		Method:       http.MethodPost,
		Body:         body,
		AuthToken:    p.secret,
		ScheduleTime: schedule,
	}
	if err := p.client.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("dispatch %s: %w", req.Type, err)
	}

	p.logger.Info().
		Str("operation_id", req.OperationID).
		Str("type", string(req.Type)).
		Time("schedule_time", schedule).
		Msg("jobs: dispatched durable task")
	return nil
}

var _ Processor = (*DispatchProcessor)(nil)
