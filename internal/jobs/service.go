package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
)

// DefaultJobTimeout bounds a single handler invocation so a hung generation
// call cannot occupy a worker forever.
const DefaultJobTimeout = 10 * time.Minute

// Result reports the outcome of one job execution to an awaiting caller.
type Result struct {
	OperationID string
	Status      domain.OperationStatus
	Data        json.RawMessage
	Err         error
}

// ServiceOptions configures the job service.
type ServiceOptions struct {
	Registry   *Registry
	Operations domain.OperationRepository
	Users      domain.UserRepository
	Logger     infra.Logger
	Timeout    time.Duration
	Now        func() time.Time
}

// Service turns a job request into a fully tracked execution: it owns every
// operation status transition, persists progress, and applies type-specific
// side effects on success. It never retries; a retry is a new operation.
type Service struct {
	registry *Registry
	ops      domain.OperationRepository
	users    domain.UserRepository
	logger   infra.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewService creates a job service.
func NewService(opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		registry: opts.Registry,
		ops:      opts.Operations,
		users:    opts.Users,
		logger:   opts.Logger,
		timeout:  timeout,
		now:      now,
	}
}

// Process executes one job synchronously and returns its outcome. Handler
// failures are recorded on the operation and reported through Result.Err, not
// re-thrown: the operation record is the source of truth.
func (s *Service) Process(ctx context.Context, req domain.JobRequest) Result {
	handler, err := s.registry.Get(req.Type)
	if err != nil {
		// Configuration error: fail fast, no handler will ever appear mid-run.
		s.failOperation(ctx, req, err)
		return Result{OperationID: req.OperationID, Status: domain.OperationFailed, Err: err}
	}

	op, err := s.ops.MarkProcessing(ctx, req.OperationID, s.now())
	if errors.Is(err, domain.ErrOperationTerminal) && op != nil {
		// Redelivery of finished work is a safe no-op.
		s.logger.Info().
			Str("operation_id", req.OperationID).
			Str("status", string(op.Status)).
			Msg("jobs: skipping redelivered terminal operation")
		return Result{OperationID: op.ID, Status: op.Status, Data: op.ResultData, Err: nil}
	}
	if err != nil {
		return Result{OperationID: req.OperationID, Status: domain.OperationQueued, Err: fmt.Errorf("mark processing: %w", err)}
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	job := Job{
		UserID:      req.UserID,
		OperationID: req.OperationID,
		Input:       req.Input,
		Meta:        req.Meta,
		Progress:    s.progressFunc(req.OperationID),
	}

	output, err := handler.Process(jobCtx, job)
	if err != nil {
		s.failOperation(ctx, req, err)
		return Result{OperationID: req.OperationID, Status: domain.OperationFailed, Err: err}
	}

	if err := s.applySideEffects(ctx, req, output); err != nil {
		s.failOperation(ctx, req, err)
		return Result{OperationID: req.OperationID, Status: domain.OperationFailed, Err: err}
	}

	if err := s.ops.Complete(ctx, req.OperationID, output, s.now()); err != nil {
		s.logger.Error().Err(err).
			Str("operation_id", req.OperationID).
			Msg("jobs: persist completion failed")
		return Result{OperationID: req.OperationID, Status: domain.OperationProcessing, Err: fmt.Errorf("persist completion: %w", err)}
	}

	s.logger.Info().
		Str("operation_id", req.OperationID).
		Str("type", string(req.Type)).
		Msg("jobs: operation completed")
	return Result{OperationID: req.OperationID, Status: domain.OperationCompleted, Data: output}
}

// Start runs the job in a new goroutine. Failures are recorded on the
// operation and logged; nothing is returned to the caller.
func (s *Service) Start(req domain.JobRequest) {
	go func() {
		res := s.Process(context.Background(), req)
		if res.Err != nil {
			s.logger.Error().Err(res.Err).
				Str("operation_id", req.OperationID).
				Str("type", string(req.Type)).
				Msg("jobs: operation failed")
		}
	}()
}

func (s *Service) progressFunc(operationID string) ProgressFunc {
	return func(ctx context.Context, percent int, step string) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		if err := s.ops.UpdateProgress(ctx, operationID, percent, step); err != nil {
			s.logger.Warn().Err(err).
				Str("operation_id", operationID).
				Int("progress", percent).
				Msg("jobs: persist progress failed")
		}
	}
}

// applySideEffects performs the durable writes some job types require beyond
// the operation record itself.
func (s *Service) applySideEffects(ctx context.Context, req domain.JobRequest, output json.RawMessage) error {
	switch req.Type {
	case domain.OperationCareerPlan:
		var result jsoncfg.CareerPlanResult
		if err := json.Unmarshal(output, &result); err != nil {
			return fmt.Errorf("decode career plan result: %w", err)
		}
		if err := s.users.UpdateCareerPlan(ctx, req.UserID, result.Plan, s.now()); err != nil {
			return fmt.Errorf("write career plan to profile: %w", err)
		}
	}
	return nil
}

func (s *Service) failOperation(ctx context.Context, req domain.JobRequest, cause error) {
	if err := s.ops.Fail(ctx, req.OperationID, cause.Error(), s.now()); err != nil {
		s.logger.Error().Err(err).
			Str("operation_id", req.OperationID).
			Msg("jobs: persist failure state failed")
	}
}
