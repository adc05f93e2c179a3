package domain

import (
	"context"
	"encoding/json"
	"time"
)

// UserRepository defines access methods for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// ListAutoGenerate returns every user whose effective preferences have
	// automatic weekly generation enabled.
	ListAutoGenerate(ctx context.Context) ([]User, error)
	UpdatePreferences(ctx context.Context, userID string, prefs ReflectionPreferences) error
	// UpdateCareerPlan is the durable side-effect of a completed career plan job.
	UpdateCareerPlan(ctx context.Context, userID, plan string, generatedAt time.Time) error
}

// OperationRepository defines persistence for async operations. Status
// transitions are reserved for the job service; other callers only create and
// read.
type OperationRepository interface {
	Create(ctx context.Context, op *AsyncOperation) error
	GetByID(ctx context.Context, id string) (*AsyncOperation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]AsyncOperation, error)
	// MarkProcessing transitions queued -> processing and stamps started_at.
	// It returns ErrOperationTerminal when the operation already completed or
	// failed, which makes redelivered dispatch callbacks a safe no-op.
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (*AsyncOperation, error)
	UpdateProgress(ctx context.Context, id string, progress int, currentStep string) error
	Complete(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error
	Fail(ctx context.Context, id string, errorMessage string, completedAt time.Time) error
	// HasInFlight reports whether the user has an operation of the given type
	// with status queued or processing, so a second scheduler pass inside the
	// same hour cannot double-enqueue.
	HasInFlight(ctx context.Context, userID string, opType OperationType) (bool, error)
}

// SnippetRepository defines persistence for snippets and generated reflections.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *Snippet) error
	ListWeek(ctx context.Context, userID string, isoYear, isoWeek int) ([]Snippet, error)
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]Snippet, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Snippet, error)
	// HasReflection reports whether a generated reflection already exists for
	// the (userID, isoYear, isoWeek) dedup key.
	HasReflection(ctx context.Context, userID string, isoYear, isoWeek int) (bool, error)
}

// IntegrationRepository lists the activity sources a sync job should pull.
type IntegrationRepository interface {
	ListEnabled(ctx context.Context, userID string) ([]Integration, error)
}
