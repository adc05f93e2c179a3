package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationType enumerates the background work categories the platform tracks.
type OperationType string

const (
	OperationCareerPlan            OperationType = "career_plan_generation"
	OperationWeeklyReflection      OperationType = "weekly_reflection"
	OperationPerformanceAssessment OperationType = "performance_assessment"
	OperationIntegrationSync       OperationType = "integration_sync"
	OperationBulkExport            OperationType = "bulk_export"
)

// KnownOperationType reports whether the given type is one the platform executes.
func KnownOperationType(t OperationType) bool {
	switch t {
	case OperationCareerPlan, OperationWeeklyReflection, OperationPerformanceAssessment,
		OperationIntegrationSync, OperationBulkExport:
		return true
	}
	return false
}

// OperationStatus enumerates operation lifecycle states.
type OperationStatus string

const (
	OperationQueued     OperationStatus = "queued"
	OperationProcessing OperationStatus = "processing"
	OperationCompleted  OperationStatus = "completed"
	OperationFailed     OperationStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s OperationStatus) Terminal() bool {
	return s == OperationCompleted || s == OperationFailed
}

// TriggerType annotates how an operation came to exist.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerTest      = "test"
)

// OperationMetadata is a free-form annotation persisted alongside an operation.
type OperationMetadata struct {
	TriggerType   string `json:"trigger_type,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	PreferredTime string `json:"preferred_time,omitempty"`
	CurrentStep   string `json:"current_step,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// AsyncOperation is the durable record of one unit of background work.
type AsyncOperation struct {
	ID                string
	UserID            string
	Type              OperationType
	Status            OperationStatus
	Progress          int
	InputData         json.RawMessage
	ResultData        json.RawMessage
	ErrorMessage      string
	EstimatedDuration int
	Metadata          OperationMetadata
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// NewOperation builds a queued operation owned by userID.
func NewOperation(userID string, opType OperationType, input json.RawMessage, estimatedSeconds int, meta OperationMetadata) *AsyncOperation {
	return &AsyncOperation{
		ID:                uuid.NewString(),
		UserID:            userID,
		Type:              opType,
		Status:            OperationQueued,
		Progress:          0,
		InputData:         input,
		EstimatedDuration: estimatedSeconds,
		Metadata:          meta,
		CreatedAt:         time.Now().UTC(),
	}
}

// IsComplete reports whether the operation reached a terminal state.
func (o *AsyncOperation) IsComplete() bool {
	return o != nil && o.Status.Terminal()
}

// TimeRemaining derives the advisory seconds left while the operation is
// processing. It returns 0 unless the estimate and start timestamp are present.
func (o *AsyncOperation) TimeRemaining(now time.Time) int {
	if o == nil || o.Status != OperationProcessing || o.EstimatedDuration <= 0 || o.StartedAt == nil {
		return 0
	}
	remaining := o.EstimatedDuration - int(now.Sub(*o.StartedAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JobRequest is the ephemeral unit handed from enqueue-time callers to a job
// processor. It references a pre-existing operation; the processor never
// creates operations, only triggers their execution.
type JobRequest struct {
	Type        OperationType
	UserID      string
	OperationID string
	Input       json.RawMessage
	Meta        OperationMetadata
}
