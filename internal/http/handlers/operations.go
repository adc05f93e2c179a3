package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
)

// Advisory durations in seconds, surfaced to pollers as estimated_duration.
var operationEstimates = map[domain.OperationType]int{
	domain.OperationWeeklyReflection:      60,
	domain.OperationCareerPlan:            90,
	domain.OperationPerformanceAssessment: 90,
	domain.OperationIntegrationSync:       120,
	domain.OperationBulkExport:            180,
}

type operationView struct {
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	Progress          int             `json:"progress"`
	InputData         json.RawMessage `json:"input_data,omitempty"`
	ResultData        json.RawMessage `json:"result_data,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	EstimatedDuration int             `json:"estimated_duration,omitempty"`
	Metadata          any             `json:"metadata,omitempty"`
	IsComplete        bool            `json:"is_complete"`
	TimeRemaining     int             `json:"time_remaining"`
	CreatedAt         time.Time       `json:"created_at"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

func newOperationView(op *domain.AsyncOperation, now time.Time) operationView {
	return operationView{
		ID:                op.ID,
		Type:              string(op.Type),
		Status:            string(op.Status),
		Progress:          op.Progress,
		InputData:         op.InputData,
		ResultData:        op.ResultData,
		ErrorMessage:      op.ErrorMessage,
		EstimatedDuration: op.EstimatedDuration,
		Metadata:          op.Metadata,
		IsComplete:        op.IsComplete(),
		TimeRemaining:     op.TimeRemaining(now),
		CreatedAt:         op.CreatedAt,
		StartedAt:         op.StartedAt,
		CompletedAt:       op.CompletedAt,
	}
}

type createOperationReq struct {
	Type        string          `json:"type"`
	InputData   json.RawMessage `json:"input_data"`
	TriggerType string          `json:"trigger_type"`
}

// CreateOperation starts a background job for the authenticated user and
// returns 202 with the queued operation record.
func (a *App) CreateOperation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOperationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	opType := domain.OperationType(req.Type)
	if !domain.KnownOperationType(opType) {
		a.jsonError(w, http.StatusBadRequest, "unknown operation type: "+req.Type)
		return
	}

	triggerType := req.TriggerType
	switch triggerType {
	case "":
		triggerType = domain.TriggerManual
	case domain.TriggerManual, domain.TriggerTest:
	default:
		a.jsonError(w, http.StatusBadRequest, "invalid trigger_type: "+triggerType)
		return
	}

	// Weekly reflections created by API callers go through the scheduler's
	// dedup path, same as scheduled runs.
	if opType == domain.OperationWeeklyReflection {
		op, err := a.Checker.TriggerUser(r.Context(), userID, triggerType)
		if err != nil {
			a.domainError(w, r, err)
			return
		}
		a.json(w, http.StatusAccepted, newOperationView(op, time.Now()))
		return
	}

	input := req.InputData
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	meta := domain.OperationMetadata{
		TriggerType: triggerType,
		Locale:      middleware.LocaleFromContext(r.Context()),
	}

	op := domain.NewOperation(userID, opType, input, operationEstimates[opType], meta)
	if err := a.Operations.Create(r.Context(), op); err != nil {
		a.domainError(w, r, err)
		return
	}

	jobReq := domain.JobRequest{
		Type:        opType,
		UserID:      userID,
		OperationID: op.ID,
		Input:       op.InputData,
		Meta:        meta,
	}
	if err := a.Processor.Enqueue(r.Context(), jobReq); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusAccepted, newOperationView(op, time.Now()))
}

// GetOperation returns the current state of one operation owned by the caller.
func (a *App) GetOperation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	op, err := a.Operations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if op.UserID != userID {
		// Hide other users' operations entirely.
		a.jsonError(w, http.StatusNotFound, "not found")
		return
	}

	a.json(w, http.StatusOK, newOperationView(op, time.Now()))
}

// ListOperations returns the caller's recent operations, newest first.
func (a *App) ListOperations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			a.jsonError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	ops, err := a.Operations.ListByUser(r.Context(), userID, limit)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	now := time.Now()
	views := make([]operationView, 0, len(ops))
	for i := range ops {
		views = append(views, newOperationView(&ops[i], now))
	}
	a.json(w, http.StatusOK, map[string]any{"operations": views})
}
