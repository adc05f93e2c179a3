package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/jobs"
)

// RunJob is the delivery callback for durable dispatch. The task queue POSTs
// the payload it was handed at enqueue time; the job runs synchronously so the
// response status tells the queue whether to redeliver.
func (a *App) RunJob(w http.ResponseWriter, r *http.Request) {
	opType := domain.OperationType(chi.URLParam(r, "type"))
	if !domain.KnownOperationType(opType) {
		a.jsonError(w, http.StatusNotFound, "unknown job type")
		return
	}

	var payload jobs.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if payload.OperationID == "" || payload.UserID == "" {
		a.jsonError(w, http.StatusBadRequest, "operation_id and user_id are required")
		return
	}

	res := a.Jobs.Process(r.Context(), domain.JobRequest{
		Type:        opType,
		UserID:      payload.UserID,
		OperationID: payload.OperationID,
		Input:       payload.InputData,
	})
	if res.Err != nil {
		// Transitional failures return 500 so the queue redelivers; a job
		// already recorded as failed will hit the terminal guard next time
		// and come back 200.
		if res.Status == domain.OperationQueued || res.Status == domain.OperationProcessing {
			a.jsonError(w, http.StatusInternalServerError, res.Err.Error())
			return
		}
		a.json(w, http.StatusOK, map[string]any{
			"operation_id": res.OperationID,
			"status":       string(res.Status),
			"error":        res.Err.Error(),
		})
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"operation_id": res.OperationID,
		"status":       string(res.Status),
	})
}
