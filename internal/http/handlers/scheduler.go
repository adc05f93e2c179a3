package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

// RunSchedulerScan triggers one scheduler pass immediately. Intended for
// cron-style invocation and operational testing.
func (a *App) RunSchedulerScan(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Checker.Scan(r.Context(), time.Now())
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{
		"scanned":  stats.Scanned,
		"enqueued": stats.Enqueued,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	})
}

// TriggerUserReflection enqueues a weekly reflection for one user regardless
// of their preferred day and hour. Week dedup still applies.
func (a *App) TriggerUserReflection(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	triggerType := r.URL.Query().Get("trigger")
	if triggerType == "" {
		triggerType = domain.TriggerManual
	}
	if triggerType != domain.TriggerManual && triggerType != domain.TriggerTest {
		a.jsonError(w, http.StatusBadRequest, "invalid trigger: "+triggerType)
		return
	}

	op, err := a.Checker.TriggerUser(r.Context(), userID, triggerType)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, newOperationView(op, time.Now()))
}
