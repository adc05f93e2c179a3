package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/scheduler"
)

// App bundles the dependencies every handler needs.
type App struct {
	Pool       *pgxpool.Pool
	Cfg        *infra.Config
	Logger     infra.Logger
	Users      domain.UserRepository
	Operations domain.OperationRepository
	Snippets   domain.SnippetRepository
	Jobs       *jobs.Service
	Processor  jobs.Processor
	Checker    *scheduler.Checker
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// domainError maps domain sentinels onto HTTP status codes and writes the
// response. Unknown errors become 500 with a generic message.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrInvalidPreferences),
		errors.Is(err, domain.ErrUnknownOperation):
		a.jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyInFlight),
		errors.Is(err, domain.ErrAlreadyGenerated):
		a.jsonError(w, http.StatusConflict, err.Error())
	default:
		a.Logger.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("handler: internal error")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
