package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/middleware"
)

type snippetView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	Content   string    `json:"content"`
	ISOYear   int       `json:"iso_year"`
	ISOWeek   int       `json:"iso_week"`
	WeekStart string    `json:"week_start"`
	WeekEnd   string    `json:"week_end"`
	CreatedAt time.Time `json:"created_at"`
}

func newSnippetView(s *domain.Snippet) snippetView {
	return snippetView{
		ID:        s.ID,
		Kind:      string(s.Kind),
		Source:    s.Source,
		Content:   s.Content,
		ISOYear:   s.ISOYear,
		ISOWeek:   s.ISOWeek,
		WeekStart: s.WeekStart.Format(jsoncfg.DateLayout),
		WeekEnd:   s.WeekEnd.Format(jsoncfg.DateLayout),
		CreatedAt: s.CreatedAt,
	}
}

// ListSnippets returns the caller's snippets, either for one ISO week when
// year and week are given, or the most recent ones otherwise.
func (a *App) ListSnippets(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	var (
		snippets []domain.Snippet
		err      error
	)
	if q.Get("year") != "" || q.Get("week") != "" {
		year, yerr := strconv.Atoi(q.Get("year"))
		week, werr := strconv.Atoi(q.Get("week"))
		if yerr != nil || werr != nil || week < 1 || week > 53 {
			a.jsonError(w, http.StatusBadRequest, "year and week must be valid integers")
			return
		}
		snippets, err = a.Snippets.ListWeek(r.Context(), userID, year, week)
	} else {
		limit := 0
		if v := q.Get("limit"); v != "" {
			n, lerr := strconv.Atoi(v)
			if lerr != nil || n < 1 || n > 200 {
				a.jsonError(w, http.StatusBadRequest, "limit must be between 1 and 200")
				return
			}
			limit = n
		}
		snippets, err = a.Snippets.ListByUser(r.Context(), userID, limit)
	}
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	views := make([]snippetView, 0, len(snippets))
	for i := range snippets {
		views = append(views, newSnippetView(&snippets[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"snippets": views})
}

type createSnippetReq struct {
	Content string `json:"content"`
	Date    string `json:"date"`
}

// CreateSnippet records a work note for the caller, keyed to the ISO week of
// the given date (or today, in the caller's timezone, when omitted).
func (a *App) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSnippetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		a.jsonError(w, http.StatusBadRequest, "content is required")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	loc := time.UTC
	if tz := user.Preferences.Normalize().Timezone; tz != "" {
		if l, lerr := time.LoadLocation(tz); lerr == nil {
			loc = l
		}
	}

	at := time.Now().In(loc)
	if req.Date != "" {
		parsed, perr := time.ParseInLocation(jsoncfg.DateLayout, req.Date, loc)
		if perr != nil {
			a.jsonError(w, http.StatusBadRequest, "date must be formatted as "+jsoncfg.DateLayout)
			return
		}
		at = parsed
	}

	year, week := domain.WeekOf(at)
	start, end := domain.WeekBounds(at)
	snippet := &domain.Snippet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      domain.SnippetKindEntry,
		Content:   req.Content,
		ISOYear:   year,
		ISOWeek:   week,
		WeekStart: start,
		WeekEnd:   end,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Snippets.Create(r.Context(), snippet); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusCreated, newSnippetView(snippet))
}
