package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/middleware"
)

type preferencesView struct {
	AutoGenerate        bool     `json:"auto_generate"`
	PreferredDay        string   `json:"preferred_day"`
	PreferredHour       int      `json:"preferred_hour"`
	Timezone            string   `json:"timezone"`
	IncludeIntegrations []string `json:"include_integrations"`
	NotifyOnGeneration  bool     `json:"notify_on_generation"`
}

func newPreferencesView(p domain.ReflectionPreferences) preferencesView {
	integrations := p.IncludeIntegrations
	if integrations == nil {
		integrations = []string{}
	}
	return preferencesView{
		AutoGenerate:        p.AutoGenerate,
		PreferredDay:        p.PreferredDay,
		PreferredHour:       p.PreferredHour,
		Timezone:            p.Timezone,
		IncludeIntegrations: integrations,
		NotifyOnGeneration:  p.NotifyOnGeneration,
	}
}

// GetPreferences returns the caller's effective reflection preferences with
// defaults filled in.
func (a *App) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, newPreferencesView(user.Preferences.Normalize()))
}

type preferencesPatchReq struct {
	AutoGenerate        *bool     `json:"auto_generate"`
	PreferredDay        *string   `json:"preferred_day"`
	PreferredHour       *int      `json:"preferred_hour"`
	Timezone            *string   `json:"timezone"`
	IncludeIntegrations *[]string `json:"include_integrations"`
	NotifyOnGeneration  *bool     `json:"notify_on_generation"`
}

// UpdatePreferences applies a partial update to the caller's reflection
// preferences. Omitted fields keep their current value.
func (a *App) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.jsonError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req preferencesPatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	patch := domain.PreferencesPatch{
		AutoGenerate:        req.AutoGenerate,
		PreferredDay:        req.PreferredDay,
		PreferredHour:       req.PreferredHour,
		Timezone:            req.Timezone,
		IncludeIntegrations: req.IncludeIntegrations,
		NotifyOnGeneration:  req.NotifyOnGeneration,
	}
	prefs := patch.Apply(user.Preferences.Normalize())
	if err := prefs.Validate(); err != nil {
		a.domainError(w, r, err)
		return
	}

	if err := a.Users.UpdatePreferences(r.Context(), userID, prefs); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, newPreferencesView(prefs))
}
