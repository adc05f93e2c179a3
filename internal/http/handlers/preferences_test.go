package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func TestGetPreferencesFillsDefaults(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})

	req := authedRequest("GET", "/v1/preferences", "", "u1")
	rr := httptest.NewRecorder()
	ta.app.GetPreferences(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var view map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view["preferred_day"] != "friday" {
		t.Fatalf("preferred_day = %v, want friday", view["preferred_day"])
	}
	if view["preferred_hour"] != float64(14) {
		t.Fatalf("preferred_hour = %v, want 14", view["preferred_hour"])
	}
	if view["timezone"] != "America/New_York" {
		t.Fatalf("timezone = %v", view["timezone"])
	}
	if _, ok := view["include_integrations"].([]any); !ok {
		t.Fatalf("include_integrations should serialize as an array, got %T", view["include_integrations"])
	}
}

func TestUpdatePreferencesPartialPatch(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})

	req := authedRequest("PUT", "/v1/preferences", `{"preferred_day":"monday","preferred_hour":9}`, "u1")
	rr := httptest.NewRecorder()
	ta.app.UpdatePreferences(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	stored, ok := ta.users.prefs["u1"]
	if !ok {
		t.Fatal("preferences were not persisted")
	}
	if stored.PreferredDay != "monday" || stored.PreferredHour != 9 {
		t.Fatalf("stored prefs: day=%q hour=%d", stored.PreferredDay, stored.PreferredHour)
	}
	// Untouched fields keep the normalized value.
	if stored.Timezone != "America/New_York" {
		t.Fatalf("timezone = %q, want default", stored.Timezone)
	}
}

func TestUpdatePreferencesRejectsInvalidDay(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})

	req := authedRequest("PUT", "/v1/preferences", `{"preferred_day":"wednesday"}`, "u1")
	rr := httptest.NewRecorder()
	ta.app.UpdatePreferences(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if _, ok := ta.users.prefs["u1"]; ok {
		t.Fatal("invalid preferences must not be persisted")
	}
}

func TestPreferencesRequireAuth(t *testing.T) {
	ta := newTestApp()

	rr := httptest.NewRecorder()
	ta.app.GetPreferences(rr, authedRequest("GET", "/v1/preferences", "", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("get: status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	ta.app.UpdatePreferences(rr, authedRequest("PUT", "/v1/preferences", `{}`, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("update: status = %d, want 401", rr.Code)
	}
}
