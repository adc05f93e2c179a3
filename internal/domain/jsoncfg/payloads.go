// Package jsoncfg holds the JSON contracts persisted in operation input and
// result columns. Keeping them in one place stops handlers and the scheduler
// from drifting apart on field names.
package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is used for week-bound dates inside payloads.
const DateLayout = "2006-01-02"

// ReflectionInput is the input payload of a weekly_reflection operation.
type ReflectionInput struct {
	ISOYear             int      `json:"iso_year"`
	ISOWeek             int      `json:"iso_week"`
	WeekStart           string   `json:"week_start"`
	WeekEnd             string   `json:"week_end"`
	IncludeIntegrations []string `json:"include_integrations,omitempty"`
	Locale              string   `json:"locale,omitempty"`
}

// NewReflectionInput derives the payload for the ISO week containing t,
// Monday start and Friday end, in t's location.
func NewReflectionInput(t time.Time, includeIntegrations []string, locale string) ReflectionInput {
	year, week := t.ISOWeek()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -daysSinceMonday).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return ReflectionInput{
		ISOYear:             year,
		ISOWeek:             week,
		WeekStart:           start.Format(DateLayout),
		WeekEnd:             start.AddDate(0, 0, 4).Format(DateLayout),
		IncludeIntegrations: includeIntegrations,
		Locale:              locale,
	}
}

// Validate ensures the reflection input carries a usable week identity.
func (in ReflectionInput) Validate() error {
	if in.ISOYear <= 0 || in.ISOWeek < 1 || in.ISOWeek > 53 {
		return fmt.Errorf("invalid iso week %d/%d", in.ISOYear, in.ISOWeek)
	}
	for _, field := range []string{in.WeekStart, in.WeekEnd} {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("week bounds are required")
		}
		if _, err := time.Parse(DateLayout, field); err != nil {
			return fmt.Errorf("invalid week bound %q", field)
		}
	}
	return nil
}

// ReflectionResult is the result payload of a completed weekly reflection.
type ReflectionResult struct {
	Draft        string `json:"draft"`
	SnippetCount int    `json:"snippet_count"`
	ActivityUsed int    `json:"activity_used"`
	Model        string `json:"model"`
	TokensUsed   int    `json:"tokens_used"`
}

// CareerPlanInput is the input payload of a career_plan_generation operation.
type CareerPlanInput struct {
	HorizonMonths int    `json:"horizon_months,omitempty"`
	Focus         string `json:"focus,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

// CareerPlanResult is the result payload of a completed career plan job. The
// Plan field is also written onto the user profile by the job service.
type CareerPlanResult struct {
	Plan       string `json:"plan"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// AssessmentInput is the input payload of a performance_assessment operation.
type AssessmentInput struct {
	Weeks  int    `json:"weeks,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// AssessmentResult is the result payload of a completed assessment.
type AssessmentResult struct {
	Assessment   string `json:"assessment"`
	WeeksCovered int    `json:"weeks_covered"`
	SnippetCount int    `json:"snippet_count"`
	Model        string `json:"model"`
	TokensUsed   int    `json:"tokens_used"`
}

// SyncInput is the input payload of an integration_sync operation.
type SyncInput struct {
	Kinds []string `json:"kinds,omitempty"`
}

// SyncResult is the result payload of a completed integration sync.
type SyncResult struct {
	SourcesSynced int `json:"sources_synced"`
	ItemsImported int `json:"items_imported"`
}

// ExportInput is the input payload of a bulk_export operation.
type ExportInput struct {
	Format string `json:"format,omitempty"`
}

// ExportResult is the result payload of a completed bulk export.
type ExportResult struct {
	StorageKey string `json:"storage_key"`
	Entries    int    `json:"entries"`
	SizeBytes  int    `json:"size_bytes"`
}

// MustMarshal marshals v or panics; payload types above are always encodable.
func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
