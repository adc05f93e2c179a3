package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/providers/activity"
	"server/internal/providers/llm"
)

// ReflectionHandler generates the weekly reflection draft for one user's ISO
// week and stores it as a reflection snippet, which is also what marks the
// week as generated for the scheduler's dedup check.
type ReflectionHandler struct {
	users        domain.UserRepository
	snippets     domain.SnippetRepository
	integrations domain.IntegrationRepository
	activity     *activity.Client
	llm          *llm.Client
	now          func() time.Time
}

// NewReflectionHandler creates the weekly reflection handler.
func NewReflectionHandler(
	users domain.UserRepository,
	snippets domain.SnippetRepository,
	integrations domain.IntegrationRepository,
	activityClient *activity.Client,
	llmClient *llm.Client,
) *ReflectionHandler {
	return &ReflectionHandler{
		users:        users,
		snippets:     snippets,
		integrations: integrations,
		activity:     activityClient,
		llm:          llmClient,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Type implements Handler.
func (h *ReflectionHandler) Type() domain.OperationType {
	return domain.OperationWeeklyReflection
}

// Process implements Handler.
func (h *ReflectionHandler) Process(ctx context.Context, job Job) (json.RawMessage, error) {
	var input jsoncfg.ReflectionInput
	if err := json.Unmarshal(job.Input, &input); err != nil {
		return nil, fmt.Errorf("decode reflection input: %w", err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	weekStart, _ := time.Parse(jsoncfg.DateLayout, input.WeekStart)
	weekEnd, _ := time.Parse(jsoncfg.DateLayout, input.WeekEnd)

	job.ReportProgress(ctx, 10, "loading snippets")
	user, err := h.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	all, err := h.snippets.ListWeek(ctx, job.UserID, input.ISOYear, input.ISOWeek)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}
	var notes []domain.Snippet
	for _, s := range all {
		if s.Kind != domain.SnippetKindReflection {
			notes = append(notes, s)
		}
	}

	var activityLines []string
	if len(input.IncludeIntegrations) > 0 {
		job.ReportProgress(ctx, 30, "collecting integration activity")
		activityLines, err = h.collectActivity(ctx, job.UserID, input, weekStart, weekEnd)
		if err != nil {
			return nil, err
		}
	}

	job.ReportProgress(ctx, 50, "drafting reflection")
	locale := input.Locale
	if locale == "" {
		locale = user.Locale
	}
	prompt := llm.ReflectionPrompt(user, notes, activityLines, weekStart, weekEnd, locale)
	completion, err := h.llm.GenerateContent(ctx, llm.Request{
		Prompt:    prompt,
		Locale:    locale,
		RequestID: job.OperationID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reflection: %w", err)
	}

	job.ReportProgress(ctx, 90, "saving draft")
	reflection := &domain.Snippet{
		ID:        uuid.NewString(),
		UserID:    job.UserID,
		Kind:      domain.SnippetKindReflection,
		Source:    completion.Model,
		Content:   completion.Text,
		ISOYear:   input.ISOYear,
		ISOWeek:   input.ISOWeek,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		CreatedAt: h.now(),
	}
	if err := h.snippets.Create(ctx, reflection); err != nil {
		return nil, fmt.Errorf("save reflection: %w", err)
	}

	return jsoncfg.MustMarshal(jsoncfg.ReflectionResult{
		Draft:        completion.Text,
		SnippetCount: len(notes),
		ActivityUsed: len(activityLines),
		Model:        completion.Model,
		TokensUsed:   completion.Usage.PromptTokens + completion.Usage.CompletionTokens,
	}), nil
}

func (h *ReflectionHandler) collectActivity(ctx context.Context, userID string, input jsoncfg.ReflectionInput, weekStart, weekEnd time.Time) ([]string, error) {
	enabled, err := h.integrations.ListEnabled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	wanted := make(map[string]struct{}, len(input.IncludeIntegrations))
	for _, kind := range input.IncludeIntegrations {
		wanted[kind] = struct{}{}
	}

	var lines []string
	for _, integration := range enabled {
		if _, ok := wanted[integration.Kind]; !ok {
			continue
		}
		items, err := h.activity.RecentItems(ctx, integration, weekStart, weekEnd)
		if err != nil {
			// One flaky source should not sink the whole reflection.
			continue
		}
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("%s: %s", item.Source, item.Title))
		}
	}
	return lines, nil
}

var _ Handler = (*ReflectionHandler)(nil)
