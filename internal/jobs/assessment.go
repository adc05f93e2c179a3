package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/providers/llm"
)

const defaultAssessmentWeeks = 12

// AssessmentHandler writes a performance self-assessment over a multi-week
// window of snippets and reflections.
type AssessmentHandler struct {
	users    domain.UserRepository
	snippets domain.SnippetRepository
	llm      *llm.Client
	now      func() time.Time
}

// NewAssessmentHandler creates the performance assessment handler.
func NewAssessmentHandler(users domain.UserRepository, snippets domain.SnippetRepository, llmClient *llm.Client) *AssessmentHandler {
	return &AssessmentHandler{
		users:    users,
		snippets: snippets,
		llm:      llmClient,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Type implements Handler.
func (h *AssessmentHandler) Type() domain.OperationType {
	return domain.OperationPerformanceAssessment
}

// Process implements Handler.
func (h *AssessmentHandler) Process(ctx context.Context, job Job) (json.RawMessage, error) {
	var input jsoncfg.AssessmentInput
	if len(job.Input) > 0 {
		if err := json.Unmarshal(job.Input, &input); err != nil {
			return nil, fmt.Errorf("decode assessment input: %w", err)
		}
	}
	weeks := input.Weeks
	if weeks <= 0 {
		weeks = defaultAssessmentWeeks
	}

	job.ReportProgress(ctx, 10, "loading work history")
	user, err := h.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	to := h.now()
	from := to.AddDate(0, 0, -7*weeks)
	history, err := h.snippets.ListRange(ctx, job.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}

	job.ReportProgress(ctx, 40, "drafting assessment")
	locale := input.Locale
	if locale == "" {
		locale = user.Locale
	}
	prompt := llm.AssessmentPrompt(user, history, weeks, locale)
	completion, err := h.llm.GenerateContent(ctx, llm.Request{
		Prompt:    prompt,
		Locale:    locale,
		RequestID: job.OperationID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate assessment: %w", err)
	}

	job.ReportProgress(ctx, 90, "finalizing assessment")
	return jsoncfg.MustMarshal(jsoncfg.AssessmentResult{
		Assessment:   completion.Text,
		WeeksCovered: weeks,
		SnippetCount: len(history),
		Model:        completion.Model,
		TokensUsed:   completion.Usage.PromptTokens + completion.Usage.CompletionTokens,
	}), nil
}

var _ Handler = (*AssessmentHandler)(nil)
