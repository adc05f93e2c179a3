package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/providers/llm"
)

const careerPlanSnippetWindow = 50

// CareerPlanHandler drafts a career development plan from the user's recent
// work history. The job service writes the finished plan onto the profile.
type CareerPlanHandler struct {
	users    domain.UserRepository
	snippets domain.SnippetRepository
	llm      *llm.Client
}

// NewCareerPlanHandler creates the career plan handler.
func NewCareerPlanHandler(users domain.UserRepository, snippets domain.SnippetRepository, llmClient *llm.Client) *CareerPlanHandler {
	return &CareerPlanHandler{users: users, snippets: snippets, llm: llmClient}
}

// Type implements Handler.
func (h *CareerPlanHandler) Type() domain.OperationType {
	return domain.OperationCareerPlan
}

// Process implements Handler.
func (h *CareerPlanHandler) Process(ctx context.Context, job Job) (json.RawMessage, error) {
	var input jsoncfg.CareerPlanInput
	if len(job.Input) > 0 {
		if err := json.Unmarshal(job.Input, &input); err != nil {
			return nil, fmt.Errorf("decode career plan input: %w", err)
		}
	}

	job.ReportProgress(ctx, 10, "loading work history")
	user, err := h.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	history, err := h.snippets.ListByUser(ctx, job.UserID, careerPlanSnippetWindow)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}

	job.ReportProgress(ctx, 40, "drafting plan")
	locale := input.Locale
	if locale == "" {
		locale = user.Locale
	}
	prompt := llm.CareerPlanPrompt(user, history, input.HorizonMonths, input.Focus, locale)
	completion, err := h.llm.GenerateContent(ctx, llm.Request{
		Prompt:    prompt,
		Locale:    locale,
		RequestID: job.OperationID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate career plan: %w", err)
	}

	job.ReportProgress(ctx, 90, "finalizing plan")
	return jsoncfg.MustMarshal(jsoncfg.CareerPlanResult{
		Plan:       completion.Text,
		Model:      completion.Model,
		TokensUsed: completion.Usage.PromptTokens + completion.Usage.CompletionTokens,
	}), nil
}

var _ Handler = (*CareerPlanHandler)(nil)
