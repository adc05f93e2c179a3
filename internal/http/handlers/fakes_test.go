package handlers

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/scheduler"
)

// In-memory repositories backing handler tests. They mirror the SQL layer's
// contracts closely enough that the handlers cannot tell the difference.

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	prefs map[string]domain.ReflectionPreferences
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{
		users: make(map[string]*domain.User),
		prefs: make(map[string]domain.ReflectionPreferences),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memUsers) ListAutoGenerate(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.Preferences.AutoGenerate {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) UpdatePreferences(_ context.Context, userID string, prefs domain.ReflectionPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.Preferences = prefs
	m.prefs[userID] = prefs
	return nil
}

func (m *memUsers) UpdateCareerPlan(_ context.Context, userID, plan string, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.CareerPlan = plan
	user.CareerPlanGeneratedAt = &generatedAt
	return nil
}

type memOps struct {
	mu  sync.Mutex
	ops map[string]*domain.AsyncOperation
}

func newMemOps() *memOps {
	return &memOps{ops: make(map[string]*domain.AsyncOperation)}
}

func (m *memOps) Create(_ context.Context, op *domain.AsyncOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *op
	m.ops[op.ID] = &clone
	return nil
}

func (m *memOps) GetByID(_ context.Context, id string) (*domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *op
	return &clone, nil
}

func (m *memOps) ListByUser(_ context.Context, userID string, limit int) ([]domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AsyncOperation
	for _, op := range m.ops {
		if op.UserID == userID {
			out = append(out, *op)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOps) MarkProcessing(_ context.Context, id string, startedAt time.Time) (*domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if op.Status.Terminal() {
		clone := *op
		return &clone, domain.ErrOperationTerminal
	}
	op.Status = domain.OperationProcessing
	op.StartedAt = &startedAt
	clone := *op
	return &clone, nil
}

func (m *memOps) UpdateProgress(_ context.Context, id string, progress int, currentStep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return domain.ErrNotFound
	}
	if op.Status == domain.OperationProcessing && progress > op.Progress {
		op.Progress = progress
	}
	op.Metadata.CurrentStep = currentStep
	return nil
}

func (m *memOps) Complete(_ context.Context, id string, result json.RawMessage, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return domain.ErrNotFound
	}
	op.Status = domain.OperationCompleted
	op.Progress = 100
	op.ResultData = result
	op.ErrorMessage = ""
	op.CompletedAt = &completedAt
	return nil
}

func (m *memOps) Fail(_ context.Context, id string, errorMessage string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return domain.ErrNotFound
	}
	op.Status = domain.OperationFailed
	op.ErrorMessage = errorMessage
	op.ResultData = nil
	op.CompletedAt = &completedAt
	return nil
}

func (m *memOps) HasInFlight(_ context.Context, userID string, opType domain.OperationType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.ops {
		if op.UserID == userID && op.Type == opType && !op.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

type reflectionKey struct {
	userID  string
	year    int
	isoWeek int
}

type memSnippets struct {
	mu          sync.Mutex
	snippets    []domain.Snippet
	reflections map[reflectionKey]bool
}

func newMemSnippets() *memSnippets {
	return &memSnippets{reflections: make(map[reflectionKey]bool)}
}

func (m *memSnippets) Create(_ context.Context, snippet *domain.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets = append(m.snippets, *snippet)
	return nil
}

func (m *memSnippets) ListWeek(_ context.Context, userID string, isoYear, isoWeek int) ([]domain.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Snippet
	for _, s := range m.snippets {
		if s.UserID == userID && s.ISOYear == isoYear && s.ISOWeek == isoWeek {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSnippets) ListRange(_ context.Context, userID string, from, to time.Time) ([]domain.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Snippet
	for _, s := range m.snippets {
		if s.UserID == userID && !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSnippets) ListByUser(_ context.Context, userID string, limit int) ([]domain.Snippet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Snippet
	for _, s := range m.snippets {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSnippets) HasReflection(_ context.Context, userID string, isoYear, isoWeek int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reflections[reflectionKey{userID, isoYear, isoWeek}], nil
}

type recordingProcessor struct {
	mu   sync.Mutex
	reqs []domain.JobRequest
	err  error
}

func (p *recordingProcessor) Enqueue(_ context.Context, req domain.JobRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reqs = append(p.reqs, req)
	return nil
}

type stubJobHandler struct {
	opType domain.OperationType
	fn     func(ctx context.Context, job jobs.Job) (json.RawMessage, error)
}

func (h *stubJobHandler) Type() domain.OperationType { return h.opType }

func (h *stubJobHandler) Process(ctx context.Context, job jobs.Job) (json.RawMessage, error) {
	return h.fn(ctx, job)
}

type testApp struct {
	app       *App
	users     *memUsers
	ops       *memOps
	snippets  *memSnippets
	processor *recordingProcessor
	registry  *jobs.Registry
}

func newTestApp(users ...*domain.User) *testApp {
	logger := zerolog.New(io.Discard)
	memU := newMemUsers(users...)
	memO := newMemOps()
	memS := newMemSnippets()
	proc := &recordingProcessor{}
	registry := jobs.NewRegistry()

	service := jobs.NewService(jobs.ServiceOptions{
		Registry:   registry,
		Operations: memO,
		Users:      memU,
		Logger:     logger,
	})
	checker := scheduler.NewChecker(scheduler.CheckerOptions{
		Users:      memU,
		Snippets:   memS,
		Operations: memO,
		Processor:  proc,
		Logger:     logger,
	})

	return &testApp{
		app: &App{
			Cfg:        &infra.Config{},
			Logger:     logger,
			Users:      memU,
			Operations: memO,
			Snippets:   memS,
			Jobs:       service,
			Processor:  proc,
			Checker:    checker,
		},
		users:     memU,
		ops:       memO,
		snippets:  memS,
		processor: proc,
		registry:  registry,
	}
}
