package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
)

func testLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

// memOps is an in-memory OperationRepository mirroring the SQL repository's
// transition rules.
type memOps struct {
	mu       sync.Mutex
	ops      map[string]*domain.AsyncOperation
	progress []int
	steps    []string
}

func newMemOps() *memOps {
	return &memOps{ops: make(map[string]*domain.AsyncOperation)}
}

func (m *memOps) add(op *domain.AsyncOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *op
	m.ops[op.ID] = &cp
}

func (m *memOps) get(id string) domain.AsyncOperation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.ops[id]
}

func (m *memOps) Create(ctx context.Context, op *domain.AsyncOperation) error {
	m.add(op)
	return nil
}

func (m *memOps) GetByID(ctx context.Context, id string) (*domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (m *memOps) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AsyncOperation
	for _, op := range m.ops {
		if op.UserID == userID {
			out = append(out, *op)
		}
	}
	return out, nil
}

func (m *memOps) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (*domain.AsyncOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if op.Status.Terminal() {
		cp := *op
		return &cp, domain.ErrOperationTerminal
	}
	op.Status = domain.OperationProcessing
	op.StartedAt = &startedAt
	cp := *op
	return &cp, nil
}

func (m *memOps) UpdateProgress(ctx context.Context, id string, progress int, currentStep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.Status != domain.OperationProcessing {
		return domain.ErrNotFound
	}
	m.progress = append(m.progress, progress)
	m.steps = append(m.steps, currentStep)
	if progress > op.Progress {
		op.Progress = progress
	}
	op.Metadata.CurrentStep = currentStep
	return nil
}

func (m *memOps) Complete(ctx context.Context, id string, result json.RawMessage, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.Status != domain.OperationProcessing {
		return domain.ErrNotFound
	}
	op.Status = domain.OperationCompleted
	op.Progress = 100
	op.ResultData = result
	op.ErrorMessage = ""
	op.CompletedAt = &completedAt
	return nil
}

func (m *memOps) Fail(ctx context.Context, id string, errorMessage string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok || op.Status.Terminal() {
		return domain.ErrNotFound
	}
	op.Status = domain.OperationFailed
	op.ErrorMessage = errorMessage
	op.ResultData = nil
	op.CompletedAt = &completedAt
	return nil
}

func (m *memOps) HasInFlight(ctx context.Context, userID string, opType domain.OperationType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.ops {
		if op.UserID == userID && op.Type == opType && !op.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	plans map[string]string
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{users: make(map[string]*domain.User), plans: make(map[string]string)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ListAutoGenerate(ctx context.Context) ([]domain.User, error) {
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

func (m *memUsers) UpdatePreferences(ctx context.Context, userID string, prefs domain.ReflectionPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Preferences = prefs
	return nil
}

func (m *memUsers) UpdateCareerPlan(ctx context.Context, userID, plan string, generatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.CareerPlan = plan
	u.CareerPlanGeneratedAt = &generatedAt
	m.plans[userID] = plan
	return nil
}

// stubHandler runs fn for a fixed operation type.
type stubHandler struct {
	opType domain.OperationType
	fn     func(ctx context.Context, job Job) (json.RawMessage, error)
	calls  int
}

func (h *stubHandler) Type() domain.OperationType { return h.opType }

func (h *stubHandler) Process(ctx context.Context, job Job) (json.RawMessage, error) {
	h.calls++
	return h.fn(ctx, job)
}

func newTestService(t *testing.T, ops *memOps, users *memUsers, handlers ...Handler) *Service {
	t.Helper()
	reg := NewRegistry()
	for _, h := range handlers {
		reg.Register(h)
	}
	return NewService(ServiceOptions{
		Registry:   reg,
		Operations: ops,
		Users:      users,
		Logger:     testLogger(),
	})
}

func queuedOperation(ops *memOps, userID string, opType domain.OperationType) *domain.AsyncOperation {
	op := domain.NewOperation(userID, opType, json.RawMessage(`{}`), 60, domain.OperationMetadata{})
	ops.add(op)
	return op
}

func TestServiceProcessSuccess(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			job.ReportProgress(ctx, 40, "drafting")
			return json.RawMessage(`{"draft":"good week"}`), nil
		},
	}
	svc := newTestService(t, ops, users, handler)
	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)

	res := svc.Process(context.Background(), domain.JobRequest{
		Type:        op.Type,
		UserID:      op.UserID,
		OperationID: op.ID,
		Input:       op.InputData,
	})
	if res.Err != nil {
		t.Fatalf("Process returned error: %v", res.Err)
	}
	if res.Status != domain.OperationCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}

	stored := ops.get(op.ID)
	if stored.Status != domain.OperationCompleted || stored.Progress != 100 {
		t.Fatalf("stored = %s/%d", stored.Status, stored.Progress)
	}
	if len(stored.ResultData) == 0 {
		t.Fatal("result data missing on completed operation")
	}
	if stored.ErrorMessage != "" {
		t.Fatalf("completed operation carries error %q", stored.ErrorMessage)
	}
	if stored.StartedAt == nil || stored.CompletedAt == nil {
		t.Fatal("timestamps not stamped")
	}
}

func TestServiceProcessHandlerFailure(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			return nil, errors.New("provider exploded")
		},
	}
	svc := newTestService(t, ops, users, handler)
	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)

	res := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if res.Err == nil || res.Status != domain.OperationFailed {
		t.Fatalf("result = %s/%v", res.Status, res.Err)
	}

	stored := ops.get(op.ID)
	if stored.Status != domain.OperationFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("failed operation must carry an error message")
	}
	if stored.ResultData != nil {
		t.Fatal("failed operation must not carry result data")
	}
}

func TestServiceMissingHandlerFailsFast(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	svc := newTestService(t, ops, users) // empty registry
	op := queuedOperation(ops, "u1", domain.OperationBulkExport)

	res := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if res.Err == nil || res.Status != domain.OperationFailed {
		t.Fatalf("result = %s/%v", res.Status, res.Err)
	}
	if stored := ops.get(op.ID); stored.Status != domain.OperationFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestServiceTerminalRedeliveryIsNoOp(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			return json.RawMessage(`{"draft":"again"}`), nil
		},
	}
	svc := newTestService(t, ops, users, handler)

	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)
	first := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if first.Status != domain.OperationCompleted {
		t.Fatalf("first run status = %s", first.Status)
	}

	second := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if second.Err != nil {
		t.Fatalf("redelivery returned error: %v", second.Err)
	}
	if second.Status != domain.OperationCompleted {
		t.Fatalf("redelivery status = %s", second.Status)
	}
	if string(second.Data) != string(first.Data) {
		t.Fatalf("redelivery data = %s, want %s", second.Data, first.Data)
	}
	if handler.calls != 1 {
		t.Fatalf("handler ran %d times, want 1", handler.calls)
	}
}

func TestServiceProgressClamping(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			job.ReportProgress(ctx, -10, "warming up")
			job.ReportProgress(ctx, 150, "overshoot")
			job.ReportProgress(ctx, 60, "late report")
			return json.RawMessage(`{}`), nil
		},
	}
	svc := newTestService(t, ops, users, handler)
	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)

	if res := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID}); res.Err != nil {
		t.Fatalf("Process returned error: %v", res.Err)
	}

	want := []int{0, 100, 60}
	if len(ops.progress) != len(want) {
		t.Fatalf("progress calls = %v, want %v", ops.progress, want)
	}
	for i := range want {
		if ops.progress[i] != want[i] {
			t.Fatalf("progress[%d] = %d, want %d", i, ops.progress[i], want[i])
		}
	}
	// Stored progress never went backwards and finished at 100.
	if stored := ops.get(op.ID); stored.Progress != 100 {
		t.Fatalf("stored progress = %d", stored.Progress)
	}
}

func TestServiceCareerPlanSideEffect(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationCareerPlan,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			return jsoncfg.MustMarshal(jsoncfg.CareerPlanResult{Plan: "ship more, worry less", Model: "m"}), nil
		},
	}
	svc := newTestService(t, ops, users, handler)
	op := queuedOperation(ops, "u1", domain.OperationCareerPlan)

	res := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if res.Err != nil {
		t.Fatalf("Process returned error: %v", res.Err)
	}
	if users.plans["u1"] != "ship more, worry less" {
		t.Fatalf("career plan not written to profile: %q", users.plans["u1"])
	}
	u, _ := users.GetByID(context.Background(), "u1")
	if u.CareerPlanGeneratedAt == nil {
		t.Fatal("generated-at timestamp missing")
	}
}

func TestServiceTimeout(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	reg := NewRegistry()
	reg.Register(handler)
	svc := NewService(ServiceOptions{
		Registry:   reg,
		Operations: ops,
		Users:      users,
		Logger:     testLogger(),
		Timeout:    20 * time.Millisecond,
	})
	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)

	res := svc.Process(context.Background(), domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})
	if res.Status != domain.OperationFailed || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("result = %s/%v, want failed with deadline exceeded", res.Status, res.Err)
	}
	if stored := ops.get(op.ID); stored.Status != domain.OperationFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestServiceStart(t *testing.T) {
	ops := newMemOps()
	users := newMemUsers(&domain.User{ID: "u1"})
	done := make(chan struct{})
	handler := &stubHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			defer close(done)
			return json.RawMessage(`{}`), nil
		},
	}
	svc := newTestService(t, ops, users, handler)
	op := queuedOperation(ops, "u1", domain.OperationWeeklyReflection)

	svc.Start(domain.JobRequest{Type: op.Type, UserID: "u1", OperationID: op.ID})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fire-and-forget job never ran")
	}
}
