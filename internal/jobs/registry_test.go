package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"server/internal/domain"
)

func noopHandler(t domain.OperationType) *stubHandler {
	return &stubHandler{
		opType: t,
		fn: func(ctx context.Context, job Job) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	h := noopHandler(domain.OperationWeeklyReflection)
	reg.Register(h)

	got, err := reg.Get(domain.OperationWeeklyReflection)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != Handler(h) {
		t.Fatal("Get returned a different handler")
	}
}

func TestRegistryMissingHandler(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get(domain.OperationBulkExport); err == nil {
		t.Fatal("expected error for missing handler")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(noopHandler(domain.OperationIntegrationSync))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.Register(noopHandler(domain.OperationIntegrationSync))
}

func TestRegistryTypesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(noopHandler(domain.OperationWeeklyReflection))
	reg.Register(noopHandler(domain.OperationBulkExport))
	reg.Register(noopHandler(domain.OperationCareerPlan))

	types := reg.Types()
	want := []domain.OperationType{
		domain.OperationBulkExport,
		domain.OperationCareerPlan,
		domain.OperationWeeklyReflection,
	}
	if len(types) != len(want) {
		t.Fatalf("Types() = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("Types()[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}
