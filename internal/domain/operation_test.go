package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKnownOperationType(t *testing.T) {
	for _, known := range []OperationType{
		OperationCareerPlan,
		OperationWeeklyReflection,
		OperationPerformanceAssessment,
		OperationIntegrationSync,
		OperationBulkExport,
	} {
		if !KnownOperationType(known) {
			t.Fatalf("expected %q to be known", known)
		}
	}
	if KnownOperationType("coffee_run") {
		t.Fatal("expected unknown type to be rejected")
	}
}

func TestStatusTerminal(t *testing.T) {
	if OperationQueued.Terminal() || OperationProcessing.Terminal() {
		t.Fatal("queued and processing must not be terminal")
	}
	if !OperationCompleted.Terminal() || !OperationFailed.Terminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestNewOperation(t *testing.T) {
	input := json.RawMessage(`{"iso_year":2025}`)
	op := NewOperation("user-1", OperationWeeklyReflection, input, 60, OperationMetadata{TriggerType: TriggerScheduled})

	if op.ID == "" {
		t.Fatal("expected generated id")
	}
	if op.Status != OperationQueued || op.Progress != 0 {
		t.Fatalf("new operation state = %s/%d", op.Status, op.Progress)
	}
	if op.UserID != "user-1" || op.Type != OperationWeeklyReflection {
		t.Fatalf("ownership mismatch: %+v", op)
	}
	if op.EstimatedDuration != 60 {
		t.Fatalf("EstimatedDuration = %d", op.EstimatedDuration)
	}
	if op.IsComplete() {
		t.Fatal("queued operation must not report complete")
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2025, 6, 6, 14, 0, 30, 0, time.UTC)
	started := now.Add(-10 * time.Second)

	tests := []struct {
		name string
		op   AsyncOperation
		want int
	}{
		{
			name: "processing with estimate",
			op:   AsyncOperation{Status: OperationProcessing, EstimatedDuration: 60, StartedAt: &started},
			want: 50,
		},
		{
			name: "overdue floors at zero",
			op:   AsyncOperation{Status: OperationProcessing, EstimatedDuration: 5, StartedAt: &started},
			want: 0,
		},
		{
			name: "queued has no estimate",
			op:   AsyncOperation{Status: OperationQueued, EstimatedDuration: 60},
			want: 0,
		},
		{
			name: "no start timestamp",
			op:   AsyncOperation{Status: OperationProcessing, EstimatedDuration: 60},
			want: 0,
		},
		{
			name: "completed",
			op:   AsyncOperation{Status: OperationCompleted, EstimatedDuration: 60, StartedAt: &started},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.op.TimeRemaining(now); got != tc.want {
				t.Fatalf("TimeRemaining() = %d, want %d", got, tc.want)
			}
		})
	}
}
