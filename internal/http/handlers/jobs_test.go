package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
	"server/internal/jobs"
)

func runJobRequest(opID, userID string) string {
	payload, _ := json.Marshal(jobs.CallbackPayload{
		OperationID: opID,
		UserID:      userID,
		InputData:   json.RawMessage(`{}`),
	})
	return string(payload)
}

func TestRunJobUnknownType(t *testing.T) {
	ta := newTestApp()

	req := withURLParam(authedRequest("POST", "/internal/jobs/nope", runJobRequest("op-1", "u1"), ""), "type", "nope")
	rr := httptest.NewRecorder()
	ta.app.RunJob(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestRunJobMissingIdentifiers(t *testing.T) {
	ta := newTestApp()

	req := withURLParam(authedRequest("POST", "/internal/jobs/weekly_reflection", `{"operation_id":"op-1"}`, ""), "type", "weekly_reflection")
	rr := httptest.NewRecorder()
	ta.app.RunJob(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestRunJobSuccess(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})
	ta.registry.Register(&stubJobHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(context.Context, jobs.Job) (json.RawMessage, error) {
			return json.RawMessage(`{"draft":"done"}`), nil
		},
	})

	op := domain.NewOperation("u1", domain.OperationWeeklyReflection, json.RawMessage(`{}`), 60, domain.OperationMetadata{})
	if err := ta.ops.Create(context.Background(), op); err != nil {
		t.Fatal(err)
	}

	req := withURLParam(authedRequest("POST", "/internal/jobs/weekly_reflection", runJobRequest(op.ID, "u1"), ""), "type", "weekly_reflection")
	rr := httptest.NewRecorder()
	ta.app.RunJob(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "completed" {
		t.Fatalf("status field = %v, want completed", resp["status"])
	}

	stored, err := ta.ops.GetByID(context.Background(), op.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.OperationCompleted || stored.Progress != 100 {
		t.Fatalf("stored operation: status=%q progress=%d", stored.Status, stored.Progress)
	}
}

func TestRunJobRecordedFailureReturns200(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})
	ta.registry.Register(&stubJobHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(context.Context, jobs.Job) (json.RawMessage, error) {
			return nil, errors.New("provider exploded")
		},
	})

	op := domain.NewOperation("u1", domain.OperationWeeklyReflection, json.RawMessage(`{}`), 60, domain.OperationMetadata{})
	if err := ta.ops.Create(context.Background(), op); err != nil {
		t.Fatal(err)
	}

	req := withURLParam(authedRequest("POST", "/internal/jobs/weekly_reflection", runJobRequest(op.ID, "u1"), ""), "type", "weekly_reflection")
	rr := httptest.NewRecorder()
	ta.app.RunJob(rr, req)

	// The failure is durably recorded, so the queue must not redeliver.
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "failed" || resp["error"] != "provider exploded" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestRunJobTransitionalFailureReturns500(t *testing.T) {
	ta := newTestApp()
	ta.registry.Register(&stubJobHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(context.Context, jobs.Job) (json.RawMessage, error) {
			return json.RawMessage(`{}`), nil
		},
	})

	// The operation record does not exist, so the run cannot even start; the
	// queue should retry later.
	req := withURLParam(authedRequest("POST", "/internal/jobs/weekly_reflection", runJobRequest("missing-op", "u1"), ""), "type", "weekly_reflection")
	rr := httptest.NewRecorder()
	ta.app.RunJob(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestRunJobTerminalRedelivery(t *testing.T) {
	ta := newTestApp(&domain.User{ID: "u1"})
	calls := 0
	ta.registry.Register(&stubJobHandler{
		opType: domain.OperationWeeklyReflection,
		fn: func(context.Context, jobs.Job) (json.RawMessage, error) {
			calls++
			return json.RawMessage(`{"draft":"done"}`), nil
		},
	})

	op := domain.NewOperation("u1", domain.OperationWeeklyReflection, json.RawMessage(`{}`), 60, domain.OperationMetadata{})
	if err := ta.ops.Create(context.Background(), op); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		req := withURLParam(authedRequest("POST", "/internal/jobs/weekly_reflection", runJobRequest(op.ID, "u1"), ""), "type", "weekly_reflection")
		rr := httptest.NewRecorder()
		ta.app.RunJob(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", i+1, rr.Code)
		}
	}

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}
