package framework

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/testing/mocks"
)

func singleExecution(t *testing.T, db *mocks.MemoryDatabase) *shared.ExecutionRecord {
	t.Helper()
	if len(db.Executions) != 1 {
		t.Fatalf("expected 1 execution record, got %d", len(db.Executions))
	}
	for _, rec := range db.Executions {
		return rec
	}
	return nil
}

func TestWrapCloudEvent(t *testing.T) {
	db := mocks.NewMemoryDatabase()
	svc := &bootstrap.Service{DB: db, Config: &bootstrap.Config{}}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.Service != svc {
			t.Error("Service not injected correctly")
		}
		if fwCtx.ExecutionID == "" {
			t.Error("ExecutionID not generated")
		}
		return "ok", nil
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	e := event.New()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("test-source")

	if err := wrapped(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	rec := singleExecution(t, db)
	if rec.Status != shared.ExecutionStatusSuccess {
		t.Errorf("status = %q, want success", rec.Status)
	}
	if rec.Service != "test-service" {
		t.Errorf("service = %q", rec.Service)
	}
	if rec.TriggerType != "pubsub" {
		t.Errorf("trigger_type = %q", rec.TriggerType)
	}
	if rec.EndTime.IsZero() {
		t.Error("end time should be set on completion")
	}
}

func TestWrapCloudEvent_Failure(t *testing.T) {
	db := mocks.NewMemoryDatabase()
	svc := &bootstrap.Service{DB: db, Config: &bootstrap.Config{}}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, errors.New("simulated error")
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	e := event.New()
	if err := wrapped(context.Background(), e); err == nil {
		t.Fatal("Expected error, got nil")
	}

	rec := singleExecution(t, db)
	if rec.Status != shared.ExecutionStatusFailure {
		t.Errorf("status = %q, want failure", rec.Status)
	}
	if rec.Error != "simulated error" {
		t.Errorf("error = %q", rec.Error)
	}
}

func TestWrapCloudEvent_CustomStatus(t *testing.T) {
	db := mocks.NewMemoryDatabase()
	svc := &bootstrap.Service{DB: db, Config: &bootstrap.Config{}}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return map[string]interface{}{"status": "skipped"}, nil
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	e := event.New()
	if err := wrapped(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	if rec := singleExecution(t, db); rec.Status != "skipped" {
		t.Errorf("status = %q, want skipped", rec.Status)
	}
}

func TestWrapCloudEvent_ExtractsMetadata(t *testing.T) {
	db := mocks.NewMemoryDatabase()
	svc := &bootstrap.Service{DB: db, Config: &bootstrap.Config{}}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		return "ok", nil
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	payload, _ := json.Marshal(shared.ActivityUploadedPayload{
		ActivityID: "act-123",
		Object:     "activities/act-123/raw.fit",
	})
	var msg shared.PubSubMessage
	msg.Message.Data = payload
	msg.Message.Attributes = map[string]string{"test_run_id": "run-9"}

	e := event.New()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub")
	e.SetData(event.ApplicationJSON, msg)

	if err := wrapped(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	rec := singleExecution(t, db)
	if rec.ActivityID != "act-123" {
		t.Errorf("activity_id = %q", rec.ActivityID)
	}
	if rec.TestRunID != "run-9" {
		t.Errorf("test_run_id = %q", rec.TestRunID)
	}
}
