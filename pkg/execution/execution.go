// Package execution records function invocations in the database so every
// run leaves an auditable trail even when it fails before producing output.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	shared "github.com/coursescope/server/pkg"
)

// Options carries the optional context of an execution.
type Options struct {
	ActivityID  string
	TestRunID   string
	TriggerType string
}

// LogStart creates the execution record and returns its id. The id is valid
// even when the write fails, so callers can keep logging with it.
func LogStart(ctx context.Context, db shared.Database, service string, opts Options) (string, error) {
	id := uuid.NewString()
	rec := &shared.ExecutionRecord{
		ID:          id,
		Service:     service,
		TriggerType: opts.TriggerType,
		Status:      shared.ExecutionStatusStarted,
		ActivityID:  opts.ActivityID,
		TestRunID:   opts.TestRunID,
		StartTime:   time.Now().UTC(),
	}
	if err := db.SetExecution(ctx, rec); err != nil {
		return id, err
	}
	return id, nil
}

// LogSuccess marks the execution finished.
func LogSuccess(ctx context.Context, db shared.Database, id string) error {
	return LogStatus(ctx, db, id, shared.ExecutionStatusSuccess)
}

// LogFailure marks the execution failed and records the error.
func LogFailure(ctx context.Context, db shared.Database, id string, cause error) error {
	data := map[string]interface{}{
		"status":   shared.ExecutionStatusFailure,
		"end_time": time.Now().UTC(),
	}
	if cause != nil {
		data["error"] = cause.Error()
	}
	return db.UpdateExecution(ctx, id, data)
}

// LogStatus closes the execution with an arbitrary status string.
func LogStatus(ctx context.Context, db shared.Database, id, status string) error {
	return db.UpdateExecution(ctx, id, map[string]interface{}{
		"status":   status,
		"end_time": time.Now().UTC(),
	})
}
