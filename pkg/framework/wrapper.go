package framework

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/execution"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a cloud function handler
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with automatic execution logging.
// Handles both HTTP and Pub/Sub triggers.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		activityID, testRunID := extractEventMetadata(e)

		triggerType := "pubsub"
		if e.Type() == "google.cloud.functions.http" {
			triggerType = "http"
		}

		opts := bootstrap.GetSlogHandlerOptions(bootstrap.LogLevelFromEnv())
		logger := slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", serviceName)
		if activityID != "" {
			logger = logger.With("activity_id", activityID)
		}

		execID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.Options{
			ActivityID:  activityID,
			TestRunID:   testRunID,
			TriggerType: triggerType,
		})
		if err != nil {
			logger.Error("Failed to log execution start", "error", err)
			// Continue anyway - don't fail the function just because logging failed
		}

		logger = logger.With("execution_id", execID)
		logger.Info("Function started")

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		outputs, handlerErr := handler(ctx, e, fwCtx)

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}
			return handlerErr
		}

		logger.Info("Function completed successfully")

		// Handlers may report a custom terminal status in their outputs.
		status := shared.ExecutionStatusSuccess
		if outputsMap, ok := outputs.(map[string]interface{}); ok {
			if s, ok := outputsMap["status"].(string); ok && s != "" {
				status = s
			}
		}

		if logErr := execution.LogStatus(ctx, svc.DB, execID, status); logErr != nil {
			logger.Warn("Failed to log execution status", "error", logErr)
		}

		return nil
	}
}

// extractEventMetadata extracts activity_id and test_run_id from the event.
// Handles both Pub/Sub messages and HTTP requests.
func extractEventMetadata(e event.Event) (activityID string, testRunID string) {
	var msg shared.PubSubMessage
	if err := e.DataAs(&msg); err == nil {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Message.Data, &payload); err == nil {
			if id, ok := payload["activity_id"].(string); ok {
				activityID = id
			}
		}

		if msg.Message.Attributes != nil {
			if trid, ok := msg.Message.Attributes["test_run_id"]; ok {
				testRunID = trid
			}
		}
	}

	// For HTTP requests, headers are mapped to CloudEvent extensions by
	// the Functions Framework.
	if testRunID == "" {
		extensions := e.Extensions()
		if trid, ok := extensions["test_run_id"].(string); ok {
			testRunID = trid
		}
		if trid, ok := extensions["testrunid"].(string); ok {
			testRunID = trid
		}
	}

	return activityID, testRunID
}
