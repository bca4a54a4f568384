// Package analyzer is the cloud function that turns an uploaded activity
// file into a stored analysis. It is triggered by a Pub/Sub event carrying
// the activity id and the blob object to read.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/bootstrap"
	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
	"github.com/coursescope/server/pkg/domain/fit_parser"
	"github.com/coursescope/server/pkg/domain/gpx_parser"
	"github.com/coursescope/server/pkg/domain/telemetry"
	"github.com/coursescope/server/pkg/framework"
	infrapubsub "github.com/coursescope/server/pkg/infrastructure/pubsub"
	"github.com/coursescope/server/pkg/infrastructure/sentry"
	"github.com/coursescope/server/pkg/narrative"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("AnalyzeActivity", AnalyzeActivity)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
		_ = sentry.Init(sentry.Config{
			DSN:         svc.Config.SentryDSN,
			ServerName:  "analyzer",
			Environment: svc.Config.ProjectID,
		}, slog.Default())
	})
	return svc, svcErr
}

// AnalyzeActivity is the CloudEvent entry point.
func AnalyzeActivity(ctx context.Context, e event.Event) error {
	s, err := initService(ctx)
	if err != nil {
		return err
	}
	return framework.WrapCloudEvent("analyzer", s, handle)(ctx, e)
}

func handle(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	s := fwCtx.Service
	logger := fwCtx.Logger

	payload, err := decodePayload(e)
	if err != nil {
		return nil, fmt.Errorf("decoding trigger payload: %w", err)
	}
	if payload.ActivityID == "" || payload.Object == "" {
		return nil, fmt.Errorf("trigger payload missing activity_id or object")
	}
	logger = logger.With("activity_id", payload.ActivityID)

	data, err := s.Store.Read(ctx, s.Config.GCSActivityBucket, payload.Object)
	if err != nil {
		return fail(ctx, s, logger, payload.ActivityID, fmt.Errorf("reading %s: %w", payload.Object, err))
	}

	tbl, meta, err := parseUpload(payload.Object, payload.ContentType, data)
	if err != nil {
		return fail(ctx, s, logger, payload.ActivityID, fmt.Errorf("parsing upload: %w", err))
	}

	res, err := analysis.Analyze(tbl, analysis.Params{})
	if err != nil {
		return fail(ctx, s, logger, payload.ActivityID, fmt.Errorf("analyzing activity: %w", err))
	}

	// The narrative can never fail the pipeline: the generator falls back
	// to the deterministic template on any error.
	text, err := narrative.FromEnv(s.Config.GeminiAPIKey).Generate(ctx, meta, res)
	if err != nil {
		logger.Warn("Narrative generation failed", "error", err)
	}

	now := time.Now().UTC()
	rec := &shared.AnalysisRecord{
		ActivityID:    payload.ActivityID,
		EngineVersion: analysis.EngineVersion,
		Narrative:     text,
		Result:        res,
		CreatedAt:     now,
	}
	if err := s.DB.SetAnalysis(ctx, rec); err != nil {
		return fail(ctx, s, logger, payload.ActivityID, fmt.Errorf("storing analysis: %w", err))
	}

	if err := s.DB.UpdateActivity(ctx, payload.ActivityID, activityUpdate(meta, now)); err != nil {
		return fail(ctx, s, logger, payload.ActivityID, fmt.Errorf("updating activity: %w", err))
	}

	evt, err := infrapubsub.NewActivityAnalyzedEvent(shared.ActivityAnalyzedPayload{
		ActivityID:    payload.ActivityID,
		Status:        shared.ActivityStatusAnalyzed,
		EngineVersion: analysis.EngineVersion,
		DistanceKM:    res.Summary.DistanceKM,
		MovingTimeS:   res.Summary.MovingTimeS,
	})
	if err != nil {
		logger.Warn("Failed to build completion event", "error", err)
	} else if _, err := s.Pub.PublishCloudEvent(ctx, shared.TopicActivityAnalyzed, evt); err != nil {
		logger.Warn("Failed to publish completion event", "error", err)
	}

	logger.Info("Activity analyzed",
		"engine_version", analysis.EngineVersion,
		"distance_km", res.Summary.DistanceKM,
		"moving_time_s", res.Summary.MovingTimeS,
	)

	return map[string]interface{}{
		"activity_id":    payload.ActivityID,
		"engine_version": analysis.EngineVersion,
	}, nil
}

// fail marks the activity failed, reports to Sentry and returns the error
// for the framework to log.
func fail(ctx context.Context, s *bootstrap.Service, logger *slog.Logger, activityID string, cause error) (interface{}, error) {
	sentry.CaptureException(cause, map[string]interface{}{"activity_id": activityID}, logger)
	defer sentry.Flush(2 * time.Second)
	update := map[string]interface{}{
		"status":     shared.ActivityStatusFailed,
		"error":      cause.Error(),
		"updated_at": time.Now().UTC(),
	}
	if err := s.DB.UpdateActivity(ctx, activityID, update); err != nil {
		logger.Warn("Failed to mark activity failed", "error", err)
	}
	return nil, cause
}

// decodePayload unwraps the Pub/Sub envelope, falling back to treating the
// event data as the payload itself for direct invocations.
func decodePayload(e event.Event) (shared.ActivityUploadedPayload, error) {
	var payload shared.ActivityUploadedPayload

	var msg shared.PubSubMessage
	if err := e.DataAs(&msg); err == nil && len(msg.Message.Data) > 0 {
		if err := json.Unmarshal(msg.Message.Data, &payload); err != nil {
			return payload, err
		}
		return payload, nil
	}

	err := e.DataAs(&payload)
	return payload, err
}

// parseUpload picks the parser from the object extension, falling back to
// the declared content type.
func parseUpload(object, contentType string, data []byte) (*telemetry.Table, *activity.Metadata, error) {
	switch strings.ToLower(path.Ext(object)) {
	case ".fit":
		return fit_parser.Parse(data)
	case ".gpx":
		return gpx_parser.Parse(data)
	}

	switch contentType {
	case "application/vnd.ant.fit", "application/fit":
		return fit_parser.Parse(data)
	case "application/gpx+xml", "application/xml", "text/xml":
		return gpx_parser.Parse(data)
	}

	return nil, nil, fmt.Errorf("unsupported upload format for %q (content type %q)", object, contentType)
}

// activityUpdate carries the parsed metadata onto the stored record along
// with the analyzed status.
func activityUpdate(meta *activity.Metadata, now time.Time) map[string]interface{} {
	update := map[string]interface{}{
		"status":     shared.ActivityStatusAnalyzed,
		"error":      "",
		"updated_at": now,
	}
	if meta == nil {
		return update
	}
	update["type"] = string(meta.Type)
	update["sport"] = meta.Sport
	update["total_distance_m"] = meta.TotalDistanceM
	update["total_elapsed_s"] = meta.TotalElapsedS
	if !meta.StartTime.IsZero() {
		update["start_time"] = meta.StartTime
	}
	return update
}
