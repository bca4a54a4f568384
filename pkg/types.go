package shared

import (
	"errors"
	"time"

	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
)

// ErrNotFound is returned by Database implementations when a document does
// not exist, so callers do not need to know the backing store's error model.
var ErrNotFound = errors.New("not found")

// Activity statuses
const (
	ActivityStatusUploaded = "uploaded"
	ActivityStatusAnalyzed = "analyzed"
	ActivityStatusFailed   = "failed"
)

// Execution statuses
const (
	ExecutionStatusStarted = "started"
	ExecutionStatusSuccess = "success"
	ExecutionStatusFailure = "failure"
)

// ActivityRecord is the stored description of one uploaded activity. The raw
// upload itself lives in the blob store at RawObject.
type ActivityRecord struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Slug           string        `json:"slug"`
	Type           activity.Type `json:"type"`
	Source         string        `json:"source"`
	Sport          string        `json:"sport,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	TotalDistanceM float64       `json:"total_distance_m"`
	TotalElapsedS  float64       `json:"total_elapsed_s"`
	RawObject      string        `json:"raw_object,omitempty"`
	ContentType    string        `json:"content_type,omitempty"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// AnalysisRecord is one stored analysis of an activity, keyed by the engine
// version that produced it so re-analysis never clobbers older results.
type AnalysisRecord struct {
	ActivityID    string           `json:"activity_id"`
	EngineVersion string           `json:"engine_version"`
	Narrative     string           `json:"narrative,omitempty"`
	Result        *analysis.Result `json:"result"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ExecutionRecord tracks one function or job invocation for observability.
type ExecutionRecord struct {
	ID          string
	Service     string
	TriggerType string
	Status      string
	ActivityID  string
	TestRunID   string
	StartTime   time.Time
	EndTime     time.Time
	Error       string
}

// ActivityUploadedPayload is the JSON data of the event that triggers the
// analyzer function.
type ActivityUploadedPayload struct {
	ActivityID  string `json:"activity_id"`
	Object      string `json:"object"`
	ContentType string `json:"content_type,omitempty"`
}

// ActivityAnalyzedPayload is the JSON data of the completion event published
// after an analysis is stored.
type ActivityAnalyzedPayload struct {
	ActivityID    string  `json:"activity_id"`
	Status        string  `json:"status"`
	EngineVersion string  `json:"engine_version,omitempty"`
	DistanceKM    float64 `json:"distance_km,omitempty"`
	MovingTimeS   float64 `json:"moving_time_s,omitempty"`
}

// PubSubMessage is the envelope Pub/Sub wraps around event data when it
// invokes a CloudEvent function.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
