package shared

import (
	"context"

	"github.com/cloudevents/sdk-go/v2/event"
)

// --- Persistence Interfaces ---

type Database interface {
	// Activities
	SetActivity(ctx context.Context, record *ActivityRecord) error
	GetActivity(ctx context.Context, id string) (*ActivityRecord, error)
	ListActivities(ctx context.Context) ([]*ActivityRecord, error)
	UpdateActivity(ctx context.Context, id string, data map[string]interface{}) error
	DeleteActivity(ctx context.Context, id string) error

	// Analyses (sub-collection of activities, keyed by engine version)
	SetAnalysis(ctx context.Context, record *AnalysisRecord) error
	GetAnalysis(ctx context.Context, activityID, engineVersion string) (*AnalysisRecord, error)

	// Executions
	SetExecution(ctx context.Context, record *ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Delete(ctx context.Context, bucket, object string) error
}
