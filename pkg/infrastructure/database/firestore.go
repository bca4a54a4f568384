package database

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	shared "github.com/coursescope/server/pkg"
	storage "github.com/coursescope/server/pkg/storage/firestore"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	Client  *firestore.Client
	storage *storage.Client // internal typed wrapper
}

func NewFirestoreAdapter(client *firestore.Client, collectionPrefix string) *FirestoreAdapter {
	return &FirestoreAdapter{
		Client:  client,
		storage: storage.NewClient(client, collectionPrefix),
	}
}

// notFound maps Firestore's grpc NotFound onto the shared sentinel so
// callers never import grpc to branch on it.
func notFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return shared.ErrNotFound
	}
	return err
}

// --- Activities ---

func (a *FirestoreAdapter) SetActivity(ctx context.Context, record *shared.ActivityRecord) error {
	return a.storage.Activities().Doc(record.ID).Set(ctx, record)
}

func (a *FirestoreAdapter) GetActivity(ctx context.Context, id string) (*shared.ActivityRecord, error) {
	doc, err := a.storage.Activities().Doc(id).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

func (a *FirestoreAdapter) ListActivities(ctx context.Context) ([]*shared.ActivityRecord, error) {
	return a.storage.Activities().List(ctx)
}

func (a *FirestoreAdapter) UpdateActivity(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Activities().Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) DeleteActivity(ctx context.Context, id string) error {
	// Analyses hang off the activity document; remove them first so no
	// orphaned sub-collection survives the parent.
	analyses, err := a.storage.ActivityAnalyses(id).List(ctx)
	if err != nil {
		return err
	}
	for _, rec := range analyses {
		if err := a.storage.ActivityAnalyses(id).Doc(rec.EngineVersion).Delete(ctx); err != nil {
			return err
		}
	}
	return a.storage.Activities().Doc(id).Delete(ctx)
}

// --- Analyses ---

func (a *FirestoreAdapter) SetAnalysis(ctx context.Context, record *shared.AnalysisRecord) error {
	return a.storage.ActivityAnalyses(record.ActivityID).Doc(record.EngineVersion).Set(ctx, record)
}

func (a *FirestoreAdapter) GetAnalysis(ctx context.Context, activityID, engineVersion string) (*shared.AnalysisRecord, error) {
	doc, err := a.storage.ActivityAnalyses(activityID).Doc(engineVersion).Get(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// --- Executions ---

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *shared.ExecutionRecord) error {
	return a.storage.Executions().Doc(record.ID).Set(ctx, record)
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Executions().Doc(id).Update(ctx, data)
}
