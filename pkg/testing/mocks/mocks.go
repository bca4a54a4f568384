// Package mocks provides in-memory implementations of the shared
// persistence interfaces for tests and local development.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/domain/activity"
)

// --- In-memory Database ---

type MemoryDatabase struct {
	mu         sync.Mutex
	Activities map[string]*shared.ActivityRecord
	Analyses   map[string]map[string]*shared.AnalysisRecord
	Executions map[string]*shared.ExecutionRecord

	// Err, when set, is returned by every operation.
	Err error
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		Activities: make(map[string]*shared.ActivityRecord),
		Analyses:   make(map[string]map[string]*shared.AnalysisRecord),
		Executions: make(map[string]*shared.ExecutionRecord),
	}
}

func (m *MemoryDatabase) SetActivity(ctx context.Context, record *shared.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *record
	m.Activities[record.ID] = &cp
	return nil
}

func (m *MemoryDatabase) GetActivity(ctx context.Context, id string) (*shared.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.Activities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryDatabase) ListActivities(ctx context.Context) ([]*shared.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*shared.ActivityRecord, 0, len(m.Activities))
	for _, rec := range m.Activities {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryDatabase) UpdateActivity(ctx context.Context, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	rec, ok := m.Activities[id]
	if !ok {
		return shared.ErrNotFound
	}
	applyActivityUpdate(rec, data)
	return nil
}

func (m *MemoryDatabase) DeleteActivity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Activities, id)
	delete(m.Analyses, id)
	return nil
}

func (m *MemoryDatabase) SetAnalysis(ctx context.Context, record *shared.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	byVersion, ok := m.Analyses[record.ActivityID]
	if !ok {
		byVersion = make(map[string]*shared.AnalysisRecord)
		m.Analyses[record.ActivityID] = byVersion
	}
	cp := *record
	byVersion[record.EngineVersion] = &cp
	return nil
}

func (m *MemoryDatabase) GetAnalysis(ctx context.Context, activityID, engineVersion string) (*shared.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.Analyses[activityID][engineVersion]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryDatabase) SetExecution(ctx context.Context, record *shared.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *record
	m.Executions[record.ID] = &cp
	return nil
}

func (m *MemoryDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	rec, ok := m.Executions[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := data["status"].(string); ok {
		rec.Status = v
	}
	if v, ok := data["error"].(string); ok {
		rec.Error = v
	}
	if v, ok := data["end_time"].(time.Time); ok {
		rec.EndTime = v
	}
	return nil
}

func applyActivityUpdate(rec *shared.ActivityRecord, data map[string]interface{}) {
	if v, ok := data["status"].(string); ok {
		rec.Status = v
	}
	if v, ok := data["error"].(string); ok {
		rec.Error = v
	}
	if v, ok := data["name"].(string); ok {
		rec.Name = v
	}
	if v, ok := data["slug"].(string); ok {
		rec.Slug = v
	}
	if v, ok := data["type"].(string); ok {
		rec.Type = activity.Type(v)
	}
	if v, ok := data["sport"].(string); ok {
		rec.Sport = v
	}
	if v, ok := data["start_time"].(time.Time); ok {
		rec.StartTime = v
	}
	if v, ok := data["total_distance_m"].(float64); ok {
		rec.TotalDistanceM = v
	}
	if v, ok := data["total_elapsed_s"].(float64); ok {
		rec.TotalElapsedS = v
	}
	if v, ok := data["updated_at"].(time.Time); ok {
		rec.UpdatedAt = v
	}
}

// --- In-memory BlobStore ---

type MemoryBlobStore struct {
	mu    sync.Mutex
	Blobs map[string][]byte

	Err error
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{Blobs: make(map[string][]byte)}
}

func blobKey(bucket, object string) string {
	return bucket + "/" + object
}

func (m *MemoryBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Blobs[blobKey(bucket, object)] = cp
	return nil
}

func (m *MemoryBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.Blobs[blobKey(bucket, object)]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, object, shared.ErrNotFound)
	}
	return data, nil
}

func (m *MemoryBlobStore) Delete(ctx context.Context, bucket, object string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Blobs, blobKey(bucket, object))
	return nil
}

// --- Recording Publisher ---

type PublishedEvent struct {
	Topic string
	Event event.Event
}

type MemoryPublisher struct {
	mu        sync.Mutex
	Published []PublishedEvent

	Err error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Published = append(m.Published, PublishedEvent{Topic: topic, Event: e})
	return fmt.Sprintf("msg-%d", len(m.Published)), nil
}
