package firestore

import (
	"encoding/json"
	"time"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/domain/activity"
	"github.com/coursescope/server/pkg/domain/analysis"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get float from map (Firestore returns int64 for whole numbers)
func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// --- ActivityRecord Converters ---

func ActivityToFirestore(a *shared.ActivityRecord) map[string]interface{} {
	m := map[string]interface{}{
		"id":               a.ID,
		"name":             a.Name,
		"slug":             a.Slug,
		"type":             string(a.Type),
		"source":           a.Source,
		"sport":            a.Sport,
		"total_distance_m": a.TotalDistanceM,
		"total_elapsed_s":  a.TotalElapsedS,
		"raw_object":       a.RawObject,
		"content_type":     a.ContentType,
		"status":           a.Status,
		"updated_at":       a.UpdatedAt,
	}
	if !a.StartTime.IsZero() {
		m["start_time"] = a.StartTime
	}
	if !a.CreatedAt.IsZero() {
		m["created_at"] = a.CreatedAt
	}
	if a.Error != "" {
		m["error"] = a.Error
	}
	return m
}

func FirestoreToActivity(m map[string]interface{}) *shared.ActivityRecord {
	return &shared.ActivityRecord{
		ID:             getString(m, "id"),
		Name:           getString(m, "name"),
		Slug:           getString(m, "slug"),
		Type:           activity.Type(getString(m, "type")),
		Source:         getString(m, "source"),
		Sport:          getString(m, "sport"),
		StartTime:      getTime(m, "start_time"),
		TotalDistanceM: getFloat(m, "total_distance_m"),
		TotalElapsedS:  getFloat(m, "total_elapsed_s"),
		RawObject:      getString(m, "raw_object"),
		ContentType:    getString(m, "content_type"),
		Status:         getString(m, "status"),
		Error:          getString(m, "error"),
		CreatedAt:      getTime(m, "created_at"),
		UpdatedAt:      getTime(m, "updated_at"),
	}
}

// --- AnalysisRecord Converters ---
//
// The nested Result goes through a JSON round-trip: its json tags already
// define the storage schema and nil pointers drop out as omitted fields.

func AnalysisToFirestore(a *shared.AnalysisRecord) map[string]interface{} {
	m := map[string]interface{}{
		"activity_id":    a.ActivityID,
		"engine_version": a.EngineVersion,
		"narrative":      a.Narrative,
		"created_at":     a.CreatedAt,
	}
	if a.Result != nil {
		if rm := resultToMap(a.Result); rm != nil {
			m["result"] = rm
		}
	}
	return m
}

func FirestoreToAnalysis(m map[string]interface{}) *shared.AnalysisRecord {
	return &shared.AnalysisRecord{
		ActivityID:    getString(m, "activity_id"),
		EngineVersion: getString(m, "engine_version"),
		Narrative:     getString(m, "narrative"),
		Result:        resultFromMap(m["result"]),
		CreatedAt:     getTime(m, "created_at"),
	}
}

func resultToMap(r *analysis.Result) map[string]interface{} {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func resultFromMap(v interface{}) *analysis.Result {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var r analysis.Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil
	}
	return &r
}

// --- ExecutionRecord Converters ---

func ExecutionToFirestore(e *shared.ExecutionRecord) map[string]interface{} {
	m := map[string]interface{}{
		"id":           e.ID,
		"service":      e.Service,
		"trigger_type": e.TriggerType,
		"status":       e.Status,
		"start_time":   e.StartTime,
	}
	if e.ActivityID != "" {
		m["activity_id"] = e.ActivityID
	}
	if e.TestRunID != "" {
		m["test_run_id"] = e.TestRunID
	}
	if !e.EndTime.IsZero() {
		m["end_time"] = e.EndTime
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

func FirestoreToExecution(m map[string]interface{}) *shared.ExecutionRecord {
	return &shared.ExecutionRecord{
		ID:          getString(m, "id"),
		Service:     getString(m, "service"),
		TriggerType: getString(m, "trigger_type"),
		Status:      getString(m, "status"),
		ActivityID:  getString(m, "activity_id"),
		TestRunID:   getString(m, "test_run_id"),
		StartTime:   getTime(m, "start_time"),
		EndTime:     getTime(m, "end_time"),
		Error:       getString(m, "error"),
	}
}
