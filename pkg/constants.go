package shared

const (
	ProjectID = "coursescope-project" // Can be overridden by env var in main if needed

	TopicActivityUploaded = "activity-uploaded"
	TopicActivityAnalyzed = "activity-analyzed"

	EventTypeActivityUploaded = "com.coursescope.activity.uploaded"
	EventTypeActivityAnalyzed = "com.coursescope.activity.analyzed"
	EventSourceAnalyzer       = "//coursescope/functions/analyzer"
	EventSourceAPI            = "//coursescope/services/api"

	CollectionActivities = "activities"
	CollectionAnalyses   = "analyses"
	CollectionExecutions = "executions"
)
