package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/coursescope/server/pkg"
)

// Client wraps a Firestore client with typed collection accessors. The
// optional prefix namespaces collections so test runs and staging deploys
// share a project without sharing data.
type Client struct {
	fs     *firestore.Client
	prefix string
}

func NewClient(client *firestore.Client, prefix string) *Client {
	return &Client{fs: client, prefix: prefix}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) name(base string) string {
	if c.prefix == "" {
		return base
	}
	return c.prefix + "_" + base
}

// Activities is the top-level collection: activities/{id}
func (c *Client) Activities() *Collection[shared.ActivityRecord] {
	return &Collection[shared.ActivityRecord]{
		Ref:           c.fs.Collection(c.name(shared.CollectionActivities)),
		ToFirestore:   ActivityToFirestore,
		FromFirestore: FirestoreToActivity,
	}
}

// ActivityAnalyses are sub-collections of Activities keyed by engine
// version: activities/{id}/analyses/{version}
func (c *Client) ActivityAnalyses(activityID string) *Collection[shared.AnalysisRecord] {
	return &Collection[shared.AnalysisRecord]{
		Ref:           c.fs.Collection(c.name(shared.CollectionActivities)).Doc(activityID).Collection(shared.CollectionAnalyses),
		ToFirestore:   AnalysisToFirestore,
		FromFirestore: FirestoreToAnalysis,
	}
}

// Executions is the top-level collection: executions/{id}
func (c *Client) Executions() *Collection[shared.ExecutionRecord] {
	return &Collection[shared.ExecutionRecord]{
		Ref:           c.fs.Collection(c.name(shared.CollectionExecutions)),
		ToFirestore:   ExecutionToFirestore,
		FromFirestore: FirestoreToExecution,
	}
}
