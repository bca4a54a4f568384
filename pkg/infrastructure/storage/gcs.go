// Package storage holds the GCS-backed blob store for raw activity uploads.
package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// StorageAdapter implements shared.BlobStore on Google Cloud Storage. The
// API writes raw FIT/GPX uploads through it and the analyzer reads them
// back; Delete runs when an activity is removed.
type StorageAdapter struct {
	Client *storage.Client
}

func (a *StorageAdapter) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		return err
	}
	return wc.Close()
}

func (a *StorageAdapter) Read(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	rc, err := a.Client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (a *StorageAdapter) Delete(ctx context.Context, bucketName, objectName string) error {
	return a.Client.Bucket(bucketName).Object(objectName).Delete(ctx)
}
