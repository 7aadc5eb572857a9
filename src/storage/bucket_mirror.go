package storage

import (
	"context"
	"io"
	"log/slog"
	"os"

	gcs "cloud.google.com/go/storage"

	"stockbot/src/utils/errors"
)

// BucketMirror keeps a copy of the state file in a GCS object.
type BucketMirror struct {
	client     *gcs.Client
	bucketName string
	objectPath string
}

func NewBucketMirror(ctx context.Context, bucketName, objectPath string) (*BucketMirror, error) {
	if bucketName == "" || objectPath == "" {
		return nil, errors.New("bucket and object are required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	return &BucketMirror{
		client:     client,
		bucketName: bucketName,
		objectPath: objectPath,
	}, nil
}

func (m *BucketMirror) Push(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "open %s", localPath)
	}
	defer file.Close()

	writer := m.client.Bucket(m.bucketName).Object(m.objectPath).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, file); err != nil {
		writer.Close()
		return errors.Wrapf(err, "upload to gs://%s/%s", m.bucketName, m.objectPath)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrapf(err, "finalize gs://%s/%s", m.bucketName, m.objectPath)
	}
	slog.Debug("Pushed state file", "bucket", m.bucketName, "object", m.objectPath)
	return nil
}

func (m *BucketMirror) Pull(ctx context.Context, localPath string) (bool, error) {
	reader, err := m.client.Bucket(m.bucketName).Object(m.objectPath).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "open gs://%s/%s", m.bucketName, m.objectPath)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return false, errors.Wrapf(err, "download gs://%s/%s", m.bucketName, m.objectPath)
	}
	if err := writeFileAtomic(localPath, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func (m *BucketMirror) Close() error {
	return m.client.Close()
}
