package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrEmptyPayload is returned when Upload is called with no bytes.
var ErrEmptyPayload = errors.New("image payload is empty")

// Storage publishes generated images to an S3-compatible object store and
// hands back durable URLs. Uploads are write-once: every call creates a new
// object, so callers must publish at most once per job.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// NewStorage creates a Storage connected to the specified object store.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Upload stores the PNG bytes under a fresh object name and returns the
// object's URL. It does not retry; the caller decides how to handle failure.
func (s *Storage) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}

	objectName := fmt.Sprintf("results/%s.png", uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload result: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucketName, objectName), nil
}
