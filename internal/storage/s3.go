package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// S3 stores bundle blobs in an S3-compatible bucket under
// bundles/<version>/<platform>.bundle.
type S3 struct {
	client *minio.Client
	bucket string
}

func NewS3(client *minio.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

func objectKey(platform, version string) string {
	return fmt.Sprintf("bundles/%s/%s.bundle", version, platform)
}

func (s *S3) Put(ctx context.Context, platform, version string, r io.Reader) (string, error) {
	key := objectKey(platform, version)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucket, key), nil
}

func (s *S3) Delete(ctx context.Context, platform, version string) error {
	key := objectKey(platform, version)
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
