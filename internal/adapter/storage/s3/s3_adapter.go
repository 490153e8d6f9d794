package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const objectPrefix = "listings"

// S3Storage stores listing images in a MinIO/S3 bucket.
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// NewS3Storage connects to endpoint and makes sure bucket exists.
func NewS3Storage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log *logger.Logger) (*S3Storage, error) {
	log.Info("Initializing S3 MinIO Storage", zap.String("endpoint", endpoint), zap.String("bucket", bucket), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", bucket, err)
		}
		log.Info("S3Storage: bucket created", zap.String("bucket", bucket))
	}

	return &S3Storage{client: client, bucket: bucket, logger: log.Named("S3Storage")}, nil
}

// objectKey names the stored object after a fresh uuid, keeping the extension.
func objectKey(filename string) string {
	return path.Join(objectPrefix, uuid.NewString()+filepath.Ext(filename))
}

// Upload stores data and returns its public URL with the object key as filename.
func (s *S3Storage) Upload(ctx context.Context, filename, contentType string, data []byte) (domain.ImageRef, error) {
	key := objectKey(filename)

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": filepath.Base(filename)},
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return domain.ImageRef{}, fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key)
	s.logger.Info("Image uploaded", zap.String("key", key), zap.Int64("size", info.Size), zap.String("url", url))
	return domain.ImageRef{URL: url, Filename: key}, nil
}

// Delete removes a previously uploaded object.
func (s *S3Storage) Delete(ctx context.Context, filename string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, filename, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s from bucket %s: %w", filename, s.bucket, err)
	}
	s.logger.Info("Image removed", zap.String("key", filename))
	return nil
}
