package s3storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/uzsteam/xmlator/internal/config"
)

// Storage wraps MinIO/S3 interactions for bulk archive distribution. Testers
// on other networks fetch their archives through presigned URLs instead of
// the filedrop share.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.ArchiveBucket,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the archive bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// UploadArchive stores a local ZIP under its base name and returns the object
// key.
func (s *Storage) UploadArchive(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	objectKey := filepath.Base(path)
	opts := minio.PutObjectOptions{ContentType: "application/zip"}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, f, info.Size(), opts); err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	return objectKey, nil
}

// PresignArchiveURL returns a signed GET URL for a stored archive.
func (s *Storage) PresignArchiveURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign archive: %w", err)
	}
	return u.String(), nil
}
