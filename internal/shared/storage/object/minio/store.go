package minio

import (
	"context"
	"fmt"
	"net/http"
	"time"

	miniolib "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"securelink-backend/internal/shared/storage/object"
	"securelink-backend/internal/shared/telemetry"
)

// Options configures the MinIO store.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLTTL    time.Duration
}

// Store implements ObjectStore against a MinIO (or other S3-compatible) server.
type Store struct {
	client *miniolib.Client
	bucket string
	urlTTL time.Duration
}

// New connects to MinIO and creates the bucket when missing.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := miniolib.New(opts.Endpoint, &miniolib.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	store := newStore(client, opts)
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newStore(client *miniolib.Client, opts Options) *Store {
	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{client: client, bucket: opts.Bucket, urlTTL: ttl}
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, miniolib.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio make bucket %s: %w", s.bucket, err)
	}
	telemetry.Info("minio.bucket_created", map[string]any{"bucket": s.bucket})
	return nil
}

// Exists stats the object.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, miniolib.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("minio stat bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return true, nil
}

// Put uploads the body. MinIO has no conditional PUT in this client, so
// IfAbsent is a stat probe immediately before the write.
func (s *Store) Put(ctx context.Context, in object.PutInput) (int64, error) {
	if in.IfAbsent {
		exists, err := s.Exists(ctx, in.Key)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, object.ErrAlreadyExists
		}
	}

	size := in.Size
	if size <= 0 {
		size = -1
	}
	opts := miniolib.PutObjectOptions{ContentType: in.ContentType}
	if in.Progress != nil {
		opts.Progress = object.NewProgressSink(in.Size, in.Progress)
	}
	info, err := s.client.PutObject(ctx, s.bucket, in.Key, in.Body, size, opts)
	if err != nil {
		return 0, fmt.Errorf("minio put bucket=%s key=%s: %w", s.bucket, in.Key, err)
	}
	return info.Size, nil
}

// URL presigns a GET after confirming the object exists.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", object.ErrNotFound
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign key=%s: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes key. MinIO reports success for missing keys.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, miniolib.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return object.ErrNotFound
		}
		return fmt.Errorf("minio remove bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := miniolib.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

var _ object.ObjectStore = (*Store)(nil)
