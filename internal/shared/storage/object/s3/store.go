package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"securelink-backend/internal/shared/storage/object"
)

// Options configures the S3 store.
type Options struct {
	Region   string
	Bucket   string
	Prefix   string
	KMSKeyID string
	// Endpoint points the client at an S3-compatible service; path-style addressing is used.
	Endpoint string
	URLTTL   time.Duration
}

// Store implements ObjectStore using Amazon S3.
type Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	prefix   string
	kmsKeyID string
	urlTTL   time.Duration
}

// New creates an S3-backed object store using the default credential chain.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFromConfig(cfg, opts), nil
}

// NewFromConfig builds a Store from an already loaded aws.Config.
func NewFromConfig(cfg aws.Config, opts Options) *Store {
	clientOpts := []func(*s3.Options){
		func(o *s3.Options) {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.HTTPClient = &sendProgressClient{next: o.HTTPClient}
		},
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(cfg, clientOpts...)
	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		client:   client,
		presign:  s3.NewPresignClient(client),
		bucket:   opts.Bucket,
		prefix:   normalizePrefix(opts.Prefix),
		kmsKeyID: strings.TrimSpace(opts.KMSKeyID),
		urlTTL:   ttl,
	}
}

// Exists issues a HeadObject for key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	objectKey := applyPrefix(s.prefix, key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return true, nil
}

// Put uploads the body. IfAbsent sends If-None-Match: * so S3 rejects the
// write atomically when the key already exists.
func (s *Store) Put(ctx context.Context, in object.PutInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Bodies are small; buffering gives the SDK a seekable payload for signing.
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	total := in.Size
	if total <= 0 {
		total = int64(len(data))
	}
	if in.Progress != nil {
		ctx = context.WithValue(ctx, progressKey{}, progressTarget{total: total, fn: in.Progress})
	}

	objectKey := applyPrefix(s.prefix, in.Key)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.IfAbsent {
		input.IfNoneMatch = aws.String("*")
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return 0, object.ErrAlreadyExists
		}
		return 0, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return int64(len(data)), nil
}

// URL presigns a GET for key after confirming the object exists.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", object.ErrNotFound
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(applyPrefix(s.prefix, key)),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("s3 presign get key=%s: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes key. S3 deletes are idempotent, so a missing key returns nil.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey := applyPrefix(s.prefix, key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return object.ErrNotFound
		}
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

type progressKey struct{}

type progressTarget struct {
	total int64
	fn    object.ProgressFunc
}

// sendProgressClient reports progress while the request body is written to
// the wire. The SDK may read the body earlier for signing; those reads are
// not counted.
type sendProgressClient struct {
	next s3.HTTPClient
}

func (c *sendProgressClient) Do(req *http.Request) (*http.Response, error) {
	next := c.next
	if next == nil {
		next = http.DefaultClient
	}
	target, ok := req.Context().Value(progressKey{}).(progressTarget)
	if ok && req.Body != nil && req.Body != http.NoBody {
		req.Body = progressBody{
			Reader: object.NewProgressReader(req.Body, target.total, target.fn),
			Closer: req.Body,
		}
	}
	return next.Do(req)
}

type progressBody struct {
	io.Reader
	io.Closer
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
