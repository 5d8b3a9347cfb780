package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config configures an S3 client for S3-compatible storage.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty uses AWS
	AccessKey string
	SecretKey string
	Prefix    string
	// PublicURL is the base the stored keys are served from, for example a
	// CDN in front of the bucket.
	PublicURL string
}

// NewS3Client builds an S3 client with static credentials. A custom
// endpoint switches to path-style addressing.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: cfg.AccessKey, SecretAccessKey: cfg.SecretKey, Source: "bartr-config"}, nil
		})),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// S3Store stores uploads in an S3 bucket.
type S3Store struct {
	client    S3API
	bucket    string
	prefix    string
	publicURL string
	maxSize   int64
}

// NewS3Store creates an S3Store. maxSize of 0 disables the size check.
func NewS3Store(client S3API, cfg S3Config, maxSize int64) *S3Store {
	public := cfg.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    cfg.Prefix,
		publicURL: strings.TrimSuffix(public, "/") + "/",
		maxSize:   maxSize,
	}
}

// Save uploads r as a new object. The body is buffered so the SDK can
// compute the payload checksum.
func (s *S3Store) Save(ctx context.Context, filename, contentType string, r io.Reader) (*File, error) {
	var buf bytes.Buffer
	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return nil, err
	}
	if s.maxSize > 0 && n > s.maxSize {
		return nil, ErrTooLarge
	}

	key := s.prefix + newKey(contentType)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(n),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filename,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}

	return &File{
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		Size:        n,
		URL:         s.publicURL + key,
	}, nil
}

// Delete removes the object stored under key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
