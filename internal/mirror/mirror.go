// Package mirror implements the archive mirror of SPEC_FULL.md §4.11
// (C11): upload/download/exists against an S3-compatible bucket so a
// fleet of ingestion hosts shares one fetch of the upstream archive.
// Narrowed from the teacher's full S3 client (pkg/storage/s3/s3.go) to
// the three operations this system needs — no multipart tuning, since
// every transfer here is already a local file written by C1/C2.
package mirror

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Entry is the pointer row for a mirrored archive (SPEC_FULL.md §3,
// ArchiveMirrorEntry) — the bytes live in the bucket. Exists and Upload
// return it to the caller; this package does not persist it anywhere.
type Entry struct {
	Bucket     string    `msgpack:"bucket"`
	Key        string    `msgpack:"key"`
	ETag       string    `msgpack:"etag"`
	SizeBytes  int64     `msgpack:"sizeBytes"`
	UploadedAt time.Time `msgpack:"uploadedAt"`
}

// Config configures a Client. Region and Bucket follow
// ADDRESSKIT_MIRROR_REGION/ADDRESSKIT_MIRROR_BUCKET; leaving Bucket
// empty means the mirror is disabled entirely (spec.md §4.11) — callers
// should not construct a Client in that case.
type Config struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	UsePathStyle     bool
	OperationTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 30 * time.Second
	}
	return c
}

// Client is the narrowed S3 client used by the archive mirror.
type Client struct {
	cfg    Config
	client *s3.Client
}

// NewClient constructs a Client, following the teacher's
// NewClient(ctx, cfg) shape (pkg/storage/s3/s3.go).
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Client{cfg: cfg, client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Exists checks whether bucket/key already holds a mirrored archive.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, *Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("head %s/%s: %w", bucket, key, err)
	}

	entry := &Entry{
		Bucket:    bucket,
		Key:       key,
		SizeBytes: aws.ToInt64(out.ContentLength),
	}
	if out.ETag != nil {
		entry.ETag = *out.ETag
	}
	if out.LastModified != nil {
		entry.UploadedAt = *out.LastModified
	}
	return true, entry, nil
}

// Upload pushes localPath to bucket/key.
func (c *Client) Upload(ctx context.Context, localPath, bucket, key string) (*Entry, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	out, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return nil, fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	entry := &Entry{Bucket: bucket, Key: key, SizeBytes: info.Size(), UploadedAt: time.Now()}
	if out.ETag != nil {
		entry.ETag = *out.ETag
	}
	return entry, nil
}

// Download pulls bucket/key to localPath.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) error {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := copyAll(dst, out.Body); err != nil {
		return fmt.Errorf("download %s/%s to %s: %w", bucket, key, localPath, err)
	}
	return nil
}
