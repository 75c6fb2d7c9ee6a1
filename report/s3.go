package report

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// S3Config locates the bucket that receives uploaded artifacts.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	AccessKey string `yaml:"accessKey" json:"-"`
	SecretKey string `yaml:"secretKey" json:"-"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	UseSSL    bool   `yaml:"useSSL" json:"useSSL"`
}

// Enabled reports whether an endpoint is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// S3Uploader publishes artifacts to an S3-compatible bucket under
// <prefix>/<runID>/<file>.
type S3Uploader struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	logger     *zap.Logger

	initOnce sync.Once
	initErr  error
}

func NewS3Uploader(cfg S3Config, logger *zap.Logger) (*S3Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Uploader{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		logger:     logger,
	}, nil
}

func (u *S3Uploader) Name() string { return "s3" }

func (u *S3Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucketName)
		if err != nil {
			u.initErr = err
			return
		}
		if exists {
			return
		}
		u.initErr = u.client.MakeBucket(ctx, u.bucketName, minio.MakeBucketOptions{Region: u.region})
	})
	return u.initErr
}

// Publish uploads every artifact. A failed upload does not stop the others.
func (u *S3Uploader) Publish(ctx context.Context, r *Report, artifacts []string) error {
	if err := u.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	var errs error
	for _, artifact := range artifacts {
		key := ObjectKey(u.prefix, r.Run.RunID, filepath.Base(artifact))
		_, err := u.client.FPutObject(ctx, u.bucketName, key, artifact, minio.PutObjectOptions{
			ContentType: contentType(artifact),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("uploading %s: %w", key, err))
			continue
		}
		u.logger.Debug("uploaded artifact", zap.String("bucket", u.bucketName), zap.String("key", key))
	}
	return errs
}

// ObjectKey joins the key parts with forward slashes, skipping empty ones.
func ObjectKey(prefix, runID, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, runID, name} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return path.Join(parts...)
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
