package blobstore

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/ordforge/mint-engine/common/errs"
)

// Store is an S3-backed object store for generated artifacts (images,
// thumbnails, video files) and inscription payloads.
type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

type Config struct {
	Region string
	Bucket string

	// Endpoint overrides the S3 endpoint for S3-compatible stores. Optional.
	Endpoint string

	// PublicBaseURL is the base URL objects are served from. Optional,
	// defaults to the virtual-hosted S3 URL.
	PublicBaseURL string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.Wrap(errs.ArgumentRequired, "bucket is required")
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBaseURL := cfg.PublicBaseURL
	if publicBaseURL == "" {
		publicBaseURL = "https://" + cfg.Bucket + ".s3." + cfg.Region + ".amazonaws.com"
	}

	return &Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Put uploads an object and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload object for bucket %q and key %q", s.bucket, key)
	}
	return s.PublicURL(key), nil
}

// Get downloads an object.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	downloader := manager.NewDownloader(s.client)

	buffer := manager.NewWriteAtBuffer([]byte{})
	numBytes, err := downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download object for bucket %q and key %q", s.bucket, key)
	}
	if numBytes < 1 {
		return nil, errors.Wrap(errs.NotFound, "got empty object")
	}

	return buffer.Bytes(), nil
}

// PublicURL returns the public URL of an object key.
func (s *Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimPrefix(key, "/")
}
