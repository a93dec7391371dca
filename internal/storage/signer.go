// Package storage signs download links for objects in the S3-compatible image store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LinkTTL is how long a signed image link stays valid.
const LinkTTL = 5 * time.Minute

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("object storage not configured")

// Signer produces time-limited GET links for stored objects.
type Signer interface {
	SignedURL(ctx context.Context, storagePath string) (string, error)
}

// Config selects the bucket and credentials.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Signer presigns GetObject requests.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// NewSigner builds an S3 signer, or a signer that always fails with
// ErrNotConfigured when no bucket is set.
func NewSigner(ctx context.Context, cfg Config) (Signer, error) {
	if cfg.Bucket == "" {
		return disabledSigner{}, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Signer{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     LinkTTL,
	}, nil
}

// SignedURL returns a presigned GET URL for the object at storagePath.
func (s *S3Signer) SignedURL(ctx context.Context, storagePath string) (string, error) {
	key := NormalizePath(storagePath)
	if key == "" {
		return "", errors.New("storage path is required")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// NormalizePath decodes the escaped separators clients send in image paths.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "%2F", "/")
	p = strings.ReplaceAll(p, "%40", "@")
	return strings.TrimPrefix(p, "/")
}

type disabledSigner struct{}

func (disabledSigner) SignedURL(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
