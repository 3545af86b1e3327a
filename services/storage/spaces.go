// Package storage keeps uploaded files in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sahilchouksey/lessionprm-api/config"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// Uploader stores blobs and returns their public URL
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string // host without scheme, e.g. sgp1.digitaloceanspaces.com
	CDNURL    string
}

// ConfigFromEnv reads the SPACES_* settings; ok is false when uploads are disabled
func ConfigFromEnv(env *config.EnvironmentVariable) (SpacesConfig, bool) {
	cfg := SpacesConfig{
		AccessKey: env.SPACES_ACCESS_KEY,
		SecretKey: env.SPACES_SECRET_KEY,
		Bucket:    env.SPACES_BUCKET,
		Region:    env.SPACES_REGION,
		Endpoint:  env.SPACES_ENDPOINT,
		CDNURL:    strings.TrimSuffix(env.SPACES_CDN_URL, "/"),
	}
	if cfg.Endpoint == "" && cfg.Region != "" {
		cfg.Endpoint = cfg.Region + ".digitaloceanspaces.com"
	}
	ok := cfg.AccessKey != "" && cfg.SecretKey != "" && cfg.Bucket != "" && cfg.Region != ""
	return cfg, ok
}

// SpacesClient uploads to DigitalOcean Spaces or any S3 API
type SpacesClient struct {
	s3     s3iface.S3API
	config SpacesConfig
}

func NewSpacesClient(cfg SpacesConfig) (*SpacesClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String("https://" + cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{s3: s3.New(sess), config: cfg}, nil
}

// NewSpacesClientWithAPI is used with a stubbed S3 API
func NewSpacesClientWithAPI(api s3iface.S3API, cfg SpacesConfig) *SpacesClient {
	return &SpacesClient{s3: api, config: cfg}
}

func (s *SpacesClient) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         aws.String("private"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *SpacesClient) Delete(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// URL returns the CDN URL when one is configured, otherwise the bucket URL
func (s *SpacesClient) URL(key string) string {
	if s.config.CDNURL != "" {
		return s.config.CDNURL + "/" + key
	}
	return fmt.Sprintf("https://%s.%s/%s", s.config.Bucket, s.config.Endpoint, key)
}

// ReceiptKey builds the object key of an expense receipt
func ReceiptKey(expenseID uint, filename string, now time.Time) string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return fmt.Sprintf("receipts/%d/%d-%s", expenseID, now.Unix(), base)
}
