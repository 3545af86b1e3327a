package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sahilchouksey/lessionprm-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubS3 struct {
	s3iface.S3API
	put     *s3.PutObjectInput
	body    []byte
	failPut bool
}

func (s *stubS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if s.failPut {
		return nil, errors.New("AccessDenied")
	}
	s.put = in
	s.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestUploadReturnsCDNURL(t *testing.T) {
	stub := &stubS3{}
	client := NewSpacesClientWithAPI(stub, SpacesConfig{Bucket: "lessionprm", Endpoint: "sgp1.digitaloceanspaces.com", CDNURL: "https://cdn.example.com"})

	url, err := client.Upload(context.Background(), "receipts/1/a.pdf", []byte("%PDF-"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/receipts/1/a.pdf", url)
	assert.Equal(t, "lessionprm", aws.StringValue(stub.put.Bucket))
	assert.Equal(t, "application/pdf", aws.StringValue(stub.put.ContentType))
	assert.Equal(t, []byte("%PDF-"), stub.body)
}

func TestUploadError(t *testing.T) {
	client := NewSpacesClientWithAPI(&stubS3{failPut: true}, SpacesConfig{Bucket: "b", Endpoint: "e"})
	_, err := client.Upload(context.Background(), "k", []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestBucketURLWithoutCDN(t *testing.T) {
	client := NewSpacesClientWithAPI(&stubS3{}, SpacesConfig{Bucket: "b", Endpoint: "sgp1.digitaloceanspaces.com"})
	assert.Equal(t, "https://b.sgp1.digitaloceanspaces.com/x.pdf", client.URL("x.pdf"))
}

func TestReceiptKey(t *testing.T) {
	now := time.Unix(1700000000, 0)
	assert.Equal(t, "receipts/7/1700000000-hosting-invoice-march.pdf", ReceiptKey(7, `C:\Users\me\Hosting Invoice March.pdf`, now))
}

func TestConfigFromEnv(t *testing.T) {
	_, ok := ConfigFromEnv(&config.EnvironmentVariable{})
	assert.False(t, ok)

	cfg, ok := ConfigFromEnv(&config.EnvironmentVariable{
		SPACES_ACCESS_KEY: "a",
		SPACES_SECRET_KEY: "s",
		SPACES_BUCKET:     "b",
		SPACES_REGION:     "sgp1",
	})
	assert.True(t, ok)
	assert.Equal(t, "sgp1.digitaloceanspaces.com", cfg.Endpoint)
}
