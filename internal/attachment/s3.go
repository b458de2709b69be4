package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Additional-Code/procura/internal/config"
)

// objectPutter is the slice of the S3 client the store needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads attachments to a bucket and returns their public URL.
type S3 struct {
	client       objectPutter
	bucket       string
	region       string
	publicDomain string
	maxBytes     int64
}

// NewS3 builds an S3 store from static credentials, falling back to the
// default credential chain when none are configured.
func NewS3(ctx context.Context, cfg config.S3, maxBytes int64) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(sdkConfig), cfg, maxBytes), nil
}

func newS3(client objectPutter, cfg config.S3, maxBytes int64) *S3 {
	return &S3{
		client:       client,
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		publicDomain: cfg.PublicDomain,
		maxBytes:     maxBytes,
	}
}

// Store implements Store.
func (s *S3) Store(ctx context.Context, name string, body io.Reader) (string, error) {
	key := "attachments/" + objectKey(name)
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        limit(body, s.maxBytes),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("upload attachment: %w", err)
	}

	if s.publicDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.publicDomain, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
