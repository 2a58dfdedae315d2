package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/abduss/secureupload/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an AWS SDK S3 client. Static credentials are used when
// configured; otherwise the default provider chain applies.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := s3Endpoint(cfg)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return client, nil
}

// NewS3Presigner wraps client for presigned requests.
func NewS3Presigner(client *s3.Client) *s3.PresignClient {
	return s3.NewPresignClient(client)
}

func s3Endpoint(cfg config.StorageConfig) string {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if cfg.UseSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// S3Pinger checks that the configured bucket is reachable.
type S3Pinger struct {
	Client *s3.Client
	Bucket string
}

func (p S3Pinger) Name() string { return "s3" }

func (p S3Pinger) Ping(ctx context.Context) error {
	_, err := p.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.Bucket)})
	return err
}
