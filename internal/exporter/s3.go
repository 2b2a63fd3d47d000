package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3API is the part of *s3.Client used by S3Destination.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Destination puts exported files into a bucket under
// exports/<yyyy>/<mm>/<dd>/<uuid>/<filename>.
type S3Destination struct {
	client S3API
	bucket string
	now    func() time.Time
}

// NewS3Destination builds a client from the s3_* settings of cfg. Static
// credentials are used when an access key is configured; a base endpoint
// switches to path-style addressing for MinIO and similar servers.
func NewS3Destination(ctx context.Context, cfg *config.Config) (*S3Destination, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("%w: s3_bucket is required for S3 export", config.ErrConfiguration)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", config.ErrConfiguration, err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3DestinationWithClient(client, cfg.S3Bucket), nil
}

// NewS3DestinationWithClient wraps an existing client.
func NewS3DestinationWithClient(client S3API, bucket string) *S3Destination {
	return &S3Destination{client: client, bucket: bucket, now: time.Now}
}

func (d *S3Destination) storageKey(name string) string {
	t := d.now().UTC()
	return fmt.Sprintf("exports/%d/%02d/%02d/%v/%s", t.Year(), t.Month(), t.Day(), uuid.New(), safeBase(name))
}

func (d *S3Destination) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := d.storageKey(name)

	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{"sha256": cryptox.SHA256Hex(data)},
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", d.bucket, key, err)
	}

	return "s3://" + d.bucket + "/" + key, nil
}

func (d *S3Destination) ReadBack(ctx context.Context, location string) ([]byte, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	if !ok || !strings.HasPrefix(location, "s3://") || key == "" {
		return nil, fmt.Errorf("not an s3 location: %q", location)
	}

	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}
