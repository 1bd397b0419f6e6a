package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 client built by NewS3Client.
type S3Config struct {
	Region string

	// Endpoint overrides the S3 endpoint, for S3 compatible services such
	// as MinIO. Path style addressing is used when it is set.
	Endpoint string

	// AccessKeyID and SecretAccessKey default to the AWS_ACCESS_KEY_ID and
	// AWS_SECRET_ACCESS_KEY environment variables.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client creates an S3 client with static credentials.
func NewS3Client(cfg S3Config) *s3.Client {
	key, secret := cfg.AccessKeyID, cfg.SecretAccessKey
	if key == "" {
		key = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if secret == "" {
		secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     key,
			SecretAccessKey: secret,
			Source:          "spool",
		}, nil
	})

	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// S3Sink uploads pages to an S3 bucket.
//
// Example usage:
//
//	client := publish.NewS3Client(publish.S3Config{Region: "eu-west-1"})
//	sink := publish.NewS3Sink(client, "my-site", "pages/")
//	publish.Page(ctx, renderer, sink, "index.html", page)
type S3Sink struct {
	client       *s3.Client
	bucket       string
	prefix       string
	cacheControl string
}

// NewS3Sink creates a sink that stores pages in bucket under prefix.
func NewS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client:       client,
		bucket:       bucket,
		prefix:       prefix,
		cacheControl: "public, max-age=300",
	}
}

// WithCacheControl sets the Cache-Control header of uploaded pages.
func (s *S3Sink) WithCacheControl(v string) *S3Sink {
	s.cacheControl = v
	return s
}

// Publish implements Sink.
func (s *S3Sink) Publish(ctx context.Context, name string, page []byte) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	key := s.prefix + clean

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(page),
		ContentType:  aws.String("text/html; charset=utf-8"),
		CacheControl: aws.String(s.cacheControl),
		Metadata: map[string]string{
			"publish-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish: s3 upload failed: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
