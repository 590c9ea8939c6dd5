// Package artifact stores the files a run produces (part files, schema.sql,
// report.json and manifest.json) on a local directory or an S3 bucket, and
// records them in a checksummed manifest.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink stores named artifacts. Re-running a job overwrites its files.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Location is a human-readable address of name, for logs.
	Location(name string) string
}

// FSSink writes into a local directory, creating it on first use.
type FSSink struct {
	Dir string
}

// Put writes through a temp file and a rename so readers never see a
// partial file.
func (s FSSink) Put(_ context.Context, name string, data []byte, _ string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("artifact: mkdir %s: %w", s.Dir, err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("artifact: create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Location(name)); err != nil {
		return fmt.Errorf("artifact: rename %s: %w", name, err)
	}
	return nil
}

func (s FSSink) Location(name string) string { return filepath.Join(s.Dir, name) }

// S3Config configures an S3 (or S3-compatible, e.g. MinIO) sink.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "bpma/2024/".
	Prefix          string
	Region          string
	Endpoint        string // optional; enables a custom endpoint
	AccessKeyID     string // optional; falls back to the default chain
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// S3Sink puts artifacts as objects in one bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink builds the client from cfg and the default AWS config chain.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("artifact: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Sink(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) key(name string) string { return s.prefix + name }

// Put uploads data with a single PutObject.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte, contentType string) error {
	if err := validName(name); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("artifact: put s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	return nil
}

func (s *S3Sink) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("artifact: invalid name %q", name)
	}
	return nil
}
