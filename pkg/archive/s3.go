// Package archive uploads board exports to S3.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/muelle-planner/platform/pkg/codec"
	"github.com/muelle-planner/platform/pkg/common/logger"
	"github.com/muelle-planner/platform/pkg/schema"
)

// PutObjectAPI is the part of the S3 client the archiver needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Bucket          string
	Region          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// Result lists the keys written by Put.
type Result struct {
	Bucket      string `json:"bucket"`
	DocumentKey string `json:"documentKey"`
	CSVKey      string `json:"csvKey"`
}

// New builds an archiver on the default AWS credential chain, or on static
// keys when both are set.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(sdkConfig), cfg.Bucket, cfg.Prefix), nil
}

func NewWithClient(client PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads the document and CSV exports of one board under
// <prefix>/<YYYY-MM-DD>/.
func (a *Archiver) Put(ctx context.Context, variant schema.Variant, now time.Time, document, csv []byte) (Result, error) {
	day := now.Format("2006-01-02")
	res := Result{
		Bucket:      a.bucket,
		DocumentKey: path.Join(a.prefix, day, codec.ExportFilename(codec.KindDocument, variant, now)),
		CSVKey:      path.Join(a.prefix, day, codec.ExportFilename(codec.KindCSV, variant, now)),
	}

	if err := a.put(ctx, res.DocumentKey, "application/json", document); err != nil {
		return Result{}, err
	}
	if err := a.put(ctx, res.CSVKey, "text/csv; charset=utf-8", csv); err != nil {
		return Result{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"bucket":  a.bucket,
		"variant": variant,
		"csv_key": res.CSVKey,
	}).Info("board archived")
	return res, nil
}

func (a *Archiver) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}
