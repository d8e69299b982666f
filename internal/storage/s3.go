package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/docsuite/internal/domain"
)

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type headAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Archive copies final packages to a bucket under a dated prefix.
type S3Archive struct {
	uploader uploadAPI
	head     headAPI
	bucket   string
	prefix   string

	// Now is the clock used for key dates.
	Now func() time.Time
}

// NewS3Archive loads the default AWS credential chain.
func NewS3Archive(ctx context.Context, bucket, prefix string) (*S3Archive, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return newS3Archive(manager.NewUploader(cli), cli, bucket, prefix), nil
}

func newS3Archive(up uploadAPI, head headAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{uploader: up, head: head, bucket: bucket, prefix: prefix, Now: time.Now}
}

func (s *S3Archive) Bucket() string { return s.bucket }

// Key returns <prefix>/<yyyy>/<mm>/<dd>/<jobID>/<name>.
func (s *S3Archive) Key(jobID, name string) string {
	return path.Join(s.prefix, s.Now().UTC().Format("2006/01/02"), jobID, name)
}

// Archive uploads the file at filePath and returns its object key.
func (s *S3Archive) Archive(ctx context.Context, jobID, name, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	key := s.Key(jobID, name)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(domain.MediaTypeFor(name)),
		Metadata: map[string]string{
			"job-id": jobID,
			"name":   name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", s.bucket).Str("key", key).Str("job_id", jobID).Msg("archived package to S3")
	return key, nil
}

// Ping checks that the bucket is reachable with the current credentials.
func (s *S3Archive) Ping(ctx context.Context) error {
	_, err := s.head.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
