package s3store

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/forPelevin/vidscope/internal/apperr"
)

type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Store uploads run artifacts to an S3 compatible bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	const op = "s3store.New"

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, apperr.Config(op, nil, "storage.s3_bucket is required for upload")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperr.Config(op, err, "unable to load S3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Upload puts each file under <prefix>/<runID>/<basename> and returns the object keys.
func (s *Store) Upload(ctx context.Context, runID string, files []string) ([]string, error) {
	const op = "s3store.Upload"

	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := objectKey(s.prefix, runID, f)
		if err := s.put(ctx, key, f); err != nil {
			return keys, apperr.Internal(op, err, "failed to upload "+filepath.Base(f))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) put(ctx context.Context, key, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   fh,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	_, err = s.client.PutObject(ctx, in)
	return err
}

func objectKey(prefix, runID, file string) string {
	prefix = strings.Trim(prefix, "/")
	return path.Join(prefix, runID, filepath.Base(file))
}
