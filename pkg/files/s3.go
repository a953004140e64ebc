package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures access to S3 or an S3-compatible object store.
type S3Options struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store accesses s3://bucket/key objects.
type S3Store struct {
	client S3API
}

// NewS3Store creates a store from static options.
func NewS3Store(opts S3Options) *S3Store {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if o.Region == "" {
		o.Region = "us-east-1"
	}
	if opts.AccessKeyID != "" {
		o.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
	}
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Store{client: s3.New(o)}
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client S3API) *S3Store {
	return &S3Store{client: client}
}

func parseS3Path(p string) (bucket, key string, err error) {
	bucket, key, ok := splitBucketURL(p, "s3")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 path %q", p)
	}
	return bucket, key, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *S3Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Path(p)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if isS3NotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return out.Body, nil
}

func (s *S3Store) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	bucket, key, err := parseS3Path(p)
	if err != nil {
		return nil, err
	}
	return &bufferedWriter{flush: func(data string) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   strings.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		return nil
	}}, nil
}

func (s *S3Store) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key, err := parseS3Path(p)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if isS3NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return true, nil
}

func (s *S3Store) Glob(ctx context.Context, pattern string) ([]string, error) {
	bucket, keyPattern, err := parseS3Path(pattern)
	if err != nil {
		return nil, err
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(listPrefix(keyPattern)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	matched, err := matchKeys(keyPattern, keys)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matched))
	for i, k := range matched {
		out[i] = "s3://" + bucket + "/" + k
	}
	sort.Strings(out)
	return out, nil
}
