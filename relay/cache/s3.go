package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Path         string
}

// S3Backend stores each key as one object. S3 has no per-object TTL, so
// the expiry travels inside the payload and is checked on read.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 cache requires a bucket")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Path}, nil
}

func (b *S3Backend) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "s3 get %s", key)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, errors.Wrap(err, "read s3 object")
	}
	var v expiringValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, errors.Wrap(err, "decode s3 object")
	}
	if v.expired(time.Now()) {
		return nil, false, nil
	}
	return v.Value, true, nil
}

func (b *S3Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(newExpiringValue(value, ttl))
	if err != nil {
		return errors.Wrap(err, "encode s3 object")
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if ttl > 0 {
		input.CacheControl = aws.String(fmt.Sprintf("immutable, max-age=%d, s-maxage=%d", int(ttl.Seconds()), int(ttl.Seconds())))
		input.Expires = aws.Time(time.Now().Add(ttl))
	}
	_, err = b.client.PutObject(ctx, input)
	return errors.Wrapf(err, "s3 put %s", key)
}

func (b *S3Backend) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.objectKey(key)),
		})
		if err != nil {
			return errors.Wrapf(err, "s3 delete %s", key)
		}
	}
	return nil
}

func (b *S3Backend) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	return errors.Wrap(err, "s3 head bucket")
}

func (b *S3Backend) Close() error {
	return nil
}
