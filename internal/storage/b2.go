package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

// B2Storage talks to Backblaze B2 through its S3-compatible API.
type B2Storage struct {
	client   *s3.S3
	bucket   string
	endpoint string
	cdn      CDN
}

func NewB2Storage(endpoint, region, bucket, keyID, appKey string, cdn CDN) (*B2Storage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(keyID, appKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(true),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &B2Storage{
		client:   s3.New(sess),
		bucket:   bucket,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		cdn:      cdn,
	}, nil
}

func (b *B2Storage) Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (Object, error) {
	out, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String(CacheControl),
		ACL:           aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload file to B2")
		return Object{}, fmt.Errorf("failed to upload to B2: %w", err)
	}
	log.Debug().Str("key", key).Str("etag", aws.StringValue(out.ETag)).Msg("uploaded file to B2")

	return Object{Key: key, Size: size, URL: b.URL(key)}, nil
}

func (b *B2Storage) List(ctx context.Context, prefix string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(strings.TrimSuffix(prefix, "/") + "/")
	}

	var objects []Object
	err := b.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, o := range page.Contents {
			key := aws.StringValue(o.Key)
			objects = append(objects, Object{
				Key:          key,
				Size:         aws.Int64Value(o.Size),
				LastModified: aws.TimeValue(o.LastModified),
				URL:          b.cdn.Rewrite(b.URL(key)),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list B2 objects: %w", err)
	}
	return objects, nil
}

func (b *B2Storage) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete B2 object %q: %w", key, err)
	}
	return nil
}

// URL is the public path-style URL of key in the bucket.
func (b *B2Storage) URL(key string) string {
	return joinURL(b.endpoint+"/"+b.bucket, key)
}
