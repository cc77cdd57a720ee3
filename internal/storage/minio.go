package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStorage stores uploads in a MinIO (or any S3-compatible) bucket.
// Used for self-hosted installs and local development.
type MinioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioStorage(endpoint, accessKey, secretKey, bucket, publicBaseURL string, useSSL bool) (*MinioStorage, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := cli.BucketExists(ctx, bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("failed to create or verify bucket %s: %w", bucket, err)
		}
	}

	base := publicBaseURL
	if base == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cli.EndpointURL().Host, bucket)
	} else if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}

	log.Info().Str("endpoint", endpoint).Str("bucket", bucket).Msg("connected to minio")
	return &MinioStorage{client: cli, bucket: bucket, baseURL: strings.TrimSuffix(base, "/")}, nil
}

func (m *MinioStorage) Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (Object, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: CacheControl,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload to minio: %w", err)
	}
	return Object{Key: key, Size: info.Size, LastModified: info.LastModified, URL: m.URL(key)}, nil
}

func (m *MinioStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if prefix != "" {
		opts.Prefix = strings.TrimSuffix(prefix, "/") + "/"
	}

	var objects []Object
	for o := range m.client.ListObjects(ctx, m.bucket, opts) {
		if o.Err != nil {
			return nil, fmt.Errorf("failed to list minio objects: %w", o.Err)
		}
		objects = append(objects, Object{Key: o.Key, Size: o.Size, LastModified: o.LastModified, URL: m.URL(o.Key)})
	}
	return objects, nil
}

func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete minio object %q: %w", key, err)
	}
	return nil
}

func (m *MinioStorage) URL(key string) string {
	return joinURL(m.baseURL, key)
}
