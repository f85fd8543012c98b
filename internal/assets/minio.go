package assets

import (
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperrors "fxjournal/internal/errors"
	"fxjournal/pkg/retry"
)

// MinioStore implements BlobStore against any S3-compatible endpoint.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// MinioOptions configures a MinioStore.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BaseURL   string
}

// NewMinioStore builds a blob store for the given endpoint and bucket.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, apperrors.NewBlobError("connect", opts.Endpoint, err)
	}
	return &MinioStore{
		client:  client,
		bucket:  opts.Bucket,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
	}, nil
}

func (s *MinioStore) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", apperrors.NewBlobError("presign", key, err)
	}
	return u.String(), nil
}

// Copy retries transient failures; an aborted promotion fails the whole
// save, so a short backoff is worth the latency.
func (s *MinioStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		_, err := s.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
			minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
		)
		return err
	})
	if err != nil {
		return apperrors.NewBlobError("copy", srcKey, err)
	}
	return nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.NewBlobError("delete", key, err)
	}
	return nil
}

func (s *MinioStore) BaseURL() string {
	return s.baseURL
}
