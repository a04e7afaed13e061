package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
)

// MinioConfig は MinIO へのアップロード設定です。
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Prefix        string
	PresignExpiry time.Duration
}

// MinioAPI は MinioUploader が利用する minio.Client の操作です。
type MinioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinioUploader は合成画像を MinIO に置き、その URL を返します。
type MinioUploader struct {
	client MinioAPI
	cfg    MinioConfig
}

// NewMinioUploader は静的クレデンシャルで MinIO クライアントを作ります。
func NewMinioUploader(cfg MinioConfig) (*MinioUploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return NewMinioUploaderWithClient(client, cfg), nil
}

// NewMinioUploaderWithClient は既存のクライアントで MinioUploader を作ります。
func NewMinioUploaderWithClient(client MinioAPI, cfg MinioConfig) *MinioUploader {
	return &MinioUploader{client: client, cfg: cfg}
}

// Upload はバケットを用意してから画像を置き、URL を返します。
func (u *MinioUploader) Upload(ctx context.Context, data []byte) (string, error) {
	key, contentType := objectKey(u.cfg.Prefix, data)

	ctx, span := tracer.Start(ctx, "minio_upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("minio.bucket", u.cfg.Bucket),
		attribute.String("minio.key", key),
		attribute.Int("minio.size", len(data)),
	)

	if err := u.ensureBucket(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	_, err := u.client.PutObject(ctx, u.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	if u.cfg.PresignExpiry > 0 {
		signed, err := u.client.PresignedGetObject(ctx, u.cfg.Bucket, key, u.cfg.PresignExpiry, url.Values{})
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("failed to presign object: %w", err)
		}
		return signed.String(), nil
	}

	protocol := "http"
	if u.cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, u.cfg.Endpoint, u.cfg.Bucket, key), nil
}

func (u *MinioUploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}
