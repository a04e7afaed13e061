package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
)

// S3Config は S3 互換ストレージへのアップロード設定です。
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	// PublicBaseURL があれば "<PublicBaseURL>/<key>" を返します。
	PublicBaseURL string
	// PresignExpiry が正なら署名付き GET URL を返します。PublicBaseURL より優先します。
	PresignExpiry time.Duration
	UsePathStyle  bool
}

// S3API は S3Uploader が利用する S3 クライアントの操作です。
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner は署名付き URL の発行を抽象化します。
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Uploader は合成画像を S3 互換ストレージに置き、その URL を返します。
type S3Uploader struct {
	client    S3API
	presigner S3Presigner
	cfg       S3Config
}

// NewS3Uploader は AWS のデフォルト設定に静的クレデンシャルとエンドポイントを上書きしてクライアントを作ります。
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3UploaderWithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewS3UploaderWithClient は既存のクライアントで S3Uploader を作ります。presigner は nil でも構いません。
func NewS3UploaderWithClient(client S3API, presigner S3Presigner, cfg S3Config) *S3Uploader {
	return &S3Uploader{client: client, presigner: presigner, cfg: cfg}
}

// Upload は画像を PutObject して取得用 URL を返します。
func (u *S3Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	key, contentType := objectKey(u.cfg.Prefix, data)

	ctx, span := tracer.Start(ctx, "s3_upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("s3.bucket", u.cfg.Bucket),
		attribute.String("s3.key", key),
		attribute.Int("s3.size", len(data)),
	)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, u.cfg.Bucket, err)
	}
	slog.InfoContext(ctx, "合成画像をアップロードしました", "bucket", u.cfg.Bucket, "key", key)

	if u.cfg.PresignExpiry > 0 && u.presigner != nil {
		req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(u.cfg.Bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(u.cfg.PresignExpiry))
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("failed to presign %s: %w", key, err)
		}
		return req.URL, nil
	}

	base := u.cfg.PublicBaseURL
	if base == "" {
		if u.cfg.Endpoint == "" {
			return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key), nil
		}
		base = strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + key, nil
}
