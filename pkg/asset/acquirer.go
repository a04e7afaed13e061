package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/imgutil"
)

var tracer = otel.Tracer("grid-batch-kit/asset")

const cacheKeyImage = "image:"

// Acquirer は参照画像を取得し、JPEG/PNG であることを検証して 1024x1024 に正規化します。
type Acquirer struct {
	httpClient   HTTPClient
	reader       remoteio.InputReader
	cache        ImageCacher
	cacheTTL     time.Duration
	allowPrivate bool
}

// Option は Acquirer の任意設定です。
type Option func(*Acquirer)

// WithInputReader は gs:// などのオブジェクトストレージ URI を読むリーダーを設定します。
func WithInputReader(r remoteio.InputReader) Option {
	return func(a *Acquirer) { a.reader = r }
}

// WithCache は取得したバイト列を URI 単位でキャッシュします。
func WithCache(cache ImageCacher, ttl time.Duration) Option {
	return func(a *Acquirer) {
		a.cache = cache
		a.cacheTTL = ttl
	}
}

// WithPrivateNetworks は SSRF チェックを無効にします。社内ストレージやテスト用です。
func WithPrivateNetworks() Option {
	return func(a *Acquirer) { a.allowPrivate = true }
}

// NewAcquirer は依存関係を注入して Acquirer を初期化します。
func NewAcquirer(httpClient HTTPClient, opts ...Option) (*Acquirer, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	a := &Acquirer{httpClient: httpClient}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Acquire は URI の画像を取得して ValidatedImage を返します。
// 1024x1024 でない画像はアスペクト比を保って透明余白付きで収め、PNG として再エンコードします。
func (a *Acquirer) Acquire(ctx context.Context, uri string) (domain.ValidatedImage, error) {
	ctx, span := tracer.Start(ctx, "asset_acquire")
	defer span.End()
	span.SetAttributes(attribute.String("asset.uri", uri))

	data, err := a.fetch(ctx, uri)
	if err != nil {
		span.RecordError(err)
		return domain.ValidatedImage{}, err
	}

	img, err := normalize(data)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return domain.ValidatedImage{}, fmt.Errorf("image %s: %w", uri, err)
		}
		return domain.ValidatedImage{}, &domain.AcquisitionError{URI: uri, Err: err}
	}
	span.SetAttributes(attribute.String("asset.format", string(img.Format)), attribute.Int("asset.size", len(img.Data)))
	return img, nil
}

func (a *Acquirer) fetch(ctx context.Context, uri string) ([]byte, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(cacheKeyImage + uri); ok {
			if data, ok := cached.([]byte); ok {
				return data, nil
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "uri", uri, "type", fmt.Sprintf("%T", cached))
		}
	}

	data, err := a.fetchUncached(ctx, uri)
	if err != nil {
		return nil, &domain.AcquisitionError{URI: uri, Status: statusOf(err), Err: err}
	}

	if a.cache != nil {
		a.cache.Set(cacheKeyImage+uri, data, a.cacheTTL)
	}
	return data, nil
}

func (a *Acquirer) fetchUncached(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		if a.reader == nil {
			return nil, fmt.Errorf("no object storage reader configured for %s", uri)
		}
		rc, err := a.reader.Open(ctx, uri)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if !a.allowPrivate {
		if err := checkURL(ctx, net.DefaultResolver, uri); err != nil {
			return nil, fmt.Errorf("unsafe url: %w", err)
		}
	}
	return a.httpClient.FetchBytes(ctx, uri)
}

func normalize(data []byte) (domain.ValidatedImage, error) {
	format, w, h, err := imgutil.DetectFormat(data)
	if err != nil {
		return domain.ValidatedImage{}, err
	}
	if format != string(domain.ImageFormatJPEG) && format != string(domain.ImageFormatPNG) {
		return domain.ValidatedImage{}, fmt.Errorf("%w: must be JPEG or PNG, got %s", domain.ErrUnsupportedFormat, format)
	}

	size := domain.NormalizedImageSize
	if w == size && h == size {
		return domain.ValidatedImage{Data: data, Format: domain.ImageFormat(format)}, nil
	}

	img, err := imgutil.Decode(data)
	if err != nil {
		return domain.ValidatedImage{}, err
	}
	out, err := imgutil.Encode(imgutil.Letterbox(img, size), domain.OutputPNG)
	if err != nil {
		return domain.ValidatedImage{}, err
	}
	return domain.ValidatedImage{Data: out, Format: domain.ImageFormatPNG}, nil
}

// statusOf は取得エラーに含まれる HTTP ステータスを返します。不明なら 0 です。
func statusOf(err error) int {
	var httpErr *httpkit.NonRetryableHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
