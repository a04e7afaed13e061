package upload

import (
	"context"
	"net/http"
	"path"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("grid-batch-kit/upload")

// Uploader は合成画像を公開し、リモートモデルから取得できる URL を返します。
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// UploaderFunc は関数を Uploader として扱うためのアダプターです。
type UploaderFunc func(ctx context.Context, data []byte) (string, error)

// Upload は f(ctx, data) を呼び出します。
func (f UploaderFunc) Upload(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// objectKey は prefix 配下に重複しないオブジェクトキーを作ります。拡張子は内容から判定します。
func objectKey(prefix string, data []byte) (key, contentType string) {
	contentType = http.DetectContentType(data)
	ext := ".bin"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	}
	return path.Join(prefix, "grid-"+uuid.NewString()+ext), contentType
}
