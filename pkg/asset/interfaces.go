package asset

import (
	"context"
	"time"
)

// HTTPClient は URL からバイト列を取得するためのインターフェースです。httpkit.ClientInterface が満たします。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ImageCacher は取得済み画像データのキャッシュです。
type ImageCacher interface {
	// Get は、指定されたキーに紐づくアイテムを取得します。
	Get(key string) (any, bool)
	// Set は、指定されたキーと値、有効期限でアイテムを保存します。
	Set(key string, value any, d time.Duration)
}
