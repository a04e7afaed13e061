package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Doer は組み立て済みリクエストを送信して本文を返します。httpkit.ClientInterface が満たします。
type Doer interface {
	DoRequest(req *http.Request) ([]byte, error)
}

// HTTPConfig は任意の HTTP アップロードエンドポイントの設定です。
type HTTPConfig struct {
	Endpoint    string
	APIKey      string
	BearerToken string
	Headers     map[string]string
}

// HTTPUploader は画像をそのまま POST し、{"id": ..., "url": ...} 形式の応答から URL を取り出します。
type HTTPUploader struct {
	client Doer
	cfg    HTTPConfig
}

type httpUploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewHTTPUploader は HTTPUploader を作ります。
func NewHTTPUploader(client Doer, cfg HTTPConfig) (*HTTPUploader, error) {
	if client == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upload endpoint is required")
	}
	return &HTTPUploader{client: client, cfg: cfg}, nil
}

// Upload は画像を送信し、応答の URL を返します。
func (u *HTTPUploader) Upload(ctx context.Context, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "http_upload")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(data))
	for k, v := range u.cfg.Headers {
		req.Header.Set(k, v)
	}
	if u.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", u.cfg.APIKey)
	}
	if u.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+u.cfg.BearerToken)
	}

	body, err := u.client.DoRequest(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("upload request failed: %w", err)
	}

	var resp httpUploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if resp.ID == "" || resp.URL == "" {
		return "", fmt.Errorf("upload response missing id or url")
	}
	return resp.URL, nil
}
