package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

var tracer = otel.Tracer("grid-batch-kit/model")

const (
	// DefaultReplicateBaseURL は Replicate API のベース URL です。
	DefaultReplicateBaseURL = "https://api.replicate.com/v1"
	// DefaultPollInterval は予測ステータスの確認間隔です。
	DefaultPollInterval = time.Second
	// DefaultPollTimeout は予測完了を待つ上限です。
	DefaultPollTimeout = 10 * time.Minute
)

// 予測のステータス
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Prediction は Replicate の予測リソースです。
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  *string         `json:"error,omitempty"`
}

// ReplicateConfig は ReplicateClient の設定です。ゼロ値の項目はデフォルトを使います。
type ReplicateConfig struct {
	Token        string
	BaseURL      string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// ReplicateClient は予測を作成し、終端ステータスになるまでポーリングします。
type ReplicateClient struct {
	client       Doer
	token        string
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewReplicateClient は依存関係を注入して ReplicateClient を初期化します。
func NewReplicateClient(client Doer, cfg ReplicateConfig) (*ReplicateClient, error) {
	if client == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: missing Replicate API token", domain.ErrInvalidConfig)
	}
	c := &ReplicateClient{
		client:       client,
		token:        cfg.Token,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultReplicateBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = DefaultPollTimeout
	}
	return c, nil
}

// ModelRef は "owner/name" または "owner/name:version" を分解したものです。
type ModelRef struct {
	Owner   string
	Name    string
	Version string
}

// ParseModelID はモデル ID を分解します。
func ParseModelID(modelID string) (ModelRef, error) {
	ownerName, version, _ := strings.Cut(modelID, ":")
	owner, name, ok := strings.Cut(ownerName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ModelRef{}, fmt.Errorf("%w: invalid model id: %s", domain.ErrInvalidConfig, modelID)
	}
	return ModelRef{Owner: owner, Name: name, Version: version}, nil
}

// Run は予測を作成して完了を待ち、出力を Output に変換します。
func (c *ReplicateClient) Run(ctx context.Context, req Request) (Output, error) {
	modelID := req.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}
	ref, err := ParseModelID(modelID)
	if err != nil {
		return Output{}, err
	}

	ctx, span := tracer.Start(ctx, "replicate_run")
	defer span.End()
	span.SetAttributes(attribute.String("replicate.model", modelID))

	created, err := c.createPrediction(ctx, ref, req.Input())
	if err != nil {
		span.RecordError(err)
		return Output{}, err
	}
	span.SetAttributes(attribute.String("replicate.prediction_id", created.ID))
	slog.InfoContext(ctx, "予測を作成しました", "model", modelID, "prediction_id", created.ID, "status", created.Status)

	completed, err := c.waitForPrediction(ctx, created)
	if err != nil {
		span.RecordError(err)
		return Output{}, err
	}
	return decodeOutput(completed.Output)
}

func (c *ReplicateClient) createPrediction(ctx context.Context, ref ModelRef, input map[string]any) (*Prediction, error) {
	path := fmt.Sprintf("/models/%s/%s/predictions", ref.Owner, ref.Name)
	body := map[string]any{"input": input}
	if ref.Version != "" {
		path = "/predictions"
		body["version"] = ref.Version
	}
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *ReplicateClient) waitForPrediction(ctx context.Context, created *Prediction) (*Prediction, error) {
	startedAt := time.Now()
	prediction := created
	for {
		switch prediction.Status {
		case StatusSucceeded:
			return prediction, nil
		case StatusFailed, StatusCanceled:
			msg := ""
			if prediction.Error != nil {
				msg = *prediction.Error
			}
			return nil, &domain.RemoteModelError{Status: prediction.Status, Message: msg}
		}

		if time.Since(startedAt) > c.pollTimeout {
			return nil, fmt.Errorf("%w: prediction %s still %s after %s", domain.ErrPollTimeout, created.ID, prediction.Status, c.pollTimeout)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		next, err := c.request(ctx, http.MethodGet, "/predictions/"+created.ID, nil)
		if err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "予測ステータスを確認しました", "prediction_id", created.ID, "status", next.Status)
		prediction = next
	}
}

func (c *ReplicateClient) request(ctx context.Context, method, path string, body any) (*Prediction, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.client.DoRequest(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: Replicate API error: %w", domain.ErrRemoteModel, err)
	}

	var prediction Prediction
	if err := json.Unmarshal(respBody, &prediction); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", domain.ErrRemoteModel, err)
	}
	if prediction.ID == "" {
		return nil, fmt.Errorf("%w: prediction response has no id", domain.ErrRemoteModel)
	}
	return &prediction, nil
}

// decodeOutput は予測の output を Output に変換します。文字列 URL か、その配列の先頭を受け付けます。
func decodeOutput(raw json.RawMessage) (Output, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return URLString(single), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return URLString(list[0]), nil
	}
	return Output{}, fmt.Errorf("%w: unsupported output type from Replicate: %s", domain.ErrRemoteModel, truncate(string(raw), 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
