package model

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

// DefaultGeminiModel は Gemini バックエンドで使う画像モデルです。
const DefaultGeminiModel = "gemini-3-pro-image-preview"

// PartsGenerator は parts 指定で生成を行うクライアントです。gemini.GenerativeModel が満たします。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

// GeminiModel は Gemini の画像モデルで合成グリッドを編集する Model 実装です。
// 応答は同期的に返るため、ポーリングは行いません。
type GeminiModel struct {
	aiClient PartsGenerator
	fetcher  Fetcher
	model    string
}

// NewGeminiModel は依存関係を注入して GeminiModel を初期化します。
func NewGeminiModel(aiClient PartsGenerator, fetcher Fetcher, model string) (*GeminiModel, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiModel{aiClient: aiClient, fetcher: fetcher, model: model}, nil
}

// Run はアップロード済みグリッドを取得してインラインで送信し、生成画像をバイト列で返します。
// Request.ModelID が "owner/name" 形式の場合は Replicate 用とみなして無視します。
func (g *GeminiModel) Run(ctx context.Context, req Request) (Output, error) {
	model := g.model
	if req.ModelID != "" && !strings.Contains(req.ModelID, "/") {
		model = req.ModelID
	}

	ctx, span := tracer.Start(ctx, "gemini_run")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", model))

	data, err := g.fetcher.FetchBytes(ctx, req.ImageURL)
	if err != nil {
		span.RecordError(err)
		return Output{}, fmt.Errorf("%w: failed to fetch grid %s: %w", domain.ErrRemoteModel, req.ImageURL, err)
	}
	imagePart := toPart(data)
	if imagePart == nil {
		return Output{}, fmt.Errorf("%w: grid at %s is not an image", domain.ErrRemoteModel, req.ImageURL)
	}

	parts := []*genai.Part{imagePart, {Text: req.Prompt}}
	opts := gemini.GenerateOptions{AspectRatio: string(geminiAspect(req.AspectRatio))}

	resp, err := g.aiClient.GenerateWithParts(ctx, model, parts, opts)
	if err != nil {
		span.RecordError(err)
		return Output{}, fmt.Errorf("%w: %w", domain.ErrRemoteModel, err)
	}
	out, mimeType, err := parseToResponse(resp)
	if err != nil {
		return Output{}, err
	}
	slog.DebugContext(ctx, "Gemini から画像を受信しました", "model", model, "mime_type", mimeType, "bytes", len(out))
	return RawBytes(out), nil
}

// geminiAspect は入力に合わせる指定を正方形に読み替えます。グリッドは常に正方形です。
func geminiAspect(a domain.AspectRatio) domain.AspectRatio {
	if a == "" || a == domain.AspectRatioMatchInput {
		return "1:1"
	}
	return a
}

func toPart(data []byte) *genai.Part {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

func parseToResponse(resp *gemini.Response) ([]byte, string, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, "", fmt.Errorf("%w: invalid response", domain.ErrRemoteModel)
	}
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content == nil {
		return nil, "", fmt.Errorf("%w: empty candidate (finish reason %s)", domain.ErrRemoteModel, candidate.FinishReason)
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("%w: no image data", domain.ErrRemoteModel)
}

// GenAIClient は genai.Client を PartsGenerator として使うためのブリッジです。
type GenAIClient struct {
	client    *genai.Client
	imageSize string
}

// NewGenAIClient は API キーから Gemini API 向けのクライアントを作成します。
// imageSize には "1K" / "2K" / "4K" を指定でき、空なら既定値を使います。
func NewGenAIClient(ctx context.Context, apiKey string, imageSize string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIClient{client: client, imageSize: imageSize}, nil
}

// GenerateWithParts は parts をユーザー入力として画像を生成します。
func (c *GenAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if opts.AspectRatio != "" || c.imageSize != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio, ImageSize: c.imageSize}
	}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	if opts.Seed != nil {
		seed := int32(*opts.Seed)
		cfg.Seed = &seed
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, err
	}
	return &gemini.Response{RawResponse: resp}, nil
}
