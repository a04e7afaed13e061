package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/grid-batch-kit/pkg/asset"
	"github.com/shouni/grid-batch-kit/pkg/batch"
	"github.com/shouni/grid-batch-kit/pkg/config"
	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/model"
	"github.com/shouni/grid-batch-kit/pkg/prompt"
	"github.com/shouni/grid-batch-kit/pkg/upload"
)

// httpClient は取得とアップロードと Replicate 呼び出しが共有するクライアントです。
type httpClient interface {
	asset.HTTPClient
	model.Doer
}

// buildRunner は設定から Runner と Uploader を組み立てます。
func buildRunner(ctx context.Context, c *config.Config, templatePath string) (*batch.Runner, upload.Uploader, error) {
	client := httpkit.New(c.FetchTimeout())

	acquirer, err := buildAcquirer(client, c)
	if err != nil {
		return nil, nil, err
	}

	if templatePath == "" {
		templatePath = c.Grid.SystemPromptFile
	}
	template, err := loadTemplate(templatePath)
	if err != nil {
		return nil, nil, err
	}
	assembler, err := prompt.NewAssembler(template)
	if err != nil {
		return nil, nil, err
	}

	m, err := buildModel(ctx, client, c)
	if err != nil {
		return nil, nil, err
	}
	uploader, err := buildUploader(ctx, client, c)
	if err != nil {
		return nil, nil, err
	}

	runner, err := batch.NewRunner(acquirer, assembler, m, client)
	if err != nil {
		return nil, nil, err
	}
	return runner, uploader, nil
}

func buildAcquirer(client asset.HTTPClient, c *config.Config) (*asset.Acquirer, error) {
	var opts []asset.Option
	if ttl := c.CacheTTL(); ttl > 0 {
		opts = append(opts, asset.WithCache(cache.New(ttl, 2*ttl), ttl))
	}
	if c.Fetch.AllowPrivateNetworks {
		slog.Warn("プライベートネットワークへのアクセスを許可しています")
		opts = append(opts, asset.WithPrivateNetworks())
	}
	return asset.NewAcquirer(client, opts...)
}

func buildModel(ctx context.Context, client httpClient, c *config.Config) (model.Model, error) {
	switch c.Model.Backend {
	case config.BackendGemini:
		aiClient, err := buildGeminiClient(ctx, c.Model)
		if err != nil {
			return nil, err
		}
		return model.NewGeminiModel(aiClient, client, c.Model.GeminiModel)
	case config.BackendReplicate:
		return model.NewReplicateClient(client, model.ReplicateConfig{
			Token:        c.Model.Token,
			BaseURL:      c.Model.BaseURL,
			PollInterval: c.PollInterval(),
			PollTimeout:  c.PollTimeout(),
		})
	}
	return nil, fmt.Errorf("unknown model backend %q", c.Model.Backend)
}

// buildGeminiClient は通常 go-gemini-client のクライアント（リトライ付き）を返します。
// GenerateOptions は出力解像度を持たないため、解像度の指定があるときだけ genai へのブリッジを使います。
func buildGeminiClient(ctx context.Context, mc config.ModelConfig) (model.PartsGenerator, error) {
	if mc.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrInvalidConfig)
	}
	if mc.Resolution != "" {
		slog.WarnContext(ctx, "解像度指定のため genai を直接使います。リトライは行いません", "resolution", mc.Resolution)
		return model.NewGenAIClient(ctx, mc.GeminiAPIKey, mc.Resolution)
	}
	client, err := gemini.NewClient(ctx, gemini.Config{APIKey: mc.GeminiAPIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func buildUploader(ctx context.Context, client model.Doer, c *config.Config) (upload.Uploader, error) {
	switch c.Upload.Kind {
	case config.UploadS3:
		s := c.Upload.S3
		return upload.NewS3Uploader(ctx, upload.S3Config{
			Endpoint:      s.Endpoint,
			Region:        s.Region,
			AccessKey:     s.AccessKey,
			SecretKey:     s.SecretKey,
			Bucket:        s.Bucket,
			Prefix:        s.Prefix,
			PublicBaseURL: s.PublicBaseURL,
			PresignExpiry: c.S3PresignExpiry(),
			UsePathStyle:  s.UsePathStyle,
		})
	case config.UploadMinio:
		m := c.Upload.Minio
		return upload.NewMinioUploader(upload.MinioConfig{
			Endpoint:      m.Endpoint,
			AccessKey:     m.AccessKey,
			SecretKey:     m.SecretKey,
			UseSSL:        m.UseSSL,
			Bucket:        m.Bucket,
			Prefix:        m.Prefix,
			PresignExpiry: c.MinioPresignExpiry(),
		})
	case config.UploadHTTP:
		h := c.Upload.HTTP
		return upload.NewHTTPUploader(client, upload.HTTPConfig{
			Endpoint:    h.Endpoint,
			APIKey:      h.APIKey,
			BearerToken: h.BearerToken,
			Headers:     h.Headers,
		})
	}
	return nil, fmt.Errorf("unknown upload kind %q", c.Upload.Kind)
}
