package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/grid"
	"github.com/shouni/grid-batch-kit/pkg/model"
	"github.com/shouni/grid-batch-kit/pkg/prompt"
	"github.com/shouni/grid-batch-kit/pkg/upload"
)

var tracer = otel.Tracer("grid-batch-kit/batch")

// ImageAcquirer は URI から正規化済みの参照画像を取得します。asset.Acquirer が満たします。
type ImageAcquirer interface {
	Acquire(ctx context.Context, uri string) (domain.ValidatedImage, error)
}

// Options はバッチ 1 回分の設定です。Uploader 以外はゼロ値ならデフォルトを使います。
type Options struct {
	Uploader          upload.Uploader
	OutputFormat      domain.OutputFormat
	Resolution        domain.Resolution
	SafetyFilterLevel domain.SafetyFilterLevel
	AspectRatio       domain.AspectRatio
	GridSize          int
	Margin            *int
	SystemPrompt      string
	ModelID           string
}

func (o Options) withDefaults() Options {
	if o.GridSize == 0 {
		o.GridSize = grid.DefaultGridSize
	}
	if o.ModelID == "" {
		o.ModelID = model.DefaultModelID
	}
	return o
}

func (o Options) margin() int {
	if o.Margin == nil {
		return grid.DefaultMargin
	}
	return *o.Margin
}

// Runner は検証、取得、合成、アップロード、プロンプト生成、モデル実行、分割を順に実行します。
type Runner struct {
	acquirer  ImageAcquirer
	assembler *prompt.Assembler
	model     model.Model
	fetcher   model.Fetcher
}

// NewRunner は依存関係を注入して Runner を初期化します。
// fetcher はモデルが URL を返す場合の出力取得に使います。
func NewRunner(acquirer ImageAcquirer, assembler *prompt.Assembler, m model.Model, fetcher model.Fetcher) (*Runner, error) {
	if acquirer == nil {
		return nil, fmt.Errorf("acquirer is required")
	}
	if assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if m == nil {
		return nil, fmt.Errorf("model is required")
	}
	return &Runner{acquirer: acquirer, assembler: assembler, model: m, fetcher: fetcher}, nil
}

// Run はバッチを実行し、入力順に並んだ結果を返します。いずれかの段階で失敗した場合は部分的な結果を返しません。
func (r *Runner) Run(ctx context.Context, items []domain.BatchItem, opts Options) ([]domain.BatchResult, error) {
	opts = opts.withDefaults()
	plan, err := validate(items, &opts)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "batch_run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.items", len(items)),
		attribute.Int("batch.grid_size", plan.GridSize),
		attribute.String("batch.output_format", string(opts.OutputFormat)),
	)

	start := time.Now()
	results, err := r.run(ctx, items, plan, opts)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "バッチ処理に失敗しました", "items", len(items), "error", err)
		return nil, err
	}
	slog.InfoContext(ctx, "バッチ処理が完了しました", "items", len(items), "duration", time.Since(start))
	return results, nil
}

func (r *Runner) run(ctx context.Context, items []domain.BatchItem, plan grid.Plan, opts Options) ([]domain.BatchResult, error) {
	images, err := r.acquireAll(ctx, items)
	if err != nil {
		return nil, err
	}

	canvas, err := grid.Compose(ctx, images, plan, opts.OutputFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to compose grid: %w", err)
	}
	slog.InfoContext(ctx, "グリッド画像を作成しました", "grid_size", plan.GridSize, "cell_size", plan.CellSize, "bytes", len(canvas))

	gridURL, err := r.upload(ctx, opts.Uploader, canvas)
	if err != nil {
		return nil, err
	}

	req := model.Request{
		ModelID:           opts.ModelID,
		ImageURL:          gridURL,
		Prompt:            r.assembler.BuildCombinedPrompt(items, plan, opts.SystemPrompt),
		OutputFormat:      opts.OutputFormat,
		AspectRatio:       opts.AspectRatio,
		Resolution:        opts.Resolution,
		SafetyFilterLevel: opts.SafetyFilterLevel,
	}
	out, err := r.model.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("remote model %s: %w", opts.ModelID, wrapRemote(err))
	}
	edited, err := model.Resolve(ctx, out, r.fetcher)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "モデルの出力を受信しました", "model", opts.ModelID, "output_kind", out.Kind, "bytes", len(edited))

	tiles, err := grid.Decompose(ctx, edited, plan, opts.OutputFormat)
	if err != nil {
		return nil, err
	}

	results := make([]domain.BatchResult, len(tiles))
	for i, tile := range tiles {
		results[i] = domain.BatchResult{
			Index:         i,
			Prompt:        items[i].Prompt,
			InputImageURL: items[i].ImageURL,
			OutputImage:   tile,
			OutputFormat:  opts.OutputFormat,
		}
	}
	return results, nil
}

// acquireAll は全アイテムの画像を並行に取得します。1 件でも失敗すれば残りを中断します。
func (r *Runner) acquireAll(ctx context.Context, items []domain.BatchItem) ([]domain.ValidatedImage, error) {
	ctx, span := tracer.Start(ctx, "batch_acquire")
	defer span.End()

	images := make([]domain.ValidatedImage, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			img, err := r.acquirer.Acquire(gctx, item.ImageURL)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return images, nil
}

func (r *Runner) upload(ctx context.Context, uploader upload.Uploader, canvas []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "batch_upload")
	defer span.End()

	url, err := uploader.Upload(ctx, canvas)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}
	if url == "" {
		return "", fmt.Errorf("%w: uploader returned an empty url", domain.ErrUpload)
	}
	slog.InfoContext(ctx, "グリッド画像をアップロードしました", "url", url)
	return url, nil
}

// wrapRemote はモデル実装が分類していないエラーを ErrRemoteModel として扱います。
func wrapRemote(err error) error {
	for _, known := range []error{domain.ErrRemoteModel, domain.ErrPollTimeout, domain.ErrInvalidConfig, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrRemoteModel, err)
}
