package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shouni/grid-batch-kit/pkg/batch"
	"github.com/shouni/grid-batch-kit/pkg/domain"
)

var (
	runItemsPath    string
	runOutDir       string
	runTemplatePath string
	runFormat       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "バッチを実行し、編集済みタイルを保存します",
	Example: `  gridbatch run --items items.yaml --out ./out
  GRIDBATCH_BACKEND=gemini gridbatch run -i items.yaml -o ./out --format jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		items, err := loadItems(runItemsPath)
		if err != nil {
			return err
		}
		format := domain.OutputFormat(cfg.Grid.OutputFormat)
		if runFormat != "" {
			format = domain.OutputFormat(runFormat)
		}
		// 外部サービスに接続する前に入力を検証する
		if err := batch.ValidateItems(items); err != nil {
			return err
		}
		if format, err = batch.ValidateOutputFormat(format); err != nil {
			return err
		}

		runner, uploader, err := buildRunner(ctx, cfg, runTemplatePath)
		if err != nil {
			return err
		}

		margin := cfg.Grid.Margin
		results, err := runner.Run(ctx, items, batch.Options{
			Uploader:          uploader,
			OutputFormat:      format,
			Resolution:        domain.Resolution(cfg.Model.Resolution),
			SafetyFilterLevel: domain.SafetyFilterLevel(cfg.Model.SafetyFilterLevel),
			AspectRatio:       domain.AspectRatio(cfg.Model.AspectRatio),
			GridSize:          cfg.Grid.Size,
			Margin:            &margin,
			ModelID:           cfg.Model.ID,
		})
		if err != nil {
			return err
		}

		if err := os.MkdirAll(runOutDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for _, res := range results {
			path := filepath.Join(runOutDir, tileFileName(res))
			if err := os.WriteFile(path, res.OutputImage, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			slog.InfoContext(ctx, "タイルを保存しました", "index", res.Index, "path", path, "prompt", res.Prompt)
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

// tileFileName は 1 始まりの番号でタイルのファイル名を返します。
func tileFileName(res domain.BatchResult) string {
	return fmt.Sprintf("tile-%d.%s", res.Index+1, res.OutputFormat)
}

func init() {
	runCmd.Flags().StringVarP(&runItemsPath, "items", "i", "items.yaml", "アイテム一覧のファイル")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "out", "タイルの出力先ディレクトリ")
	runCmd.Flags().StringVar(&runTemplatePath, "system-prompt", "", "組み込みテンプレートの代わりに使うテンプレートファイル")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "出力形式（png または jpg）。未指定なら設定ファイルの値")
}
