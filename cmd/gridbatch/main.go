package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/grid-batch-kit/pkg/config"
)

var (
	// グローバルフラグ
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gridbatch",
	Short: "4 枚または 9 枚の画像を 1 枚のグリッドにまとめてリモートモデルで一括編集します",
	Long: `gridbatch は参照画像を 2x2 / 3x3 のグリッドに合成してアップロードし、
タイルごとの指示をまとめたプロンプトと一緒にリモートの画像編集モデルへ送ります。
返ってきたグリッドはタイルに分割され、元のプロンプトと対応付けて保存されます。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		logger, err := newLogger(cmd.ErrOrStderr(), loaded.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gridbatch.yaml", "設定ファイルのパス")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力する")
	rootCmd.AddCommand(runCmd, planCmd, promptCmd)
}

// newLogger は設定に合わせた slog ロガーを作ります。
func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(lc.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", lc.Format)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("実行に失敗しました", "error", err)
		os.Exit(1)
	}
}
