package batch

import (
	"fmt"
	"strings"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/grid"
)

// ValidateItems はアイテム数が 4 か 9 であり、各アイテムのプロンプトと画像 URI が空でないことを確認します。
func ValidateItems(items []domain.BatchItem) error {
	if n := len(items); n != 4 && n != 9 {
		return fmt.Errorf("%w: expected 4 or 9 items, got %d", domain.ErrInvalidLayout, n)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Prompt) == "" {
			return &domain.ItemError{Index: i, Field: "prompt"}
		}
		if item.ImageURL == "" {
			return &domain.ItemError{Index: i, Field: "imageUrl"}
		}
	}
	return nil
}

// ValidateOutputFormat は出力形式を検証します。空の場合は png を返します。
func ValidateOutputFormat(format domain.OutputFormat) (domain.OutputFormat, error) {
	if format == "" {
		return domain.DefaultOutputFormat, nil
	}
	return domain.ParseOutputFormat(string(format))
}

// validate は I/O の前に行う検証をまとめて実行し、レイアウトを返します。
func validate(items []domain.BatchItem, opts *Options) (grid.Plan, error) {
	if err := ValidateItems(items); err != nil {
		return grid.Plan{}, err
	}
	format, err := ValidateOutputFormat(opts.OutputFormat)
	if err != nil {
		return grid.Plan{}, err
	}
	opts.OutputFormat = format
	if opts.Uploader == nil {
		return grid.Plan{}, fmt.Errorf("%w: uploader is required", domain.ErrInvalidConfig)
	}
	return grid.BuildPlan(len(items), opts.GridSize, opts.margin())
}
