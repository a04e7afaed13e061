package grid

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/imgutil"
)

// Compose は画像をセルサイズに引き伸ばし、白背景のキャンバスに行優先で配置してエンコードします。
// リサイズは並行に行い、配置は 1 回だけ同期的に行います。
func Compose(ctx context.Context, images []domain.ValidatedImage, plan Plan, format domain.OutputFormat) ([]byte, error) {
	if len(images) != plan.TileCount() {
		return nil, fmt.Errorf("%w: expected %d images, got %d", domain.ErrInvalidLayout, plan.TileCount(), len(images))
	}

	cells := make([]*image.NRGBA, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decoded, err := imgutil.Decode(img.Data)
			if err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			cells[i] = imgutil.StretchTo(decoded, plan.CellSize, plan.CellSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	canvas := imaging.New(plan.GridSize, plan.GridSize, color.White)
	for i, cell := range cells {
		// 透過部分は白背景に合成する
		draw.Draw(canvas, plan.Rect(i), cell, cell.Bounds().Min, draw.Over)
	}

	slog.DebugContext(ctx, "グリッド画像を合成しました", "grid_size", plan.GridSize, "cells", plan.Cells, "format", format)
	return imgutil.Encode(canvas, format)
}

// AssertCanvasSize はキャンバスの寸法が GridSize x GridSize であることを確認します。
func AssertCanvasSize(canvas []byte, plan Plan) error {
	_, w, h, err := imgutil.DetectFormat(canvas)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteModel, err)
	}
	if w != plan.GridSize || h != plan.GridSize {
		return &domain.DimensionError{Width: w, Height: h, Expected: plan.GridSize}
	}
	return nil
}

// Decompose は Compose の逆操作です。各タイル位置から CellSize 四方を切り出して再エンコードします。
// 寸法が一致しないキャンバスは切り出し前に ErrDimensionMismatch で拒否します。
func Decompose(ctx context.Context, canvas []byte, plan Plan, format domain.OutputFormat) ([][]byte, error) {
	if err := AssertCanvasSize(canvas, plan); err != nil {
		return nil, err
	}
	src, err := imgutil.Decode(canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteModel, err)
	}

	tiles := make([][]byte, plan.TileCount())
	g, gctx := errgroup.WithContext(ctx)
	for i := range tiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tile := imaging.Crop(src, plan.Rect(i))
			data, err := imgutil.Encode(tile, format)
			if err != nil {
				return fmt.Errorf("tile %d: %w", i, err)
			}
			tiles[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiles, nil
}
