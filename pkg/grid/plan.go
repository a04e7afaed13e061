package grid

import (
	"fmt"
	"image"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

const (
	// DefaultGridSize は合成画像の一辺のデフォルト値です。
	DefaultGridSize = 2048
	// DefaultMargin はセル間の隙間のデフォルト値です。
	DefaultMargin = 5
)

// Plan は合成グリッドのレイアウトです。値型として扱い、生成後は変更しません。
//
// CellSize*Cells + Margin*(Cells-1) + PaddingLeft + PaddingRight == GridSize が常に成り立ちます
// （縦方向も同様）。
type Plan struct {
	GridSize      int
	Cells         int
	Margin        int
	CellSize      int
	PaddingLeft   int
	PaddingTop    int
	PaddingRight  int
	PaddingBottom int
}

// Position はタイル左上のピクセル座標です。
type Position struct {
	Left int
	Top  int
}

// BuildPlan はアイテム数（4 または 9）、キャンバスサイズ、マージンからレイアウトを計算します。
// 割り切れない余りはパディングとして左右・上下に分配し、奇数の場合は右と下が 1px 多くなります。
func BuildPlan(itemCount, gridSize, margin int) (Plan, error) {
	cells, ok := cellsFor(itemCount)
	if !ok {
		return Plan{}, fmt.Errorf("%w: grid must be 2x2 or 3x3, got %d items", domain.ErrInvalidLayout, itemCount)
	}
	if gridSize <= 0 {
		return Plan{}, fmt.Errorf("%w: gridSize must be a positive integer", domain.ErrInvalidConfig)
	}
	if margin < 0 {
		return Plan{}, fmt.Errorf("%w: margin must be a non-negative integer", domain.ErrInvalidConfig)
	}

	innerMargin := margin * (cells - 1)
	// 負数の除算は 0 方向に丸められるため、先に符号を確認する
	if gridSize-innerMargin <= 0 {
		return Plan{}, fmt.Errorf("%w: computed cell size is invalid", domain.ErrInvalidConfig)
	}
	cellSize := (gridSize - innerMargin) / cells
	if cellSize <= 0 {
		return Plan{}, fmt.Errorf("%w: computed cell size is invalid", domain.ErrInvalidConfig)
	}

	extra := gridSize - (cellSize*cells + innerMargin)
	paddingLeft := extra / 2
	paddingTop := extra / 2

	return Plan{
		GridSize:      gridSize,
		Cells:         cells,
		Margin:        margin,
		CellSize:      cellSize,
		PaddingLeft:   paddingLeft,
		PaddingTop:    paddingTop,
		PaddingRight:  extra - paddingLeft,
		PaddingBottom: extra - paddingTop,
	}, nil
}

func cellsFor(itemCount int) (int, bool) {
	switch itemCount {
	case 4:
		return 2, true
	case 9:
		return 3, true
	}
	return 0, false
}

// TileCount はグリッドに含まれるタイル数です。
func (p Plan) TileCount() int {
	return p.Cells * p.Cells
}

// TilePosition は行優先（左上が 0、左から右、上から下）のインデックスに対応する左上座標を返します。
func (p Plan) TilePosition(index int) Position {
	row := index / p.Cells
	col := index % p.Cells
	step := p.CellSize + p.Margin
	return Position{
		Left: p.PaddingLeft + col*step,
		Top:  p.PaddingTop + row*step,
	}
}

// Rect はタイルが占める矩形です。
func (p Plan) Rect(index int) image.Rectangle {
	pos := p.TilePosition(index)
	return image.Rect(pos.Left, pos.Top, pos.Left+p.CellSize, pos.Top+p.CellSize)
}

// Variables はプロンプトテンプレートに埋め込む数値を返します。
func (p Plan) Variables() map[string]any {
	return map[string]any{
		"cells":    p.Cells,
		"margin":   p.Margin,
		"gridSize": p.GridSize,
		"cellSize": p.CellSize,
	}
}
