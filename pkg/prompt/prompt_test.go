package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/grid"
)

var items = []domain.BatchItem{
	{Prompt: "first", ImageURL: "https://example.com/1"},
	{Prompt: "second", ImageURL: "https://example.com/2"},
	{Prompt: "third", ImageURL: "https://example.com/3"},
	{Prompt: "fourth", ImageURL: "https://example.com/4"},
}

func TestRenderTemplate(t *testing.T) {
	t.Run("既知のプレースホルダーだけ置き換える", func(t *testing.T) {
		got := RenderTemplate("Grid {{cells}} size {{gridSize}} {{missing}}", map[string]any{"cells": 2, "gridSize": 2048})
		assert.Equal(t, "Grid 2 size 2048 {{missing}}", got)
	})

	t.Run("波括弧内の空白を許容し、同じ名前は全て置き換える", func(t *testing.T) {
		got := RenderTemplate("{{ cells }}x{{cells}} / {{cellSize}}", map[string]any{"cells": 3, "cellSize": "679"})
		assert.Equal(t, "3x3 / 679", got)
	})

	t.Run("プレースホルダーでない括弧は触らない", func(t *testing.T) {
		tpl := "{cells} {{bad-name}} {{}}"
		assert.Equal(t, tpl, RenderTemplate(tpl, map[string]any{"cells": 2}))
	})
}

func TestDescribePosition(t *testing.T) {
	assert.Equal(t, "row 1, col 1, top-left", DescribePosition(0, 2))
	assert.Equal(t, "row 1, col 2, top-right", DescribePosition(1, 2))
	assert.Equal(t, "row 2, col 2, bottom-right", DescribePosition(3, 2))
	assert.Equal(t, "row 2, col 2, middle-center", DescribePosition(4, 3))
	assert.Equal(t, "row 3, col 1, bottom-left", DescribePosition(6, 3))
	assert.Equal(t, "row 1, col 3, top-right", DescribePosition(2, 3))

	t.Run("語彙外は数値ラベルに退避する", func(t *testing.T) {
		assert.Equal(t, "row 4, col 4, row4-col4", DescribePosition(15, 4))
	})
}

func TestAssembler_BuildCombinedPrompt(t *testing.T) {
	plan, err := grid.BuildPlan(len(items), 2048, 5)
	require.NoError(t, err)

	t.Run("上書きテンプレートと位置ラベルを組み込む", func(t *testing.T) {
		a, err := NewAssembler(DefaultTemplate())
		require.NoError(t, err)

		got := a.BuildCombinedPrompt(items, plan, "  Grid {{cells}}x{{cells}} size {{gridSize}}\n\n")
		want := "Grid 2x2 size 2048\n\n" +
			"Tile prompts (row-major, left-to-right, top-to-bottom):\n" +
			"1. (row 1, col 1, top-left): first\n" +
			"2. (row 1, col 2, top-right): second\n" +
			"3. (row 2, col 1, bottom-left): third\n" +
			"4. (row 2, col 2, bottom-right): fourth"
		assert.Equal(t, want, got)
	})

	t.Run("上書きがなければ注入済みテンプレートを使う", func(t *testing.T) {
		a, err := NewAssembler("cell={{cellSize}} margin={{margin}}")
		require.NoError(t, err)

		got := a.BuildCombinedPrompt(items, plan, "")
		assert.True(t, strings.HasPrefix(got, "cell=1021 margin=5\n\n"+TilePromptsHeader+"\n"), got)
	})

	t.Run("同梱テンプレートは全ての変数を埋める", func(t *testing.T) {
		a, err := NewAssembler(DefaultTemplate())
		require.NoError(t, err)

		got := a.BuildCombinedPrompt(items, plan, "")
		assert.NotContains(t, got, "{{")
		assert.Contains(t, got, "2x2")
		assert.Contains(t, got, "1021x1021")
		assert.Contains(t, got, "4. (row 2, col 2, bottom-right): fourth")
	})

	t.Run("空テンプレートは拒否する", func(t *testing.T) {
		_, err := NewAssembler("  \n")
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}
