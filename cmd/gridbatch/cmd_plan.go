package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/grid-batch-kit/pkg/grid"
	"github.com/shouni/grid-batch-kit/pkg/prompt"
)

var (
	planCount    int
	planGridSize int
	planMargin   int
)

var planCmd = &cobra.Command{
	Use:     "plan",
	Short:   "グリッドのレイアウトとタイル位置を表示します",
	Example: `  gridbatch plan --count 9 --grid-size 2048 --margin 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gridSize, margin := planGridSize, planMargin
		if !cmd.Flags().Changed("grid-size") {
			gridSize = cfg.Grid.Size
		}
		if !cmd.Flags().Changed("margin") {
			margin = cfg.Grid.Margin
		}

		plan, err := grid.BuildPlan(planCount, gridSize, margin)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "grid %dx%d, %dx%d cells of %dpx, margin %dpx\n",
			plan.GridSize, plan.GridSize, plan.Cells, plan.Cells, plan.CellSize, plan.Margin)
		fmt.Fprintf(out, "padding left=%d top=%d right=%d bottom=%d\n",
			plan.PaddingLeft, plan.PaddingTop, plan.PaddingRight, plan.PaddingBottom)
		for i := 0; i < plan.TileCount(); i++ {
			pos := plan.TilePosition(i)
			fmt.Fprintf(out, "%d. (%s) left=%d top=%d\n", i+1, prompt.DescribePosition(i, plan.Cells), pos.Left, pos.Top)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().IntVarP(&planCount, "count", "n", 4, "アイテム数（4 または 9）")
	planCmd.Flags().IntVar(&planGridSize, "grid-size", grid.DefaultGridSize, "グリッドの一辺のピクセル数")
	planCmd.Flags().IntVar(&planMargin, "margin", grid.DefaultMargin, "タイル間の余白")
}
