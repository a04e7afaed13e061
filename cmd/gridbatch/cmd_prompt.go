package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/grid-batch-kit/pkg/batch"
	"github.com/shouni/grid-batch-kit/pkg/grid"
	"github.com/shouni/grid-batch-kit/pkg/prompt"
)

var (
	promptItemsPath    string
	promptTemplatePath string
)

var promptCmd = &cobra.Command{
	Use:     "prompt",
	Short:   "リモートモデルに送る結合プロンプトを表示します",
	Example: `  gridbatch prompt --items items.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadItems(promptItemsPath)
		if err != nil {
			return err
		}
		if err := batch.ValidateItems(items); err != nil {
			return err
		}
		plan, err := grid.BuildPlan(len(items), cfg.Grid.Size, cfg.Grid.Margin)
		if err != nil {
			return err
		}

		templatePath := promptTemplatePath
		if templatePath == "" {
			templatePath = cfg.Grid.SystemPromptFile
		}
		template, err := loadTemplate(templatePath)
		if err != nil {
			return err
		}
		assembler, err := prompt.NewAssembler(template)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), assembler.BuildCombinedPrompt(items, plan, ""))
		return nil
	},
}

func init() {
	promptCmd.Flags().StringVarP(&promptItemsPath, "items", "i", "items.yaml", "アイテム一覧のファイル")
	promptCmd.Flags().StringVar(&promptTemplatePath, "system-prompt", "", "組み込みテンプレートの代わりに使うテンプレートファイル")
}
