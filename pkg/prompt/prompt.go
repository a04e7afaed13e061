package prompt

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/grid"
)

// TilePromptsHeader はタイル別プロンプト一覧の見出し行です。リモートモデルはこの書式に合わせて調整されています。
const TilePromptsHeader = "Tile prompts (row-major, left-to-right, top-to-bottom):"

//go:embed prompts/grid-system.txt
var defaultTemplate string

// DefaultTemplate は同梱のシステムプロンプトテンプレートを返します。
// プロセス起動時に一度読み込み、NewAssembler に渡して使います。
func DefaultTemplate() string {
	return defaultTemplate
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate は {{name}} を variables の値で置き換えます。未知の名前はそのまま残します。
func RenderTemplate(template string, variables map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := variables[key]; ok {
			return fmt.Sprint(v)
		}
		return match
	})
}

var (
	rowLabels = map[int][]string{2: {"top", "bottom"}, 3: {"top", "middle", "bottom"}}
	colLabels = map[int][]string{2: {"left", "right"}, 3: {"left", "center", "right"}}
)

// DescribePosition は "row 2, col 1, bottom-left" のような位置ラベルを返します。
// cells は 2 か 3 を前提とし、それ以外では rowN / colN に退避します。
func DescribePosition(index, cells int) string {
	row := index / cells
	col := index % cells
	rowName := fmt.Sprintf("row%d", row+1)
	if labels := rowLabels[cells]; row < len(labels) {
		rowName = labels[row]
	}
	colName := fmt.Sprintf("col%d", col+1)
	if labels := colLabels[cells]; col < len(labels) {
		colName = labels[col]
	}
	return fmt.Sprintf("row %d, col %d, %s-%s", row+1, col+1, rowName, colName)
}

// Assembler はグリッドのレイアウトに合わせた指示プロンプトを組み立てます。
type Assembler struct {
	template string
}

// NewAssembler はテンプレートを注入して Assembler を生成します。
func NewAssembler(template string) (*Assembler, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("%w: prompt template is empty", domain.ErrInvalidConfig)
	}
	return &Assembler{template: template}, nil
}

// BuildCombinedPrompt はテンプレートを描画し、タイルごとのプロンプトを位置ラベル付きで末尾に列挙します。
// override が空でなければ注入済みテンプレートの代わりに使います。
func (a *Assembler) BuildCombinedPrompt(items []domain.BatchItem, plan grid.Plan, override string) string {
	template := a.template
	if override != "" {
		template = override
	}
	base := strings.TrimSpace(RenderTemplate(template, plan.Variables()))

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n")
	sb.WriteString(TilePromptsHeader)
	for i, item := range items {
		fmt.Fprintf(&sb, "\n%d. (%s): %s", i+1, DescribePosition(i, plan.Cells), item.Prompt)
	}
	return sb.String()
}
