package model

import (
	"context"
	"net/http"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

// DefaultModelID はグリッド編集に使うリモートモデルです。
const DefaultModelID = "google/nano-banana-pro"

// Request はリモートモデルへの 1 回分の編集依頼です。
type Request struct {
	ModelID           string
	ImageURL          string
	Prompt            string
	OutputFormat      domain.OutputFormat
	AspectRatio       domain.AspectRatio
	Resolution        domain.Resolution
	SafetyFilterLevel domain.SafetyFilterLevel
}

// Input はリモートモデルの入力パラメータを組み立てます。任意項目は指定されたときだけ含めます。
func (r Request) Input() map[string]any {
	aspect := r.AspectRatio
	if aspect == "" {
		aspect = domain.AspectRatioMatchInput
	}
	input := map[string]any{
		"prompt":        r.Prompt,
		"image_input":   []string{r.ImageURL},
		"output_format": string(r.OutputFormat),
		"aspect_ratio":  string(aspect),
	}
	if r.Resolution != "" {
		input["resolution"] = string(r.Resolution)
	}
	if r.SafetyFilterLevel != "" {
		input["safety_filter_level"] = string(r.SafetyFilterLevel)
	}
	return input
}

// Model はリモートの画像編集モデルです。終端ステータスまで待ってから結果を返します。
type Model interface {
	Run(ctx context.Context, req Request) (Output, error)
}

// Fetcher は URL の内容を取得します。httpkit.ClientInterface が満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Doer は組み立て済みリクエストを送信して本文を返します。httpkit.ClientInterface が満たします。
type Doer interface {
	DoRequest(req *http.Request) ([]byte, error)
}
