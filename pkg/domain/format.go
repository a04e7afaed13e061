package domain

import "fmt"

// NormalizedImageSize は参照画像を正規化する一辺のピクセル数です。
const NormalizedImageSize = 1024

// ImageFormat は取得した参照画像のフォーマットです。
type ImageFormat string

const (
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatPNG  ImageFormat = "png"
)

// OutputFormat は合成画像と出力タイルのエンコード形式です。
type OutputFormat string

const (
	OutputPNG OutputFormat = "png"
	OutputJPG OutputFormat = "jpg"
)

// DefaultOutputFormat は出力形式が未指定のときに使われます。
const DefaultOutputFormat = OutputPNG

// ParseOutputFormat は文字列を OutputFormat に変換します。png と jpg 以外はエラーです。
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputPNG, OutputJPG:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("%w: outputFormat must be \"png\" or \"jpg\", got %q", ErrInvalidConfig, s)
}

// MimeType は出力形式に対応する Content-Type を返します。
func (f OutputFormat) MimeType() string {
	if f == OutputJPG {
		return "image/jpeg"
	}
	return "image/png"
}

// Resolution はリモートモデルの出力解像度です。
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

// SafetyFilterLevel はリモートモデルの安全フィルター強度です。
type SafetyFilterLevel string

const (
	SafetyBlockLowAndAbove    SafetyFilterLevel = "block_low_and_above"
	SafetyBlockMediumAndAbove SafetyFilterLevel = "block_medium_and_above"
	SafetyBlockOnlyHigh       SafetyFilterLevel = "block_only_high"
)

// AspectRatio はリモートモデルに渡すアスペクト比です。
type AspectRatio string

// AspectRatioMatchInput は入力画像と同じアスペクト比を指示します。
const AspectRatioMatchInput AspectRatio = "match_input_image"
