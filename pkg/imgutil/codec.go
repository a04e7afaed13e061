package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

// JPEGQuality は JPEG 出力時の品質です。
const JPEGQuality = 95

// DetectFormat はヘッダーだけを読んで画像のフォーマットと寸法を返します。
// 返るフォーマット名は image パッケージに登録された名前（"jpeg", "png", "gif" など）です。
func DetectFormat(data []byte) (format string, width, height int, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("unable to read image dimensions: %w", err)
	}
	return format, cfg.Width, cfg.Height, nil
}

// Decode は画像をデコードします。EXIF の Orientation があれば回転を適用します。
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Encode は出力形式に応じて PNG（可逆）または JPEG（品質 95）でエンコードします。
func Encode(img image.Image, format domain.OutputFormat) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	switch format {
	case domain.OutputPNG:
		err = imaging.Encode(buf, img, imaging.PNG)
	case domain.OutputJPG:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidConfig, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Letterbox はアスペクト比を保ったまま size x size に収まるよう拡大または縮小し、余白を透明で埋めます。
// imaging.Fit は拡大しないため、倍率はここで計算します。
func Letterbox(img image.Image, size int) *image.NRGBA {
	canvas := imaging.New(size, size, color.NRGBA{})
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return canvas
	}
	w, h := containSize(b.Dx(), b.Dy(), size)
	return imaging.PasteCenter(canvas, StretchTo(img, w, h))
}

// containSize は w x h を size 四方に内接させたときの寸法を返します。
func containSize(w, h, size int) (int, int) {
	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	fw := max(1, min(size, int(math.Round(float64(w)*scale))))
	fh := max(1, min(size, int(math.Round(float64(h)*scale))))
	return fw, fh
}

// StretchTo はアスペクト比を無視して width x height ちょうどに拡縮します。
func StretchTo(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
