package model

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

func TestRequest_Input(t *testing.T) {
	t.Run("任意項目なしではアスペクト比が入力画像に合わせる指定になる", func(t *testing.T) {
		in := Request{ImageURL: "https://cdn.example/grid.png", Prompt: "p", OutputFormat: domain.OutputPNG}.Input()

		assert.Equal(t, "p", in["prompt"])
		assert.Equal(t, []string{"https://cdn.example/grid.png"}, in["image_input"])
		assert.Equal(t, "png", in["output_format"])
		assert.Equal(t, "match_input_image", in["aspect_ratio"])
		assert.NotContains(t, in, "resolution")
		assert.NotContains(t, in, "safety_filter_level")
	})

	t.Run("指定された任意項目は含まれる", func(t *testing.T) {
		in := Request{
			ImageURL:          "u",
			OutputFormat:      domain.OutputJPG,
			AspectRatio:       "1:1",
			Resolution:        domain.Resolution2K,
			SafetyFilterLevel: domain.SafetyBlockOnlyHigh,
		}.Input()

		assert.Equal(t, "1:1", in["aspect_ratio"])
		assert.Equal(t, "2K", in["resolution"])
		assert.Equal(t, string(domain.SafetyBlockOnlyHigh), in["safety_filter_level"])
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	fetcher := &mockFetcher{data: map[string][]byte{"https://out.example/a.png": []byte("from-url")}}

	t.Run("バイト列はそのまま返す", func(t *testing.T) {
		got, err := Resolve(ctx, RawBytes([]byte("raw")), nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("raw"), got)
	})

	t.Run("URL は取得する", func(t *testing.T) {
		got, err := Resolve(ctx, URLString("https://out.example/a.png"), fetcher)
		require.NoError(t, err)
		assert.Equal(t, []byte("from-url"), got)
	})

	t.Run("アクセサーは呼び出してから取得する", func(t *testing.T) {
		got, err := Resolve(ctx, LazyURL(func() (string, error) { return "https://out.example/a.png", nil }), fetcher)
		require.NoError(t, err)
		assert.Equal(t, []byte("from-url"), got)
	})

	t.Run("アクセサーのエラーは ErrRemoteModel", func(t *testing.T) {
		_, err := Resolve(ctx, LazyURL(func() (string, error) { return "", errors.New("gone") }), fetcher)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
		assert.Contains(t, err.Error(), "gone")
	})

	t.Run("ストリームは読み切って閉じる", func(t *testing.T) {
		rc := &trackingCloser{Reader: bytes.NewReader([]byte("streamed"))}
		got, err := Resolve(ctx, Stream(rc), nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("streamed"), got)
		assert.True(t, rc.closed)
	})

	t.Run("ストリームの読み込み失敗は ErrRemoteModel", func(t *testing.T) {
		_, err := Resolve(ctx, Stream(errReader{}), nil)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
	})

	t.Run("未知の形は ErrRemoteModel", func(t *testing.T) {
		_, err := Resolve(ctx, Output{}, fetcher)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
		assert.Contains(t, err.Error(), "unknown")
	})

	t.Run("空のバイト列や URL は ErrRemoteModel", func(t *testing.T) {
		_, err := Resolve(ctx, RawBytes(nil), fetcher)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
		_, err = Resolve(ctx, URLString(""), fetcher)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
	})

	t.Run("取得失敗は ErrRemoteModel", func(t *testing.T) {
		_, err := Resolve(ctx, URLString("https://out.example/missing.png"), fetcher)
		assert.ErrorIs(t, err, domain.ErrRemoteModel)
	})
}
