package model

import (
	"context"
	"fmt"
	"io"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

// OutputKind はリモートモデルが返す出力の形です。
type OutputKind int

const (
	OutputUnknown OutputKind = iota
	// OutputRawBytes は画像バイト列そのものです。
	OutputRawBytes
	// OutputURLString は取得が必要な URL です。
	OutputURLString
	// OutputLazyURL は呼び出し時に URL を返すアクセサーです。
	OutputLazyURL
	// OutputStream は読み切る必要があるストリームです。
	OutputStream
)

func (k OutputKind) String() string {
	switch k {
	case OutputRawBytes:
		return "raw_bytes"
	case OutputURLString:
		return "url"
	case OutputLazyURL:
		return "lazy_url"
	case OutputStream:
		return "stream"
	}
	return "unknown"
}

// Output はリモートモデルの出力です。Kind に対応するフィールドだけが設定されます。
type Output struct {
	Kind    OutputKind
	Bytes   []byte
	URL     string
	LazyURL func() (string, error)
	Stream  io.ReadCloser
}

// RawBytes はバイト列の出力を作ります。
func RawBytes(data []byte) Output { return Output{Kind: OutputRawBytes, Bytes: data} }

// URLString は URL の出力を作ります。
func URLString(url string) Output { return Output{Kind: OutputURLString, URL: url} }

// LazyURL はアクセサー形式の出力を作ります。
func LazyURL(fn func() (string, error)) Output { return Output{Kind: OutputLazyURL, LazyURL: fn} }

// Stream はストリーム形式の出力を作ります。
func Stream(rc io.ReadCloser) Output { return Output{Kind: OutputStream, Stream: rc} }

// Resolve は出力をバイト列に正規化します。URL は fetcher で取得し、ストリームは読み切って閉じます。
// 既知の形以外、または中身が空の出力は ErrRemoteModel です。
func Resolve(ctx context.Context, out Output, fetcher Fetcher) ([]byte, error) {
	switch out.Kind {
	case OutputRawBytes:
		if len(out.Bytes) == 0 {
			return nil, fmt.Errorf("%w: empty output", domain.ErrRemoteModel)
		}
		return out.Bytes, nil
	case OutputURLString:
		return fetchOutput(ctx, out.URL, fetcher)
	case OutputLazyURL:
		if out.LazyURL == nil {
			return nil, fmt.Errorf("%w: lazy url accessor is nil", domain.ErrRemoteModel)
		}
		url, err := out.LazyURL()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRemoteModel, err)
		}
		return fetchOutput(ctx, url, fetcher)
	case OutputStream:
		if out.Stream == nil {
			return nil, fmt.Errorf("%w: stream is nil", domain.ErrRemoteModel)
		}
		defer out.Stream.Close()
		data, err := io.ReadAll(out.Stream)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read output stream: %w", domain.ErrRemoteModel, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: unsupported output type %s", domain.ErrRemoteModel, out.Kind)
}

func fetchOutput(ctx context.Context, url string, fetcher Fetcher) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty output url", domain.ErrRemoteModel)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher for output url %s", domain.ErrRemoteModel, url)
	}
	data, err := fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download %s: %w", domain.ErrRemoteModel, url, err)
	}
	return data, nil
}
