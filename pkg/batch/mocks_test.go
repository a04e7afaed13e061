package batch

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/shouni/grid-batch-kit/pkg/domain"
	"github.com/shouni/grid-batch-kit/pkg/imgutil"
	"github.com/shouni/grid-batch-kit/pkg/model"
)

// --- Mocks ---

// mockAcquirer は URI ごとに登録された画像を返します。
type mockAcquirer struct {
	mu     sync.Mutex
	images map[string][]byte
	errs   map[string]error
	calls  []string
}

func (m *mockAcquirer) Acquire(ctx context.Context, uri string) (domain.ValidatedImage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, uri)
	m.mu.Unlock()

	if err := m.errs[uri]; err != nil {
		return domain.ValidatedImage{}, err
	}
	data, ok := m.images[uri]
	if !ok {
		return domain.ValidatedImage{}, errors.New("unknown uri")
	}
	return domain.ValidatedImage{Data: data, Format: domain.ImageFormatPNG}, nil
}

// mockUploader は受け取った合成画像を保持し、固定 URL を返します。
type mockUploader struct {
	url   string
	err   error
	data  []byte
	calls int
}

func (m *mockUploader) Upload(ctx context.Context, data []byte) (string, error) {
	m.calls++
	m.data = data
	return m.url, m.err
}

// echoModel はアップロードされた合成画像をそのまま編集結果として返します。
type echoModel struct {
	uploader *mockUploader
	out      func(req model.Request) model.Output
	err      error
	lastReq  model.Request
	calls    int
}

func (m *echoModel) Run(ctx context.Context, req model.Request) (model.Output, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return model.Output{}, m.err
	}
	if m.out != nil {
		return m.out(req), nil
	}
	return model.RawBytes(m.uploader.data), nil
}

type mockFetcher struct {
	data map[string][]byte
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	data, ok := m.data[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func solidPNG(t *testing.T, size int, c color.NRGBA) []byte {
	t.Helper()
	data, err := imgutil.Encode(imaging.New(size, size, c), domain.OutputPNG)
	require.NoError(t, err)
	return data
}
