package asset

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// --- Mocks ---

type mockHTTPClient struct {
	data  map[string][]byte
	err   error
	calls []string
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.data[url], nil
}

type mockCache struct {
	data map[string]any
}

func (m *mockCache) Get(key string) (any, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *mockCache) Set(key string, value any, d time.Duration) {
	m.data[key] = value
}

// mockReader は Open だけを差し替え、残りのメソッドは埋め込んだインターフェースで満たします。
type mockReader struct {
	remoteio.InputReader
	objects map[string][]byte
	opened  []string
}

func (m *mockReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.opened = append(m.opened, uri)
	data, ok := m.objects[uri]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
