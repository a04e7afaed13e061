package model

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type recordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// mockDoer は登録順にレスポンスを返し、受け取ったリクエストを記録します。
type mockDoer struct {
	mu        sync.Mutex
	responses [][]byte
	errs      []error
	requests  []recordedRequest
}

func (m *mockDoer) DoRequest(req *http.Request) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	m.requests = append(m.requests, recordedRequest{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone(), Body: body})

	i := len(m.requests) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	// 足りない分は最後のレスポンスを繰り返す
	if len(m.responses) > 0 {
		return m.responses[len(m.responses)-1], nil
	}
	return nil, errors.New("no response configured")
}

type mockFetcher struct {
	data  map[string][]byte
	err   error
	calls []string
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type mockAIClient struct {
	resp      *gemini.Response
	err       error
	lastModel string
	lastParts []*genai.Part
	lastOpts  gemini.GenerateOptions
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.lastModel = model
	m.lastParts = parts
	m.lastOpts = opts
	return m.resp, m.err
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("read failed") }
func (errReader) Close() error               { return nil }

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}
