package generator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shouni/image-stream-kit/pkg/adapters"
)

// --- Mocks ---

// countingDoer は呼び出し回数を数える HTTPDoer なのだ。
type countingDoer struct {
	calls  atomic.Int32
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *countingDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls.Add(1)
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return nil, nil
}

// mockResolver は ReferenceResolver のテスト用モックなのだ。
type mockResolver struct {
	loadFunc func(ctx context.Context, rawURL string) (string, error)
}

func (m *mockResolver) Load(ctx context.Context, rawURL string) (string, error) {
	return m.loadFunc(ctx, rawURL)
}

// capturedRequest は中継サーバーが受け取った内容です。
type capturedRequest struct {
	mu     sync.Mutex
	target string
	auth   string
	body   []byte
}

func (c *capturedRequest) get() (target, auth string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.auth, c.body
}

// newProxyServer は /proxy を受けて body をチャンクで書き返すテスト用サーバーを立てる。
// 返り値の Proxy は same-origin でこのサーバーを指すのだ。
func newProxyServer(t *testing.T, status int, chunks ...string) (*adapters.Proxy, *capturedRequest, *atomic.Int32) {
	t.Helper()
	captured := &capturedRequest{}
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/proxy" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		captured.mu.Lock()
		captured.target = r.URL.Query().Get("url")
		captured.auth = r.Header.Get("Authorization")
		captured.body = body
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		flusher, _ := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = w.Write([]byte(c))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	t.Cleanup(srv.Close)

	proxy, err := adapters.NewProxy(adapters.ProxyConfig{Mode: adapters.ProxySameOrigin, Host: srv.URL})
	if err != nil {
		t.Fatalf("failed to create proxy: %v", err)
	}
	return proxy, captured, &hits
}
