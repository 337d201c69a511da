package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shouni/image-stream-kit/pkg/stream"
)

// executeRequest は中継 URL に 1 回だけ送信し、2xx ならストリーム全文を返します。
func (g *ImageGenerator) executeRequest(ctx context.Context, logger *slog.Logger, apiReq *APIRequest) (string, error) {
	target := g.proxy.Wrap(apiReq.URL)

	httpReq, err := http.NewRequestWithContext(ctx, apiReq.Method, target, bytes.NewReader(apiReq.Body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header = apiReq.Header.Clone()

	logger.DebugContext(ctx, "画像生成リクエストを送信します", "proxy_mode", g.proxy.Mode(), "body_bytes", len(apiReq.Body))
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if resp == nil {
		return "", stream.ErrNoStream
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body []byte
		if resp.Body != nil {
			body, err = io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			if err != nil {
				return "", fmt.Errorf("read error response: %w", err)
			}
		}
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	raw, err := stream.Decode(resp.Body)
	if err != nil {
		return "", err
	}
	logger.DebugContext(ctx, "ストリームを最後まで受信しました", "bytes", len(raw))
	return raw, nil
}
