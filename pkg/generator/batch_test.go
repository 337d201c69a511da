package generator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

func TestImageGenerator_GenerateBatch(t *testing.T) {
	ctx := context.Background()

	// プロンプト末尾の文字で応答を切り替える
	promptDoer := func(inFlight, peak *atomic.Int32) *countingDoer {
		return &countingDoer{doFunc: func(req *http.Request) (*http.Response, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)

			b, _ := io.ReadAll(req.Body)
			if strings.Contains(string(b), "fail") {
				return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader("bad prompt"))}, nil
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("data:image/png;base64,QUJD"))}, nil
		}}
	}

	t.Run("入力順に結果が並び、1 件の失敗は他に影響しないのだ", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		doer := promptDoer(&inFlight, &peak)
		g := newTestGenerator(t, doer, directProxy(t))

		reqs := []domain.GenerationRequest{{Prompt: "one"}, {Prompt: "fail"}, {Prompt: "three"}, {Prompt: "four"}}
		results := g.GenerateBatch(ctx, openAIConfig(), reqs, 2)

		require.Len(t, results, 4)
		assert.True(t, results[0].Success)
		assert.Equal(t, domain.Failed("API request failed: 400 - bad prompt"), results[1])
		assert.True(t, results[2].Success)
		assert.True(t, results[3].Success)
		assert.Equal(t, int32(4), doer.calls.Load())
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("空の入力は空の結果", func(t *testing.T) {
		g := newTestGenerator(t, &countingDoer{}, directProxy(t))
		assert.Empty(t, g.GenerateBatch(ctx, openAIConfig(), nil, 0))
	})
}

func TestImageGenerator_GenerateBlocks(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []string
	)
	doer := &countingDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		mu.Lock()
		prompts = append(prompts, string(b))
		mu.Unlock()
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("data:image/png;base64,QUJD"))}, nil
	}}
	g := newTestGenerator(t, doer, directProxy(t))

	blocks := []domain.BlockImageRequest{
		{Block: domain.ContentBlock{Title: "第1章", Text: "森の朝"}, StylePrompt: "watercolor"},
		{Block: domain.ContentBlock{Title: "第2章", Text: "夜の街"}, StylePrompt: "watercolor"},
	}
	results := g.GenerateBlocks(context.Background(), openAIConfig(), blocks, 1)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, domain.Succeeded("QUJD"), r)
	}
	require.Len(t, prompts, 2)
	assert.Contains(t, strings.Join(prompts, ""), "森の朝")
	assert.Contains(t, strings.Join(prompts, ""), "watercolor")
}
