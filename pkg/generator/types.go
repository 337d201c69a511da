package generator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shouni/image-stream-kit/pkg/stream"
)

const (
	// referenceMIMEType は参照画像を送るときの MIME タイプです。
	referenceMIMEType = "image/jpeg"
	// maxErrorBodySize はエラーレスポンス本文を読む上限です。
	maxErrorBodySize int64 = 10 * 1024 * 1024
	tracerName             = "github.com/shouni/image-stream-kit/pkg/generator"
)

var (
	// ErrNotConfigured は BaseURL か APIKey が未設定のときのエラーです。
	ErrNotConfigured = errors.New("please configure the image-generation API first.")
	// ErrGeminiNoImage は Gemini 方言で画像が見つからなかったときのエラーです。
	ErrGeminiNoImage = errors.New("no image data found, check the API response.")
	// ErrOpenAINoImage は OpenAI 互換方言で画像が見つからなかったときのエラーです。
	ErrOpenAINoImage = errors.New("no image data found.")
)

// APIError は 2xx 以外のレスポンスです。
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed: %d - %s", e.StatusCode, e.Body)
}

// APIRequest は方言が組み立てた送信前のリクエストです。URL は中継前のターゲットです。
type APIRequest struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte
}

func newAPIRequest(url, apiKey string, body []byte) *APIRequest {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+apiKey)
	return &APIRequest{URL: url, Method: http.MethodPost, Header: h, Body: body}
}

// Transcript は読み終えたストリーム全文と、その SSE イベント列です。
type Transcript struct {
	Raw    string
	Events []stream.Event
}

// NewTranscript は全文を SSE イベントに分割して Transcript を作ります。
func NewTranscript(raw string) Transcript {
	return Transcript{Raw: raw, Events: stream.ParseEvents(raw)}
}

// Tier は抽出戦略の 1 段階です。
type Tier struct {
	Name string
	Run  func(t Transcript) TierOutcome
}

// TierOutcome は 1 段階の結果です。Image が空なら外れで、Reason に理由が入ります。
type TierOutcome struct {
	Image  string
	Reason string
}

// Hit は画像が得られたかどうかを返します。
func (o TierOutcome) Hit() bool {
	return o.Image != ""
}

func hit(image string) TierOutcome {
	return TierOutcome{Image: image}
}

func miss(format string, args ...any) TierOutcome {
	return TierOutcome{Reason: fmt.Sprintf(format, args...)}
}

// trimBaseURL は末尾のスラッシュをすべて取り除きます。何度適用しても結果は同じです。
func trimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
