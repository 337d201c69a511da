package generator

import (
	"context"
	"net/http"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

// HTTPDoer は 1 回の HTTP リクエストを実行するクライアントです。*http.Client が満たします。
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ReferenceResolver は参照画像の URL を base64 に解決します。
// adapters.ReferenceLoader が満たします。
type ReferenceResolver interface {
	Load(ctx context.Context, rawURL string) (string, error)
}

// Dialect は API 方言ごとのリクエスト構築とペイロード抽出の組です。
type Dialect interface {
	// Name は方言のプロバイダ名を返します。
	Name() domain.Provider
	// BuildRequest は方言固有の URL・ヘッダ・JSON ボディを組み立てます。
	BuildRequest(cfg domain.ProviderConfig, req domain.GenerationRequest) (*APIRequest, error)
	// Tiers は抽出戦略を試行順に返します。
	Tiers() []Tier
	// NotFound はすべての段階が外れたときのエラーです。
	NotFound() error
}

// DialectFor はプロバイダに対応する方言を返します。gemini 以外は OpenAI 互換なのだ。
func DialectFor(p domain.Provider) Dialect {
	if p == domain.ProviderGemini {
		return GeminiDialect{}
	}
	return OpenAIDialect{}
}
