package domain

import "strings"

// Provider は画像生成 API の方言（リクエスト/レスポンス形式）を表します。
type Provider string

const (
	// ProviderGemini は contents/parts 形式の streamGenerateContent API です。
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI は chat/completions 形式の OpenAI 互換 API です。
	ProviderOpenAI Provider = "openai"
)

// ParseProvider は設定値の文字列を Provider に変換します。
// gemini 以外はすべて OpenAI 互換として扱うのだ。
func ParseProvider(s string) Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderGemini):
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// ProviderConfig は画像生成 API への接続設定です。
type ProviderConfig struct {
	Provider Provider `yaml:"provider" json:"provider"`
	BaseURL  string   `yaml:"base_url" json:"base_url"`
	Model    string   `yaml:"model" json:"model"`
	APIKey   string   `yaml:"api_key" json:"-"` // ログや JSON に出さない
}

// IsConfigured はリクエスト前提条件（BaseURL と APIKey）が揃っているかを返します。
func (c ProviderConfig) IsConfigured() bool {
	return strings.TrimSpace(c.BaseURL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// GenerationRequest は単一の画像生成要求です。
type GenerationRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	// ReferenceImage は base64 の参照画像。data URI で渡されても方言側で整形します。
	ReferenceImage string
	// ReferenceURL は http(s):// または gs:// の参照画像。ReferenceImage が空の場合のみ使われます。
	ReferenceURL string
}

// GenerationResult は呼び出し側 UI に返す統一された結果です。
// Image と Error のどちらか一方だけが設定されます。
type GenerationResult struct {
	Success bool   `json:"success"`
	Image   string `json:"image,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded は成功結果を作ります。
func Succeeded(image string) GenerationResult {
	return GenerationResult{Success: true, Image: image}
}

// Failed は失敗結果を作ります。空メッセージは許容しないのだ。
func Failed(msg string) GenerationResult {
	if msg == "" {
		msg = DefaultFailureMessage
	}
	return GenerationResult{Success: false, Error: msg}
}

// DefaultFailureMessage は原因が特定できない失敗に使う文言です。
const DefaultFailureMessage = "image generation failed"
