package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/image-stream-kit/pkg/domain"
	"github.com/shouni/image-stream-kit/pkg/imgutil"
	"github.com/shouni/image-stream-kit/pkg/stream"
)

// dataURIPattern は data:image/<subtype>;base64,<payload> を探します。
var dataURIPattern = regexp.MustCompile(`data:image/[^;]+;base64,([A-Za-z0-9+/=]+)`)

// OpenAIDialect は chat/completions 形式の OpenAI 互換 API です。
type OpenAIDialect struct{}

type openAIPayload struct {
	Model            string               `json:"model"`
	Messages         []openAIMessage      `json:"messages"`
	GenerationConfig openAIGenerateConfig `json:"generationConfig"`
	Stream           bool                 `json:"stream"`
	StreamOptions    openAIStreamOptions  `json:"stream_options"`
}

type openAIMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIGenerateConfig struct {
	ImageConfig imageConfig `json:"imageConfig"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// openAIChunk はストリームのチャンクと非ストリームのレスポンスを兼ねる最小の形です。
type openAIChunk struct {
	Choices []struct {
		Delta   openAIChoiceContent `json:"delta"`
		Message openAIChoiceContent `json:"message"`
	} `json:"choices"`
}

type openAIChoiceContent struct {
	Content string `json:"content"`
}

func (OpenAIDialect) Name() domain.Provider { return domain.ProviderOpenAI }

func (OpenAIDialect) NotFound() error { return ErrOpenAINoImage }

// BuildRequest は {baseUrl}/chat/completions へのストリーミングリクエストを組み立てます。
// 参照画像は data:image/jpeg;base64, の URI に包んで image_url 要素として追加します。
func (OpenAIDialect) BuildRequest(cfg domain.ProviderConfig, req domain.GenerationRequest) (*APIRequest, error) {
	content := []openAIContentPart{{Type: "text", Text: req.Prompt}}
	if ref := imgutil.StripDataURI(req.ReferenceImage); ref != "" {
		content = append(content, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: imgutil.ToDataURI(referenceMIMEType, ref)},
		})
	}

	payload := openAIPayload{
		Model:    cfg.Model,
		Messages: []openAIMessage{{Role: "user", Content: content}},
		GenerationConfig: openAIGenerateConfig{
			ImageConfig: imageConfig{AspectRatio: req.AspectRatio, ImageSize: req.Resolution},
		},
		Stream:        true,
		StreamOptions: openAIStreamOptions{IncludeUsage: true},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal openai payload: %w", err)
	}

	return newAPIRequest(trimBaseURL(cfg.BaseURL)+"/chat/completions", cfg.APIKey, body), nil
}

// Tiers は生バッファの data URI → SSE の content → 全文 JSON の順です。
func (OpenAIDialect) Tiers() []Tier {
	return []Tier{
		{Name: "data-uri-regex", Run: openAIRegexTier},
		{Name: "sse-delta-content", Run: openAILinesTier},
		{Name: "whole-buffer-json", Run: openAIWholeBufferTier},
	}
}

func openAIRegexTier(t Transcript) TierOutcome {
	if image := matchDataURI(t.Raw); image != "" {
		return hit(image)
	}
	return miss("no data URI in raw buffer")
}

// openAILinesTier は data 行ごとに choices[0].delta.content（無ければ message.content）を取り出し、
// その中の data URI を探します。JSON エスケープされた URI はこの段階で拾えるのだ。
func openAILinesTier(t Transcript) TierOutcome {
	var considered, invalid int
	for _, line := range strings.Split(t.Raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "data: "+stream.DoneSentinel || !strings.HasPrefix(trimmed, "data: ") {
			continue
		}
		considered++

		var chunk openAIChunk
		if err := json.Unmarshal([]byte(trimmed[len("data: "):]), &chunk); err != nil {
			invalid++
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			content = chunk.Choices[0].Message.Content
		}
		if image := matchDataURI(content); image != "" {
			return hit(image)
		}
	}
	return miss("%d data lines considered, %d unparsable, no data URI in content", considered, invalid)
}

// openAIWholeBufferTier はストリーム指定を無視して 1 つの JSON を返すエンドポイント向けです。
func openAIWholeBufferTier(t Transcript) TierOutcome {
	var chunk openAIChunk
	if err := json.Unmarshal([]byte(t.Raw), &chunk); err != nil {
		return miss("buffer is not a single JSON document: %v", err)
	}
	if len(chunk.Choices) == 0 {
		return miss("no choices")
	}
	if image := matchDataURI(chunk.Choices[0].Message.Content); image != "" {
		return hit(image)
	}
	return miss("no data URI in message content")
}

func matchDataURI(s string) string {
	if m := dataURIPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
