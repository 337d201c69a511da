package generator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"

	"github.com/shouni/image-stream-kit/pkg/domain"
	"github.com/shouni/image-stream-kit/pkg/imgutil"
	"github.com/shouni/image-stream-kit/pkg/stream"
)

// geminiInlineDataPattern はバッファ中に埋め込まれた inlineData を拾う最後の手段です。
var geminiInlineDataPattern = regexp.MustCompile(`"inlineData"\s*:\s*\{\s*"data"\s*:\s*"([A-Za-z0-9+/=]+)"`)

// geminiEventAllowlist は SSE 段階で対象にするイベント名です。空文字は無名イベント。
var geminiEventAllowlist = map[string]bool{"result": true, "message": true, "": true}

// GeminiDialect は contents/parts 形式の streamGenerateContent API です。
type GeminiDialect struct{}

type geminiPayload struct {
	Contents              []*genai.Content    `json:"contents"`
	StreamGenerateContent geminiStreamOptions `json:"streamGenerateContent"`
}

type geminiStreamOptions struct {
	ImageConfig imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize"`
}

func (GeminiDialect) Name() domain.Provider { return domain.ProviderGemini }

func (GeminiDialect) NotFound() error { return ErrGeminiNoImage }

// BuildRequest は {baseUrl}/models/{model}:streamGenerateContent?alt=sse へのリクエストを組み立てます。
// 参照画像は data URI を外した生の base64 として inlineData パーツに載せます。
func (GeminiDialect) BuildRequest(cfg domain.ProviderConfig, req domain.GenerationRequest) (*APIRequest, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}

	if ref := imgutil.StripDataURI(req.ReferenceImage); ref != "" {
		data, err := base64.StdEncoding.DecodeString(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid reference image: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: referenceMIMEType, Data: data}})
	}

	payload := geminiPayload{
		Contents: []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		StreamGenerateContent: geminiStreamOptions{
			ImageConfig: imageConfig{AspectRatio: req.AspectRatio, ImageSize: req.Resolution},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini payload: %w", err)
	}

	url := trimBaseURL(cfg.BaseURL) + "/models/" + cfg.Model + ":streamGenerateContent?alt=sse"
	return newAPIRequest(url, cfg.APIKey, body), nil
}

// Tiers は SSE イベント → 全文 JSON → 正規表現の順です。
func (GeminiDialect) Tiers() []Tier {
	return []Tier{
		{Name: "sse-events", Run: geminiEventsTier},
		{Name: "whole-buffer-json", Run: geminiWholeBufferTier},
		{Name: "inline-data-regex", Run: geminiRegexTier},
	}
}

// geminiChunk は抽出に必要な部分だけを読む形です。
// data は base64 として検証せず、受け取った文字列のまま保持します。
type geminiChunk struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// geminiEventsTier は result / message / 無名イベントの data 行だけを JSON として解析します。
// 解析できない行は「まだ完全な JSON ではない」とみなして読み飛ばすのだ。
func geminiEventsTier(t Transcript) TierOutcome {
	var considered, invalid int
	lastReason := "no candidate events"
	for _, ev := range t.Events {
		if !geminiEventAllowlist[ev.Name] || stream.IsDone(ev.Data) {
			continue
		}
		considered++

		var chunk geminiChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			invalid++
			continue
		}
		if image := geminiInlineData(&chunk); image != "" {
			return hit(image)
		}
		lastReason = geminiMissReason([]byte(ev.Data))
	}
	return miss("%d events considered, %d unparsable: %s", considered, invalid, lastReason)
}

// geminiWholeBufferTier はストリーム指定を無視して 1 つの JSON を返すエンドポイント向けです。
func geminiWholeBufferTier(t Transcript) TierOutcome {
	var chunk geminiChunk
	if err := json.Unmarshal([]byte(t.Raw), &chunk); err != nil {
		return miss("buffer is not a single JSON document: %v", err)
	}
	if image := geminiInlineData(&chunk); image != "" {
		return hit(image)
	}
	return miss("%s", geminiMissReason([]byte(t.Raw)))
}

func geminiRegexTier(t Transcript) TierOutcome {
	if m := geminiInlineDataPattern.FindStringSubmatch(t.Raw); m != nil && m[1] != "" {
		return hit(m[1])
	}
	return miss("no inlineData literal in buffer")
}

// geminiInlineData は candidates[0].content.parts のうち、最初に inlineData を持つパーツの data を返します。
// そのパーツの data が空なら空文字です。
func geminiInlineData(chunk *geminiChunk) string {
	// 最初の候補 (Candidate) のみを利用する。
	if chunk == nil || len(chunk.Candidates) == 0 || chunk.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range chunk.Candidates[0].Content.Parts {
		if part.InlineData != nil {
			return part.InlineData.Data
		}
	}
	return ""
}

// geminiMissReason は画像が無かった理由を SDK の型で読み取ります。
// SDK の型として解析できない文書でも抽出結果には影響しないのだ。
func geminiMissReason(data []byte) string {
	var raw genai.GenerateContentResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return "no inlineData part"
	}
	return describeGeminiResponse(&gemini.Response{RawResponse: &raw})
}

func describeGeminiResponse(resp *gemini.Response) string {
	if resp == nil || resp.RawResponse == nil {
		return "no response"
	}
	if fb := resp.RawResponse.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return fmt.Sprintf("prompt blocked (BlockReason: %s)", fb.BlockReason)
	}
	if len(resp.RawResponse.Candidates) == 0 {
		return "no candidates"
	}

	candidate := resp.RawResponse.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "candidate has no content"
	}
	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil {
			return "inlineData part has no data"
		}
	}

	// 安全フィルター等によるブロックの確認
	if fr := candidate.FinishReason; fr != "" && fr != genai.FinishReasonUnspecified && fr != genai.FinishReasonStop {
		return fmt.Sprintf("no inlineData part (FinishReason: %s)", fr)
	}
	return "no inlineData part"
}
