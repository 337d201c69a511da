package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

func openAIConfig() domain.ProviderConfig {
	return domain.ProviderConfig{
		Provider: domain.ProviderOpenAI,
		BaseURL:  "https://gateway.example.com/v1//",
		Model:    "gemini-2.5-flash-image",
		APIKey:   "sk-test",
	}
}

func TestOpenAIDialect_BuildRequest(t *testing.T) {
	t.Run("chat/completions へのストリーミング要求になるのだ", func(t *testing.T) {
		req, err := OpenAIDialect{}.BuildRequest(openAIConfig(), domain.GenerationRequest{
			Prompt: "a dog", AspectRatio: "1:1", Resolution: "1K",
		})
		require.NoError(t, err)

		assert.Equal(t, "https://gateway.example.com/v1/chat/completions", req.URL)
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		body := bodyMap(t, req.Body)
		assert.Equal(t, "gemini-2.5-flash-image", body["model"])
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, true, body["stream_options"].(map[string]any)["include_usage"])

		imageCfg := body["generationConfig"].(map[string]any)["imageConfig"].(map[string]any)
		assert.Equal(t, "1:1", imageCfg["aspectRatio"])
		assert.Equal(t, "1K", imageCfg["imageSize"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]any)
		assert.Equal(t, "user", msg["role"])
		content := msg["content"].([]any)
		require.Len(t, content, 1)
		assert.Equal(t, map[string]any{"type": "text", "text": "a dog"}, content[0])
	})

	t.Run("参照画像は data URI の image_url 要素としてテキストの後に付く", func(t *testing.T) {
		for _, ref := range []string{"QUJD", "data:image/jpeg;base64,QUJD"} {
			req, err := OpenAIDialect{}.BuildRequest(openAIConfig(), domain.GenerationRequest{Prompt: "p", ReferenceImage: ref})
			require.NoError(t, err)

			content := bodyMap(t, req.Body)["messages"].([]any)[0].(map[string]any)["content"].([]any)
			require.Len(t, content, 2)
			assert.Equal(t, "text", content[0].(map[string]any)["type"])
			part := content[1].(map[string]any)
			assert.Equal(t, "image_url", part["type"])
			assert.Equal(t, "data:image/jpeg;base64,QUJD", part["image_url"].(map[string]any)["url"])
		}
	})
}

func TestOpenAITiers(t *testing.T) {
	t.Run("JSON 構造の無い生の data URI でも取り出せるのだ", func(t *testing.T) {
		out := openAIRegexTier(NewTranscript("data:image/png;base64,QUJD"))
		assert.Equal(t, "QUJD", out.Image)
	})

	t.Run("エスケープされた URI は SSE の content 段階で拾う", func(t *testing.T) {
		raw := "data: {\"choices\":[{\"delta\":{\"content\":\"![img](data:image\\/png;base64,SGVsbG8=)\"}}]}\n\ndata: [DONE]\n"
		tr := NewTranscript(raw)
		assert.False(t, openAIRegexTier(tr).Hit())
		assert.Equal(t, "SGVsbG8=", openAILinesTier(tr).Image)
	})

	t.Run("delta が空なら message.content を見る", func(t *testing.T) {
		raw := "  data: {\"choices\":[{\"delta\":{},\"message\":{\"content\":\"data:image\\/webp;base64,QUJD\"}}]}  \n"
		assert.Equal(t, "QUJD", openAILinesTier(NewTranscript(raw)).Image)
	})

	t.Run("非ストリームの JSON は whole-buffer 段階で拾う", func(t *testing.T) {
		raw := `{"choices":[{"message":{"role":"assistant","content":"data:image\/jpeg;base64,QUJD"}}]}`
		tr := NewTranscript(raw)
		assert.False(t, openAIRegexTier(tr).Hit())
		assert.False(t, openAILinesTier(tr).Hit())
		assert.Equal(t, "QUJD", openAIWholeBufferTier(tr).Image)
	})

	t.Run("画像の無いストリームはすべて外れる", func(t *testing.T) {
		raw := "data: {\"choices\":[{\"delta\":{\"content\":\"sorry\"}}]}\n\ndata: [DONE]\n"
		tr := NewTranscript(raw)
		for _, tier := range (OpenAIDialect{}).Tiers() {
			out := tier.Run(tr)
			assert.False(t, out.Hit(), tier.Name)
			assert.NotEmpty(t, out.Reason, tier.Name)
		}
	})

	t.Run("配列の content は読み飛ばす", func(t *testing.T) {
		raw := "data: {\"choices\":[{\"delta\":{\"content\":[{\"type\":\"text\"}]}}]}\n"
		assert.False(t, openAILinesTier(NewTranscript(raw)).Hit())
	})
}
