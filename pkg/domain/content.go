package domain

// ContentBlock はテキスト分割ワークフローが生成するタイトル付きのテキストブロックです。
type ContentBlock struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text" yaml:"text"`
}

// BlockImageRequest はブロック単位の画像生成パラメータです。
type BlockImageRequest struct {
	Block       ContentBlock
	StylePrompt string // 画風プロンプト。空なら付与しない
	AspectRatio string
	Resolution  string
	// ReferenceImage はスタイル参照画像（base64）。全ブロックで共有されます。
	ReferenceImage string
}

// ToGenerationRequest はブロックを単一の GenerationRequest に変換します。
func (b BlockImageRequest) ToGenerationRequest() GenerationRequest {
	prompt := b.Block.Title
	if b.Block.Text != "" {
		if prompt != "" {
			prompt += "\n"
		}
		prompt += b.Block.Text
	}
	if b.StylePrompt != "" {
		prompt += "\n" + b.StylePrompt
	}
	return GenerationRequest{
		Prompt:         prompt,
		AspectRatio:    b.AspectRatio,
		Resolution:     b.Resolution,
		ReferenceImage: b.ReferenceImage,
	}
}
