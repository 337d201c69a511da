package generator

import (
	"context"
	"log/slog"
)

// TierAttempt は試行した段階とその結果です。
type TierAttempt struct {
	Tier    string
	Outcome TierOutcome
}

// Extraction は抽出結果です。Tier は画像が得られた段階名です。
type Extraction struct {
	Image    string
	Tier     string
	Attempts []TierAttempt
}

// Extract は方言の抽出段階を順に試し、最初に当たった段階の画像を返します。
// 後の段階は前の段階がすべて外れたときだけ実行されます。
func Extract(ctx context.Context, d Dialect, raw string) (Extraction, error) {
	t := NewTranscript(raw)

	var ext Extraction
	for _, tier := range d.Tiers() {
		outcome := tier.Run(t)
		ext.Attempts = append(ext.Attempts, TierAttempt{Tier: tier.Name, Outcome: outcome})
		if outcome.Hit() {
			ext.Image = outcome.Image
			ext.Tier = tier.Name
			return ext, nil
		}
		slog.DebugContext(ctx, "抽出段階で画像が見つかりませんでした",
			"provider", d.Name(), "tier", tier.Name, "reason", outcome.Reason)
	}
	return ext, d.NotFound()
}
