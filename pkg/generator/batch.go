package generator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

// GenerateBatch は独立した複数の要求を並行に処理し、入力と同じ順序で結果を返します。
// limit が 0 以下なら同時実行数を制限しません。1 件の失敗は他の要求に影響しないのだ。
func (g *ImageGenerator) GenerateBatch(ctx context.Context, cfg domain.ProviderConfig, reqs []domain.GenerationRequest, limit int) []domain.GenerationResult {
	results := make([]domain.GenerationResult, len(reqs))

	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, req := range reqs {
		eg.Go(func() error {
			results[i] = g.GenerateImage(ctx, cfg, req)
			return nil
		})
	}
	_ = eg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	slog.InfoContext(ctx, "一括生成が完了しました", "total", len(results), "succeeded", succeeded)
	return results
}

// GenerateBlocks はコンテンツブロックごとに 1 枚ずつ画像を生成します。
func (g *ImageGenerator) GenerateBlocks(ctx context.Context, cfg domain.ProviderConfig, blocks []domain.BlockImageRequest, limit int) []domain.GenerationResult {
	reqs := make([]domain.GenerationRequest, len(blocks))
	for i, b := range blocks {
		reqs[i] = b.ToGenerationRequest()
	}
	return g.GenerateBatch(ctx, cfg, reqs, limit)
}
