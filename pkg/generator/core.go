package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shouni/image-stream-kit/pkg/adapters"
	"github.com/shouni/image-stream-kit/pkg/domain"
)

// ImageGenerator はストリーミング画像生成クライアントの入口です。
// 1 回の呼び出しにつき外部 API へのリクエストは 1 回だけで、リトライはしません。
// 呼び出し間で可変状態を共有しないため、複数の GenerateImage を並行に呼べます。
type ImageGenerator struct {
	httpClient HTTPDoer
	proxy      *adapters.Proxy
	references ReferenceResolver
	metrics    *Metrics
	tracer     trace.Tracer
}

// Option は ImageGenerator の任意設定です。
type Option func(*ImageGenerator)

// WithReferenceResolver は ReferenceURL の解決に使うローダーを設定します。
func WithReferenceResolver(r ReferenceResolver) Option {
	return func(g *ImageGenerator) { g.references = r }
}

// WithMetrics は Prometheus メトリクスを設定します。
func WithMetrics(m *Metrics) Option {
	return func(g *ImageGenerator) { g.metrics = m }
}

// WithTracer は OpenTelemetry の Tracer を差し替えます。
func WithTracer(t trace.Tracer) Option {
	return func(g *ImageGenerator) { g.tracer = t }
}

// NewImageGenerator は依存関係を注入して ImageGenerator を初期化します。
func NewImageGenerator(httpClient HTTPDoer, proxy *adapters.Proxy, opts ...Option) (*ImageGenerator, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if proxy == nil {
		return nil, fmt.Errorf("proxy is required")
	}

	g := &ImageGenerator{
		httpClient: httpClient,
		proxy:      proxy,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateImage は 1 枚の画像を生成します。どの経路でも必ず GenerationResult を返し、
// エラーやパニックを呼び出し側に伝播させません。
func (g *ImageGenerator) GenerateImage(ctx context.Context, cfg domain.ProviderConfig, req domain.GenerationRequest) (result domain.GenerationResult) {
	dialect := DialectFor(cfg.Provider)
	logger := slog.With("request_id", uuid.NewString(), "provider", dialect.Name(), "model", cfg.Model)

	ctx, span := g.tracer.Start(ctx, "generator.GenerateImage", trace.WithAttributes(
		attribute.String("image.provider", string(dialect.Name())),
		attribute.String("image.model", cfg.Model),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "画像生成中に予期しないパニックが発生しました", "panic", r)
			result = domain.Failed(panicMessage(r))
		}
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
		g.metrics.observeRequest(dialect.Name(), result.Success, time.Since(start))
	}()

	// 設定不備は通信前に失敗させる
	if !cfg.IsConfigured() {
		logger.WarnContext(ctx, "画像生成APIが未設定です")
		return domain.Failed(ErrNotConfigured.Error())
	}

	ext, err := g.generate(ctx, logger, dialect, cfg, req)
	g.metrics.observeTiers(dialect.Name(), ext.Attempts)
	if err != nil {
		logger.WarnContext(ctx, "画像生成に失敗しました", "error", err, "tiers_tried", len(ext.Attempts))
		return domain.Failed(err.Error())
	}

	span.SetAttributes(attribute.String("image.tier", ext.Tier))
	logger.InfoContext(ctx, "画像を取得しました", "tier", ext.Tier, "base64_len", len(ext.Image))
	return domain.Succeeded(ext.Image)
}

func (g *ImageGenerator) generate(ctx context.Context, logger *slog.Logger, dialect Dialect, cfg domain.ProviderConfig, req domain.GenerationRequest) (Extraction, error) {
	req = g.resolveReference(ctx, logger, req)

	apiReq, err := dialect.BuildRequest(cfg, req)
	if err != nil {
		return Extraction{}, err
	}

	raw, err := g.executeRequest(ctx, logger, apiReq)
	if err != nil {
		return Extraction{}, err
	}

	return Extract(ctx, dialect, raw)
}

// resolveReference は ReferenceURL を base64 に解決します。失敗してもテキストのみで続行するのだ。
func (g *ImageGenerator) resolveReference(ctx context.Context, logger *slog.Logger, req domain.GenerationRequest) domain.GenerationRequest {
	if req.ReferenceImage != "" || req.ReferenceURL == "" {
		return req
	}
	if g.references == nil {
		logger.WarnContext(ctx, "参照画像のローダーが未設定です。テキストのみで続行します", "url", req.ReferenceURL)
		return req
	}

	b64, err := g.references.Load(ctx, req.ReferenceURL)
	if err != nil {
		logger.WarnContext(ctx, "参照画像の読み込みに失敗しました。テキストのみで続行します", "url", req.ReferenceURL, "error", err)
		return req
	}
	req.ReferenceImage = b64
	return req
}

// panicMessage は error 型のパニックだけメッセージを使い、それ以外は汎用文言にします。
func panicMessage(r any) string {
	if err, ok := r.(error); ok && err.Error() != "" {
		return err.Error()
	}
	return domain.DefaultFailureMessage
}
