package adapters

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/image-stream-kit/pkg/imgutil"
)

const cacheKeyReference = "reference_b64:"

// ImageCacher は参照画像のキャッシュ操作を抽象化するインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// ReferenceLoader は参照画像の URL を、リクエストに載せられる base64 JPEG に変換します。
type ReferenceLoader struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
	cache      ImageCacher
	cacheTTL   time.Duration
	quality    int
}

// NewReferenceLoader は依存関係を注入して ReferenceLoader を生成します。
// reader が nil なら gs:// は扱わず、cache が nil ならキャッシュなしで動作します。
func NewReferenceLoader(httpClient httpkit.ClientInterface, reader remoteio.InputReader, cache ImageCacher, cacheTTL time.Duration) *ReferenceLoader {
	return &ReferenceLoader{
		httpClient: httpClient,
		reader:     reader,
		cache:      cache,
		cacheTTL:   cacheTTL,
		quality:    imgutil.DefaultJPEGQuality,
	}
}

// Load は参照画像を取得して base64 文字列（data URI なし）で返します。
func (l *ReferenceLoader) Load(ctx context.Context, rawURL string) (string, error) {
	key := cacheKeyReference + rawURL
	if l.cache != nil {
		if cached, found := l.cache.Get(key); found {
			if b64, ok := cached.(string); ok {
				return b64, nil
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "url", rawURL, "type", fmt.Sprintf("%T", cached))
		}
	}

	data, err := l.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if mimeType := http.DetectContentType(data); !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("参照画像のMIMEタイプが画像ではありません: %s", mimeType)
	}

	jpg, err := imgutil.EnsureJPEG(data, l.quality)
	if err != nil {
		return "", fmt.Errorf("参照画像のJPEG変換に失敗しました: %w", err)
	}

	b64 := base64.StdEncoding.EncodeToString(jpg)
	if l.cache != nil {
		l.cache.Set(key, b64, l.cacheTTL)
	}
	return b64, nil
}

func (l *ReferenceLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "gs://") {
		if l.reader == nil {
			return nil, fmt.Errorf("gs:// の参照画像を読み込む reader が設定されていません")
		}
		rc, err := l.reader.Open(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if l.httpClient == nil {
		return nil, fmt.Errorf("参照画像を取得する httpClient が設定されていません")
	}
	// SSRF 対策。FetchBytes 側の検証を無効にしたクライアントでも必ず確認する
	if safe, err := l.httpClient.IsSafeURL(rawURL); !safe {
		if err == nil {
			err = fmt.Errorf("blocked: %s", rawURL)
		}
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}
	return l.httpClient.FetchBytes(ctx, rawURL)
}
