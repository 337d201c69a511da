package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/image-stream-kit/pkg/adapters"
	"github.com/shouni/image-stream-kit/pkg/config"
	"github.com/shouni/image-stream-kit/pkg/generator"
	"github.com/shouni/image-stream-kit/pkg/imgutil"
)

// referenceCacheTTL はプロセス内で同じ参照画像を使い回す期間です。
const referenceCacheTTL = 10 * time.Minute

func newGenerator(c *config.Config) (*generator.ImageGenerator, error) {
	proxy, err := adapters.NewProxy(c.Proxy)
	if err != nil {
		return nil, err
	}

	// Timeout が 0 のときは無制限のまま。httpkit 既定のタイムアウトは注入したクライアントで上書きされる
	httpClient := httpkit.New(c.Timeout, httpkit.WithHTTPClient(&http.Client{Timeout: c.Timeout}))
	loader := adapters.NewReferenceLoader(httpClient, nil, cache.New(referenceCacheTTL, 2*referenceCacheTTL), referenceCacheTTL)

	return generator.NewImageGenerator(httpClient, proxy, generator.WithReferenceResolver(loader))
}

// readLocalReference はローカルの画像ファイルを JPEG の base64 にします。
// ファイルが存在しなければ ok=false を返し、呼び出し側は URL として扱うのだ。
func readLocalReference(path string) (b64 string, ok bool, err error) {
	if path == "" || strings.Contains(path, "://") {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read reference image: %w", err)
	}
	jpg, err := imgutil.EnsureJPEG(data, imgutil.DefaultJPEGQuality)
	if err != nil {
		return "", false, fmt.Errorf("failed to convert reference image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(jpg), true, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
