package adapters

import (
	"fmt"
	"net/url"
	"strings"
)

// ProxyMode は外部 API への中継方法です。
type ProxyMode string

const (
	// ProxyRemote は既知ホストの /proxy エンドポイント経由で中継します。
	ProxyRemote ProxyMode = "remote"
	// ProxySameOrigin はアプリと同一オリジンの /proxy エンドポイント経由で中継します。
	ProxySameOrigin ProxyMode = "same-origin"
	// ProxyDirect は中継せずにターゲットへ直接送ります。
	ProxyDirect ProxyMode = "direct"
)

const (
	// DefaultProxyHost は ProxyRemote で Host 未指定のときの中継先です。
	DefaultProxyHost = "https://nano-info.aizhi.site"
	proxyPath        = "/proxy"
)

// ProxyConfig は Proxy の構築パラメータです。
// Host は remote では中継ホスト、same-origin ではアプリのオリジンを指します。
type ProxyConfig struct {
	Mode ProxyMode `yaml:"mode" json:"mode"`
	Host string    `yaml:"host" json:"host"`
}

// Proxy はターゲット URL を中継エンドポイントのクエリパラメータに埋め込みます。
// 中継先はリクエストとレスポンスをそのまま転送する前提です（Authorization ヘッダ含む）。
type Proxy struct {
	mode ProxyMode
	base string
}

// NewProxy は設定値から Proxy を生成します。Mode が空なら remote として扱うのだ。
func NewProxy(cfg ProxyConfig) (*Proxy, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ProxyRemote
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")

	switch mode {
	case ProxyRemote:
		if host == "" {
			host = DefaultProxyHost
		}
	case ProxySameOrigin:
		if host == "" {
			return nil, fmt.Errorf("same-origin proxy requires the application origin")
		}
	case ProxyDirect:
		host = ""
	default:
		return nil, fmt.Errorf("unknown proxy mode: %q", cfg.Mode)
	}

	if host != "" {
		if u, err := url.Parse(host); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy host: %q", cfg.Host)
		}
	}

	return &Proxy{mode: mode, base: host}, nil
}

// Mode は構築時に確定した中継方法を返します。
func (p *Proxy) Mode() ProxyMode {
	return p.mode
}

// Wrap は実際にリクエストを送る URL を返します。
func (p *Proxy) Wrap(target string) string {
	if p == nil || p.mode == ProxyDirect {
		return target
	}
	return p.base + proxyPath + "?" + url.Values{"url": {target}}.Encode()
}
