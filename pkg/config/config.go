package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shouni/image-stream-kit/pkg/adapters"
	"github.com/shouni/image-stream-kit/pkg/domain"
)

// 環境変数名
const (
	EnvProvider    = "IMAGE_API_PROVIDER"
	EnvBaseURL     = "IMAGE_API_BASE_URL"
	EnvModel       = "IMAGE_API_MODEL"
	EnvAPIKey      = "IMAGE_API_KEY"
	EnvProxyMode   = "IMAGE_PROXY_MODE"
	EnvProxyHost   = "IMAGE_PROXY_HOST"
	EnvTimeout     = "IMAGE_TIMEOUT"
	EnvConcurrency = "IMAGE_CONCURRENCY"
	EnvLogLevel    = "IMAGE_LOG_LEVEL"
)

// DefaultConcurrency は一括生成の既定の同時実行数です。
const DefaultConcurrency = 3

// Config は CLI とライブラリ利用者向けの設定です。
type Config struct {
	Image domain.ProviderConfig `yaml:"image"`
	Proxy adapters.ProxyConfig  `yaml:"proxy"`
	// Timeout が 0 なら HTTP クライアントにタイムアウトを設定しない
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	LogLevel    string        `yaml:"log_level"`
}

// Default は既定値の Config を返します。
func Default() *Config {
	return &Config{
		Image:       domain.ProviderConfig{Provider: domain.ProviderOpenAI},
		Proxy:       adapters.ProxyConfig{Mode: adapters.ProxyRemote, Host: adapters.DefaultProxyHost},
		Concurrency: DefaultConcurrency,
		LogLevel:    "info",
	}
}

// Load は 既定値 → YAML → .env → 環境変数 の順に設定を重ねて返します。
// path や envFile が空、またはファイルが存在しない場合はその段を飛ばします。
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(".env ファイルの読み込みに失敗しました: %w", err)
		}
		if m != nil {
			dotenv = m
		}
	}

	// プロセスの環境変数が .env より優先される
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("設定ファイルが見つかりません。既定値を使います", "path", path)
			return nil
		}
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました (%s): %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvProvider); ok {
		c.Image.Provider = domain.ParseProvider(v)
	}
	if v, ok := lookup(EnvBaseURL); ok {
		c.Image.BaseURL = v
	}
	if v, ok := lookup(EnvModel); ok {
		c.Image.Model = v
	}
	if v, ok := lookup(EnvAPIKey); ok {
		c.Image.APIKey = v
	}
	if v, ok := lookup(EnvProxyMode); ok {
		c.Proxy.Mode = adapters.ProxyMode(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvProxyHost); ok {
		c.Proxy.Host = v
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s の値が不正です: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvConcurrency); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s の値が不正です: %w", EnvConcurrency, err)
		}
		c.Concurrency = n
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate は値の整合性を検証します。API キーの有効性までは確認しません。
func (c *Config) Validate() error {
	// YAML で書かれた provider も正規化する
	c.Image.Provider = domain.ParseProvider(string(c.Image.Provider))

	switch c.Proxy.Mode {
	case "", adapters.ProxyRemote, adapters.ProxySameOrigin, adapters.ProxyDirect:
	default:
		return fmt.Errorf("未知のプロキシモードです: %q", c.Proxy.Mode)
	}
	if c.Proxy.Mode == adapters.ProxySameOrigin && strings.TrimSpace(c.Proxy.Host) == "" {
		return fmt.Errorf("same-origin モードには proxy.host（アプリのオリジン）が必要です")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout は 0 以上である必要があります: %s", c.Timeout)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency は 0 以上である必要があります: %d", c.Concurrency)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level は LogLevel を slog.Level に変換します。空なら Info です。
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("未知のログレベルです: %q", c.LogLevel)
	}
	return level, nil
}
