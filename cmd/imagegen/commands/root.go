package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shouni/image-stream-kit/pkg/config"
)

var (
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "imagegen",
	Short: "Streaming image generation client",
	Long: `Generate images through Gemini or OpenAI-compatible streaming endpoints.

Settings are layered: defaults, then the YAML config file, then the .env file,
then IMAGE_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	level, err := loaded.Level()
	if err != nil {
		return err
	}

	// 結果の JSON は stdout、ログは stderr に分ける
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	cfg = loaded
	return nil
}
