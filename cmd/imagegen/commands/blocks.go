package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

var blocksFile string

// blocksSpec は blocks サブコマンドの入力ファイルです。
type blocksSpec struct {
	Style       string                `yaml:"style"`
	AspectRatio string                `yaml:"aspect_ratio"`
	Resolution  string                `yaml:"resolution"`
	Reference   string                `yaml:"reference"`
	Blocks      []domain.ContentBlock `yaml:"blocks"`
}

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "Generate one image per content block",
	Long: `Read titled text blocks from a YAML file and generate one image for each,
running up to the configured concurrency at once. Prints a JSON array of results
in input order.

Example file:
  style: watercolor, soft light
  aspect_ratio: "16:9"
  reference: ./style.png
  blocks:
    - title: Chapter 1
      text: A quiet harbor at dawn.`,
	RunE: runBlocks,
}

func init() {
	rootCmd.AddCommand(blocksCmd)

	blocksCmd.Flags().StringVar(&blocksFile, "file", "", "Blocks YAML file (required)")
	_ = blocksCmd.MarkFlagRequired("file")
}

func loadBlocksSpec(path string) (*blocksSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocks file: %w", err)
	}
	var spec blocksSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse blocks file: %w", err)
	}
	if len(spec.Blocks) == 0 {
		return nil, fmt.Errorf("no blocks in %s", path)
	}
	return &spec, nil
}

func runBlocks(cmd *cobra.Command, _ []string) error {
	spec, err := loadBlocksSpec(blocksFile)
	if err != nil {
		return err
	}

	// ブロック用の参照画像はローカルファイルのみ対応
	reference, _, err := readLocalReference(spec.Reference)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	reqs := make([]domain.BlockImageRequest, len(spec.Blocks))
	for i, b := range spec.Blocks {
		reqs[i] = domain.BlockImageRequest{
			Block:          b,
			StylePrompt:    spec.Style,
			AspectRatio:    spec.AspectRatio,
			Resolution:     spec.Resolution,
			ReferenceImage: reference,
		}
	}

	results := gen.GenerateBlocks(cmd.Context(), cfg.Image, reqs, cfg.Concurrency)
	return writeJSON(cmd.OutOrStdout(), results)
}
