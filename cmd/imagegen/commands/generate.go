package commands

import (
	"github.com/spf13/cobra"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

var (
	genPrompt      string
	genAspectRatio string
	genResolution  string
	genReference   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one image and print the result as JSON",
	Long: `Send one streaming generation request and print the GenerationResult.

Examples:
  imagegen generate --prompt "a cat on a windowsill"
  imagegen generate --prompt "same style, at night" --reference ./ref.png --aspect-ratio 16:9
  imagegen generate --prompt "poster" --reference https://cdn.example.com/ref.jpg`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genPrompt, "prompt", "", "Text prompt (required)")
	generateCmd.Flags().StringVar(&genAspectRatio, "aspect-ratio", "", "Aspect ratio, e.g. 1:1, 16:9")
	generateCmd.Flags().StringVar(&genResolution, "resolution", "", "Resolution hint, e.g. 1K, 2K")
	generateCmd.Flags().StringVar(&genReference, "reference", "", "Reference image: local file or URL")
	_ = generateCmd.MarkFlagRequired("prompt")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	req := domain.GenerationRequest{
		Prompt:      genPrompt,
		AspectRatio: genAspectRatio,
		Resolution:  genResolution,
	}
	b64, local, err := readLocalReference(genReference)
	if err != nil {
		return err
	}
	if local {
		req.ReferenceImage = b64
	} else {
		req.ReferenceURL = genReference
	}

	result := gen.GenerateImage(cmd.Context(), cfg.Image, req)
	return writeJSON(cmd.OutOrStdout(), result)
}
