package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/assist"
)

var digestCmd = &cobra.Command{
	Use:   "digest <org-id>",
	Short: "Draft an approver digest of pending exception requests",
	Long: `Draft an approver digest of pending exception requests.
Collects the organization's pending requests and asks the configured
AI provider (ASSIST_PROVIDER=openai or gemini) to summarize them for
the approver. The digest is a draft; decisions still go through the
decide endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
}

// buildProvider picks the assist provider from configuration.
func buildProvider(ctx context.Context, d *deps) (assist.Provider, error) {
	switch d.cfg.Assist.Provider {
	case "openai":
		if d.cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return assist.NewOpenAIProvider(d.cfg.OpenAI.Token), nil
	case "gemini":
		if d.cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		return assist.NewGeminiProvider(ctx, d.cfg.Gemini.APIKey)
	case "":
		return nil, errors.New("ASSIST_PROVIDER environment variable is required (openai or gemini)")
	default:
		return nil, fmt.Errorf("unknown assist provider %q", d.cfg.Assist.Provider)
	}
}

func runDigest(cmd *cobra.Command, args []string) error {
	orgID := args[0]
	ctx := context.Background()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	provider, err := buildProvider(ctx, d)
	if err != nil {
		return err
	}

	items, err := assist.BuildPendingItems(ctx, d.excStore, d.directory, orgID)
	if err != nil {
		return err
	}
	fmt.Printf("Summarizing %d pending requests with %s...\n\n", len(items), provider.Name())

	summary, err := provider.SummarizeExceptions(ctx, items)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}
	fmt.Println(summary)

	if usage := provider.GetUsage(); usage != nil && usage.InputTokens > 0 {
		fmt.Printf("\nTokens: %d in, %d out\n", usage.InputTokens, usage.OutputTokens)
	}
	return nil
}
