package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

var (
	askDocID      string
	askLevel      string
	askMaxTokens  int
	askFocus      []string
	askCandidates int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Build an optimized context window for a question",
	Long: `Runs a hybrid search for the question and optimizes the results into
a token-bounded context window, compressed for the reader's education
level and annotated with citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDocID, "doc", "d", "", "document ID to query (required)")
	askCmd.Flags().StringVar(&askLevel, "level", string(domain.LevelUndergraduate), "reader education level")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "token budget for the context window")
	askCmd.Flags().StringSliceVar(&askFocus, "focus", nil, "topics to boost")
	askCmd.Flags().IntVar(&askCandidates, "candidates", 20, "search results fed to the optimizer")

	if err := askCmd.MarkFlagRequired("doc"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if searchService == nil || contextService == nil {
		return errors.New("context service not configured")
	}

	ctx := context.Background()

	results, err := searchService.Search(ctx, question, askDocID, domain.StrategyHybrid, domain.SearchOptions{
		Limit: askCandidates,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	state := domain.ConversationState{
		FocusAreas: askFocus,
		Level:      domain.EducationLevel(askLevel),
	}

	window, err := contextService.Optimize(ctx, results, state, domain.ContextOptions{
		MaxTokens:         askMaxTokens,
		PreserveCoherence: true,
	})
	if err != nil {
		return fmt.Errorf("context optimization failed: %w", err)
	}

	if len(window.Chunks) == 0 {
		cmd.Println("No relevant context found.")
		return nil
	}

	cmd.Println(titleStyle.Render("Context:"))
	cmd.Println()
	for i := range window.Chunks {
		chunk := &window.Chunks[i]
		cmd.Printf("  %s\n", sectionStyle.Render(fmt.Sprintf("p.%d %s", chunk.Metadata.PageNumber, chunk.Metadata.SectionTitle)))
		cmd.Printf("  %s\n\n", snippet(chunk.Content, 240))
	}

	cmd.Println(titleStyle.Render("Citations:"))
	for _, c := range window.Citations {
		cmd.Printf("  p.%d chunk %s %s\n", c.PageNumber, c.ChunkID,
			mutedStyle.Render(fmt.Sprintf("(relevance %.2f)", c.Relevance)))
	}
	cmd.Println()

	cmd.Printf("Tokens: %d  Compression: %.0f%%\n", window.TotalTokens, window.CompressionRatio*100)
	return nil
}
