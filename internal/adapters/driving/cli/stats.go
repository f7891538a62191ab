package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats [doc-id]",
	Short: "Show index statistics for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	stats, err := indexingService.DocumentStats(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Document %s", docID)))
	cmd.Println()
	cmd.Printf("  Chunks:          %d\n", stats.TotalChunks)
	cmd.Printf("  Avg chunk size:  %.0f chars\n", stats.AverageChunkSize)

	if len(stats.SectionDistribution) > 0 {
		cmd.Println("\n  Chunks per section type:")
		types := make([]string, 0, len(stats.SectionDistribution))
		for st := range stats.SectionDistribution {
			types = append(types, string(st))
		}
		sort.Strings(types)
		for _, st := range types {
			cmd.Printf("    %-14s %d\n", st, stats.SectionDistribution[domain.SectionType(st)])
		}
	}

	if len(stats.PageDistribution) > 0 {
		pages := make([]int, 0, len(stats.PageDistribution))
		for p := range stats.PageDistribution {
			pages = append(pages, p)
		}
		sort.Ints(pages)

		cmd.Println("\n  Chunks per page:")
		for _, p := range pages {
			cmd.Printf("    p.%-4d %d\n", p, stats.PageDistribution[p])
		}
	}

	return nil
}
