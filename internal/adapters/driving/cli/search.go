package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

var (
	searchDocID     string
	searchStrategy  string
	searchLimit     int
	searchThreshold float64
	searchSections  []string
	searchPageStart int
	searchPageEnd   int
	searchRerank    bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search an indexed document",
	Long: `Searches one indexed document using the selected strategy.

Strategies:
  semantic    - vector similarity over chunk embeddings
  lexical     - keyword term overlap, no embeddings needed
  hybrid      - weighted fusion of semantic and lexical scores
  contextual  - semantic hits widened with adjacent chunks`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDocID, "doc", "d", "", "document ID to search (required)")
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "hybrid", "search strategy")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum similarity score")
	searchCmd.Flags().StringSliceVar(&searchSections, "sections", nil, "restrict to section types (e.g. abstract,results)")
	searchCmd.Flags().IntVar(&searchPageStart, "page-start", 0, "first page of the search range")
	searchCmd.Flags().IntVar(&searchPageEnd, "page-end", 0, "last page of the search range")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "apply length-penalty re-ranking")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")

	if err := searchCmd.MarkFlagRequired("doc"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	strategy := domain.SearchStrategy(searchStrategy)
	if !strategy.IsValid() {
		return fmt.Errorf("unknown strategy %q", searchStrategy)
	}

	opts := domain.SearchOptions{
		Limit:               searchLimit,
		SimilarityThreshold: searchThreshold,
		Rerank:              searchRerank,
	}

	for _, s := range searchSections {
		st := domain.SectionType(strings.TrimSpace(s))
		if !st.IsValid() {
			return fmt.Errorf("unknown section type %q", s)
		}
		opts.SectionTypes = append(opts.SectionTypes, st)
	}

	if searchPageStart > 0 || searchPageEnd > 0 {
		opts.Pages = &domain.PageRange{Start: searchPageStart, End: searchPageEnd}
	}

	ctx := context.Background()
	results, err := searchService.Search(ctx, query, searchDocID, strategy, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchResults(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchResults(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]

		header := fmt.Sprintf("[%d] p.%d %s", r.Rank, r.Chunk.Metadata.PageNumber, r.Chunk.Metadata.SectionTitle)
		cmd.Printf("  %s %s\n", sectionStyle.Render(header), scoreStyle.Render(fmt.Sprintf("(%.3f)", r.Similarity)))

		cmd.Printf("      %s\n", snippet(r.Chunk.Content, 160))

		for _, expl := range r.Explanations {
			cmd.Printf("      %s\n", mutedStyle.Render(expl))
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d results\n", len(results))
	return nil
}

// snippet collapses whitespace and truncates content for display.
func snippet(content string, maxLen int) string {
	s := strings.Join(strings.Fields(content), " ")
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
