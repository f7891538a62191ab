package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperlens/internal/core/domain"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "paperlens", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("data-dir"))

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"index", "search", "ask", "stats", "delete", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { version = "dev" })

	out, err := executeCommand(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "paperlens version 1.2.3")
}

func TestStatsCommand(t *testing.T) {
	indexing := &fakeIndexingService{stats: &domain.DocumentStats{
		TotalChunks:      42,
		AverageChunkSize: 512.4,
		SectionDistribution: map[domain.SectionType]int{
			domain.SectionMethodology: 30,
			domain.SectionAbstract:    12,
		},
		PageDistribution: map[int]int{1: 12, 2: 30},
	}}
	setupTestServices(t, Services{Indexing: indexing})

	out, err := executeCommand(t, "stats", "doc1")

	require.NoError(t, err)
	assert.Equal(t, "doc1", indexing.lastDocID)
	assert.Contains(t, out, "Chunks:          42")
	assert.Contains(t, out, "Avg chunk size:  512 chars")
	assert.Contains(t, out, "abstract")
	assert.Contains(t, out, "methodology")
	assert.Contains(t, out, "p.1")
}

func TestStatsCommand_NotConfigured(t *testing.T) {
	setupTestServices(t, Services{})

	_, err := executeCommand(t, "stats", "doc1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing service not configured")
}

func TestDeleteCommand(t *testing.T) {
	docs := memory.NewDocStore()
	ctx := context.Background()
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "doc1"}))
	setupTestServices(t, Services{Documents: docs})

	out, err := executeCommand(t, "delete", "doc1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc1 removed from index.")

	_, err = docs.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCommand_NotConfigured(t *testing.T) {
	setupTestServices(t, Services{})

	_, err := executeCommand(t, "delete", "doc1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document store not configured")
}
