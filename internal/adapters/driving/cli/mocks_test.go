package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driving"
)

// fakeSearchService records the last query and returns canned results.
type fakeSearchService struct {
	results      []domain.SearchResult
	err          error
	lastQuery    string
	lastDocID    string
	lastStrategy domain.SearchStrategy
	lastOpts     domain.SearchOptions
}

func (f *fakeSearchService) Search(_ context.Context, query, documentID string, strategy domain.SearchStrategy, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	f.lastQuery = query
	f.lastDocID = documentID
	f.lastStrategy = strategy
	f.lastOpts = opts
	return f.results, f.err
}

// fakeIndexingService returns canned chunks and stats.
type fakeIndexingService struct {
	chunks    []domain.Chunk
	needs     bool
	stats     *domain.DocumentStats
	err       error
	lastDocID string
	lastOpts  driving.ProcessOptions
}

func (f *fakeIndexingService) ProcessDocument(_ context.Context, documentID string, _ []domain.ParsedPage, opts driving.ProcessOptions) ([]domain.Chunk, error) {
	f.lastDocID = documentID
	f.lastOpts = opts
	return f.chunks, f.err
}

func (f *fakeIndexingService) NeedsReprocessing(_ context.Context, documentID string, _ []domain.ParsedPage) (bool, error) {
	f.lastDocID = documentID
	return f.needs, f.err
}

func (f *fakeIndexingService) DocumentStats(_ context.Context, documentID string) (*domain.DocumentStats, error) {
	f.lastDocID = documentID
	return f.stats, f.err
}

// fakeContextService returns a canned window.
type fakeContextService struct {
	window   *domain.ContextWindow
	err      error
	lastOpts domain.ContextOptions
}

func (f *fakeContextService) Optimize(_ context.Context, _ []domain.SearchResult, _ domain.ConversationState, opts domain.ContextOptions) (*domain.ContextWindow, error) {
	f.lastOpts = opts
	return f.window, f.err
}

// fakeExtractor returns canned pages.
type fakeExtractor struct {
	pages    []domain.ParsedPage
	err      error
	lastPath string
}

func (f *fakeExtractor) ExtractPages(_ context.Context, path string) ([]domain.ParsedPage, error) {
	f.lastPath = path
	return f.pages, f.err
}

// setupTestServices injects fakes and restores empty services afterwards.
func setupTestServices(t *testing.T, s Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(Services{}) })
}

// executeCommand runs the root command with args, capturing output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
