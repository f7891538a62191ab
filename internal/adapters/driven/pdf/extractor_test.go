package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

func TestExtractPages_MissingFile(t *testing.T) {
	_, err := NewExtractor().ExtractPages(context.Background(), "/nonexistent/paper.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
	assert.Contains(t, err.Error(), "/nonexistent/paper.pdf")
}

func TestExtractPages_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a PDF"), 0600))

	_, err := NewExtractor().ExtractPages(context.Background(), path)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParseFailure)
}
