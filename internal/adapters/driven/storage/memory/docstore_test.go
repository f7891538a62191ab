package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

func metaChunk(id string, page int, sectionType domain.SectionType) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: "doc1",
		Content:    "content " + id,
		Metadata: domain.ChunkMetadata{
			PageNumber:  page,
			SectionType: sectionType,
		},
	}
}

func TestDocStore_DocumentLifecycle(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()

	_, err := store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc1", Filename: "a.pdf"}))

	doc, err := store.GetDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", doc.Filename)

	require.NoError(t, store.DeleteDocument(ctx, "doc1"))
	_, err = store.GetDocument(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocStore_ReplaceChunksIsAtomicSwap(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()

	require.NoError(t, store.ReplaceChunks(ctx, "doc1", []domain.Chunk{
		metaChunk("c1", 1, domain.SectionOther),
		metaChunk("c2", 2, domain.SectionOther),
	}))
	require.NoError(t, store.ReplaceChunks(ctx, "doc1", []domain.Chunk{
		metaChunk("c3", 1, domain.SectionOther),
	}))

	chunks, err := store.GetChunks(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c3", chunks[0].ID)
}

func TestDocStore_GetChunk(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()
	require.NoError(t, store.ReplaceChunks(ctx, "doc1", []domain.Chunk{metaChunk("c1", 1, domain.SectionOther)}))

	chunk, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "content c1", chunk.Content)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocStore_GetAdjacentChunks(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		metaChunk("self", 5, domain.SectionMethodology),
		metaChunk("near", 6, domain.SectionMethodology),
		metaChunk("far", 7, domain.SectionMethodology),
		metaChunk("wrong-type", 5, domain.SectionResults),
	}
	require.NoError(t, store.ReplaceChunks(ctx, "doc1", chunks))

	adjacent, err := store.GetAdjacentChunks(ctx, &chunks[0], 1)
	require.NoError(t, err)
	require.Len(t, adjacent, 1)
	assert.Equal(t, "near", adjacent[0].ID)
}

func TestDocStore_Stats(t *testing.T) {
	store := NewDocStore()
	ctx := context.Background()
	require.NoError(t, store.ReplaceChunks(ctx, "doc1", []domain.Chunk{
		metaChunk("c1", 1, domain.SectionAbstract),
		metaChunk("c2", 1, domain.SectionAbstract),
		metaChunk("c3", 3, domain.SectionResults),
	}))

	stats, err := store.Stats(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.SectionDistribution[domain.SectionAbstract])
	assert.Equal(t, 2, stats.PageDistribution[1])
	assert.Positive(t, stats.AverageChunkSize)
}

func TestFingerprintStore_Lifecycle(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, &domain.Fingerprint{DocumentID: "doc1", ContentHash: "h1"}))

	fp, err := store.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "h1", fp.ContentHash)

	require.NoError(t, store.Delete(ctx, "doc1"))
	_, err = store.Get(ctx, "doc1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCacheStore_Lifecycle(t *testing.T) {
	store := NewCacheStore()
	ctx := context.Background()

	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, "k", []float32{1, 2}, "model-a"))

	vec, model, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, "model-a", model)
	assert.Equal(t, 1, store.Len())
}
