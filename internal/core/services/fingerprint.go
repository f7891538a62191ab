package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// dateBucketLayout groups the content hash by month. A document
// re-uploaded within the same bucket with identical text hashes the
// same; the bucket bounds how long a stale extraction can survive.
const dateBucketLayout = "2006-01"

// FingerprintTracker decides whether a document needs a full
// reprocessing pass. Reprocessing is all-or-nothing per document:
// there is no partial re-embedding path.
type FingerprintTracker struct {
	store    driven.FingerprintStore
	embedder driven.EmbeddingService

	// now is swappable for tests.
	now func() time.Time
}

// NewFingerprintTracker creates a tracker backed by the given store.
func NewFingerprintTracker(store driven.FingerprintStore, embedder driven.EmbeddingService) *FingerprintTracker {
	return &FingerprintTracker{
		store:    store,
		embedder: embedder,
		now:      time.Now,
	}
}

// ContentHash hashes the full extracted text together with the source
// path and the current date bucket.
func (t *FingerprintTracker) ContentHash(pages []domain.ParsedPage, sourcePath string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
		b.WriteByte('\n')
	}
	return hashText(b.String(), sourcePath, t.now().UTC().Format(dateBucketLayout))
}

// StructureHash hashes the section count, types and titles of the
// analyzed tree, in document order.
func (t *FingerprintTracker) StructureHash(sections []*domain.Section) string {
	var count int
	var parts []string

	for _, root := range sections {
		root.Walk(func(s *domain.Section) {
			count++
			parts = append(parts, string(s.Type), s.Title)
		})
	}

	return hashText(append([]string{strconv.Itoa(count)}, parts...)...)
}

// embeddingVersion identifies the active model and generation epoch.
func (t *FingerprintTracker) embeddingVersion() string {
	if t.embedder == nil {
		return ""
	}
	return t.embedder.Version()
}

// NeedsReprocessing reports whether the document must be re-chunked
// and re-embedded: true when no fingerprint exists or when any of the
// content hash, structure hash or embedding version changed.
func (t *FingerprintTracker) NeedsReprocessing(ctx context.Context, documentID, contentHash, structureHash string) (bool, error) {
	stored, err := t.store.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("No fingerprint for document %s, processing required", documentID)
			return true, nil
		}
		return false, fmt.Errorf("get fingerprint: %w", err)
	}

	current := &domain.Fingerprint{
		DocumentID:       documentID,
		ContentHash:      contentHash,
		StructureHash:    structureHash,
		EmbeddingVersion: t.embeddingVersion(),
	}

	if stored.Matches(current) {
		logger.Debug("Fingerprint unchanged for document %s", documentID)
		return false, nil
	}

	logger.Info("Fingerprint changed for document %s (content=%t structure=%t model=%t)",
		documentID,
		stored.ContentHash != current.ContentHash,
		stored.StructureHash != current.StructureHash,
		stored.EmbeddingVersion != current.EmbeddingVersion)
	return true, nil
}

// Commit overwrites the stored fingerprint after a processing pass has
// fully committed its chunks. Never call this before the chunk
// transaction succeeds.
func (t *FingerprintTracker) Commit(ctx context.Context, documentID, contentHash, structureHash string, chunkCount int) error {
	fp := &domain.Fingerprint{
		DocumentID:       documentID,
		ContentHash:      contentHash,
		StructureHash:    structureHash,
		EmbeddingVersion: t.embeddingVersion(),
		LastProcessed:    t.now().UTC(),
		ChunkCount:       chunkCount,
	}

	if err := t.store.Save(ctx, fp); err != nil {
		return fmt.Errorf("save fingerprint: %w", err)
	}
	return nil
}
