package services

import (
	"context"
	"sync"
)

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors come from the vectors map by exact text, falling back to
// fallback. Call counts are tracked for idempotency assertions.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	version  string

	embedCalls int
	batchCalls int
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
		version:  "v1",
	}
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if vec, ok := m.vectors[text]; ok {
		return vec
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.embedCalls++
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batchCalls++

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.fallback)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Version() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) batchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}
