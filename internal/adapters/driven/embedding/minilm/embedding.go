// Package minilm provides an embedding service adapter for the local
// sentence-transformers HTTP service.
package minilm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultModel   = "all-MiniLM-L6-v2"
	DefaultTimeout = 60 * time.Second

	// DefaultBatchSize matches the service-side batch cap.
	DefaultBatchSize = 32

	// DefaultEpoch is the generation epoch folded into Version.
	// Bump it to force re-embedding without changing models.
	DefaultEpoch = "1"
)

// modelDimensions lists known sentence-transformer models.
var modelDimensions = map[string]int{
	"all-MiniLM-L6-v2":  384,
	"all-MiniLM-L12-v2": 384,
	"all-mpnet-base-v2": 768,
}

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the service base URL (default: http://localhost:5000).
	BaseURL string

	// Model is the embedding model (default: all-MiniLM-L6-v2).
	Model string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// BatchSize caps texts per request (default: 32).
	BatchSize int

	// Epoch is the generation epoch for Version (default: "1").
	Epoch string

	// RequestsPerSecond rate-limits outgoing requests; 0 disables.
	RequestsPerSecond float64
}

// EmbeddingService generates embeddings via the local service.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	batchSize  int
	epoch      string
	dimensions int
	limiter    *rate.Limiter
}

// embeddingRequest is the service request format.
type embeddingRequest struct {
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
	BatchSize int      `json:"batch_size,omitempty"`
}

// embeddingResponse is the service response format.
type embeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// NewEmbeddingService creates an adapter for the local service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Epoch == "" {
		cfg.Epoch = DefaultEpoch
	}

	dimensions, ok := modelDimensions[cfg.Model]
	if !ok {
		dimensions = 384
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		epoch:      cfg.Epoch,
		dimensions: dimensions,
		limiter:    limiter,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("minilm: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the
// input into service-sized batches.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// embedBatch performs one request against the service.
func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("minilm: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(embeddingRequest{Texts: texts, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("minilm: marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("minilm: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrEmbeddingUnavailable, err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned %d: %s", domain.ErrEmbeddingUnavailable, resp.StatusCode, parsed.Message)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("minilm: expected %d embeddings, got %d", len(texts), len(parsed.Embeddings))
	}

	vectors := make([][]float32, len(parsed.Embeddings))
	for i, vec := range parsed.Embeddings {
		converted := make([]float32, len(vec))
		for j, v := range vec {
			converted[j] = float32(v)
		}
		vectors[i] = converted
	}

	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Version hashes the model name and generation epoch.
func (s *EmbeddingService) Version() string {
	sum := sha256.Sum256([]byte(s.model + "|" + s.epoch))
	return hex.EncodeToString(sum[:8])
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
