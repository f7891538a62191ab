// Command paperlens indexes PDF research papers and serves semantic
// search and context optimization over the local index.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/paperlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/paperlens/internal/adapters/driven/embedding/cached"
	"github.com/custodia-labs/paperlens/internal/adapters/driven/embedding/minilm"
	"github.com/custodia-labs/paperlens/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/paperlens/internal/adapters/driven/pdf"
	"github.com/custodia-labs/paperlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/paperlens/internal/adapters/driving/cli"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/core/services"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close() //nolint:errcheck // Best-effort shutdown
		}
	}()

	cli.SetSetupHook(func(dataDir string) (cli.Services, error) {
		svcs, cleanup, err := buildServices(dataDir)
		if err != nil {
			return cli.Services{}, err
		}
		closers = append(closers, cleanup...)
		return svcs, nil
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServices wires adapters and core services for one invocation.
func buildServices(dataDir string) (cli.Services, []io.Closer, error) {
	var closers []io.Closer

	cfg, err := file.NewConfigStore(dataDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Watch(); err != nil {
		return cli.Services{}, nil, fmt.Errorf("watching config: %w", err)
	}
	closers = append(closers, cfg)

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		cfg.Close() //nolint:errcheck // Already failing
		return cli.Services{}, nil, fmt.Errorf("opening store: %w", err)
	}
	closers = append(closers, store)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		for _, c := range closers {
			c.Close() //nolint:errcheck // Already failing
		}
		return cli.Services{}, nil, err
	}
	embedder = cached.New(embedder, store.EmbeddingCacheStore())
	closers = append(closers, embedder)

	analyzer := services.NewAnalyzer()
	chunker := services.NewChunker()
	fingerprint := services.NewFingerprintTracker(store.FingerprintStore(), embedder)

	indexer := services.NewIndexer(analyzer, chunker, fingerprint, store.DocumentStore(), embedder)

	var searchOpts []services.SearchOption
	if window := cfg.GetInt("search.adjacent_pages"); window > 0 {
		searchOpts = append(searchOpts, services.WithAdjacentPageWindow(window))
	}
	engine := services.NewSearchEngine(store.DocumentStore(), embedder, searchOpts...)

	optimizer := services.NewContextOptimizer()

	return cli.Services{
		Indexing:  indexer,
		Search:    engine,
		Context:   optimizer,
		Extractor: pdf.NewExtractor(),
		Documents: store.DocumentStore(),
	}, closers, nil
}

// buildEmbedder selects the embedding provider from configuration.
// Defaults to the local sentence-transformers service.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := cfg.GetString("embedding.provider")
	if provider == "" {
		provider = "minilm"
	}

	switch provider {
	case "minilm":
		return minilm.NewEmbeddingService(minilm.Config{
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Epoch:             cfg.GetString("embedding.epoch"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		}), nil
	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
			Epoch:   cfg.GetString("embedding.epoch"),
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
