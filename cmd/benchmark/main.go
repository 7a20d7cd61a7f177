package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"qarag/config"
	"qarag/internal/adapter/chunker"
	"qarag/internal/adapter/embedding"
	"qarag/internal/adapter/source"
	"qarag/internal/adapter/store"
	"qarag/internal/port"
	"qarag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding qarag.yaml")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index state (model, dimension, vector count)")
		fmt.Println("  2. Nearest chunks with L2 distance")
		fmt.Println("  3. Distance spread between best and worst match")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fail("Error loading config: %v", err)
	}
	if cfg.Storage.Path == config.MemoryStorage {
		fail("benchmark needs a persisted index, storage.path is %q", config.MemoryStorage)
	}

	st, err := store.NewBoltStore(config.ResolvePath(*dir, cfg.Storage.Path))
	if err != nil {
		fail("Error opening store: %v", err)
	}
	defer st.Close()

	embedder, err := setupEmbedder(cfg)
	if err != nil {
		fail("Embedder not available: %v", err)
	}

	ctx := context.Background()
	idx, err := loadIndex(ctx, cfg, *dir, st, embedder)
	if err != nil {
		fail("%v", err)
	}
	stats := idx.Stats()

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Chunks indexed: %d\n", stats.Chunks)
	fmt.Printf("Model: %s (%s)\n", stats.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	vecs, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fail("Embedding error: %v", err)
	}
	results, err := idx.Search(vecs[0], *topK)
	if err != nil {
		fail("Search error: %v", err)
	}
	if len(results) == 0 {
		fail("No results")
	}

	fmt.Printf("Top %d matches:\n\n", len(results))
	for i, r := range results {
		preview := strings.ReplaceAll(r.Chunk.Text, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		fmt.Printf("%d. [%.4f] chunk %d\n", i+1, r.Distance, r.Chunk.Index)
		fmt.Printf("   %s\n\n", preview)
	}

	best, worst := results[0].Distance, results[len(results)-1].Distance
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("DISTANCES:\n")
	fmt.Printf("  Nearest:  %.4f\n", best)
	fmt.Printf("  Farthest: %.4f\n", worst)
	if best > 0 {
		fmt.Printf("  Spread:   %.2fx\n", worst/best)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// loadIndex reuses the stored snapshot. It refuses to embed the whole
// source so that a benchmark never spends embedding calls by accident.
func loadIndex(ctx context.Context, cfg *config.Config, dir string, st *store.BoltStore, embedder port.Embedder) (*usecase.EmbeddingIndex, error) {
	if _, err := st.LoadIndex(ctx); err != nil {
		return nil, fmt.Errorf("no stored index (%v), run 'qarag index' first", err)
	}

	loader := source.NewLoader(cfg.Source.Includes, cfg.Source.Excludes)
	text, err := loader.Extract(ctx, config.ResolvePath(dir, cfg.Source.Path))
	if err != nil {
		return nil, err
	}
	chunks := chunker.NewParagraphChunker(cfg.Index.ChunkSize).Chunk(text)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx := usecase.NewEmbeddingIndex(embedder, st, usecase.IndexOptions{ChunkSize: cfg.Index.ChunkSize}, quiet)
	warned := false
	stats, err := idx.LoadOrBuild(ctx, chunks, func(done, total int) {
		if !warned {
			fmt.Fprintf(os.Stderr, "stored index is stale, re-embedding %d chunks\n", total)
			warned = true
		}
	})
	if err != nil {
		return nil, err
	}
	if !stats.Loaded {
		fmt.Fprintln(os.Stderr, "stored index was rebuilt")
	}
	return idx, nil
}

func setupEmbedder(cfg *config.Config) (port.Embedder, error) {
	opts := embedding.Options{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKeyEnv: cfg.Embedding.APIKeyEnv,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Timeouts.Embedding,
	}
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(opts)
	case "ollama":
		return embedding.NewOllamaEmbedder(opts)
	case "hash":
		if opts.Dimension <= 0 {
			return nil, errors.New("hash provider needs embedding.dimension")
		}
		return embedding.NewHashEmbedder(opts.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
}
