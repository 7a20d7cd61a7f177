package cli

import (
	"context"
	"fmt"
	"log/slog"

	"qarag/config"
	"qarag/internal/adapter/cache"
	"qarag/internal/adapter/chunker"
	"qarag/internal/adapter/embedding"
	"qarag/internal/adapter/llm"
	"qarag/internal/adapter/memstore"
	"qarag/internal/adapter/source"
	"qarag/internal/adapter/store"
	"qarag/internal/adapter/translation"
	"qarag/internal/port"
	"qarag/internal/usecase"
)

const defaultHashDimension = 256

// appStore is everything the service persists.
type appStore interface {
	port.IndexCache
	port.InteractionLog
	port.FeedbackLog
	Close() error
}

// app holds the long-lived components. They are built once and shared.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store appStore

	index    *usecase.EmbeddingIndex
	indexer  *usecase.IndexUseCase
	cache    *cache.QueryCache
	history  *usecase.History
	answers  *usecase.AnswerUseCase
	feedback *usecase.FeedbackUseCase
}

func openStore(cfg *config.Config, dir string) (appStore, error) {
	path := config.ResolvePath(dir, cfg.Storage.Path)
	if path == config.MemoryStorage {
		return memstore.NewMemoryStore(), nil
	}
	st, err := store.NewBoltStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return st, nil
}

func newEmbedder(cfg config.EmbeddingConfig, timeout config.TimeoutsConfig, batchSize int) (port.Embedder, error) {
	opts := embedding.Options{
		BaseURL:   cfg.BaseURL,
		APIKeyEnv: cfg.APIKeyEnv,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		BatchSize: batchSize,
		Timeout:   timeout.Embedding,
	}
	switch cfg.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(opts)
	case "ollama":
		return embedding.NewOllamaEmbedder(opts)
	case "hash":
		dim := cfg.Dimension
		if dim <= 0 {
			dim = defaultHashDimension
		}
		return embedding.NewHashEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func newGenerator(cfg config.GenerationConfig) (port.Generator, error) {
	switch cfg.Provider {
	case "openrouter", "openai":
		return llm.NewOpenAIGenerator(llm.Options{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}

func newTranslator(cfg config.TranslationConfig, timeouts config.TimeoutsConfig) (port.Translator, error) {
	switch cfg.Provider {
	case "http":
		return translation.NewHTTPTranslator(cfg.BaseURL, timeouts.Translation)
	case "none":
		return translation.Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", cfg.Provider)
	}
}

// newIndexing builds the store, embedder and index. Commands that do
// not answer questions stop here.
func newIndexing(cfg *config.Config, dir string, log *slog.Logger) (*app, error) {
	st, err := openStore(cfg, dir)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg.Embedding, cfg.Timeouts, cfg.Index.BatchSize)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	idx := usecase.NewEmbeddingIndex(embedder, st, usecase.IndexOptions{
		ChunkSize: cfg.Index.ChunkSize,
		BatchSize: cfg.Index.BatchSize,
		Timeout:   cfg.Timeouts.Embedding,
	}, log)

	loader := source.NewLoader(cfg.Source.Includes, cfg.Source.Excludes)
	chk := chunker.NewParagraphChunker(cfg.Index.ChunkSize)
	indexer := usecase.NewIndexUseCase(loader, chk, idx, config.ResolvePath(dir, cfg.Source.Path), log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		index:   idx,
		indexer: indexer,
	}, nil
}

// newApp builds every component and loads or builds the index. A
// missing source document is fatal.
func newApp(ctx context.Context, cfg *config.Config, dir string, log *slog.Logger, progress usecase.ProgressFunc) (*app, error) {
	a, err := newIndexing(cfg, dir, log)
	if err != nil {
		return nil, err
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.history.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load interaction history: %w", err)
	}

	result, err := a.indexer.Index(ctx, false, progress)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to prepare index: %w", err)
	}
	log.Info("index ready",
		"chunks", result.Chunks,
		"model", result.Model,
		"from_cache", result.Loaded,
		"duration", result.Duration)
	return a, nil
}

func (a *app) wire() error {
	generator, err := newGenerator(a.cfg.Generation)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	translator, err := newTranslator(a.cfg.Translation, a.cfg.Timeouts)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	var retriever port.Retriever = usecase.NewRetrieveUseCase(a.index, a.cfg.Retrieve.MaxDistance, a.cfg.Timeouts.Embedding)
	if a.cfg.Retrieve.CacheSize > 0 {
		a.cache = cache.NewQueryCache(a.cfg.Retrieve.CacheSize, a.cfg.Retrieve.CacheTTL)
		a.index.OnRebuild(a.cache.Invalidate)
		retriever = cache.NewCachedRetriever(retriever, a.cache)
	}

	a.history = usecase.NewHistory(a.store)
	a.answers = usecase.NewAnswerUseCase(retriever, generator, translator, a.history, usecase.NewPromptBuilder(),
		usecase.AnswerOptions{
			PivotLanguage: a.cfg.Translation.PivotLanguage,
			TopK:          a.cfg.Retrieve.TopK,
			AllowDegraded: a.cfg.Translation.AllowDegraded,
			Generation: port.GenerationParams{
				Model:       a.cfg.Generation.Model,
				Temperature: a.cfg.Generation.Temperature,
				MaxTokens:   a.cfg.Generation.MaxTokens,
			},
			GenerationTimeout:  a.cfg.Timeouts.Generation,
			TranslationTimeout: a.cfg.Timeouts.Translation,
		}, a.log)
	a.feedback = usecase.NewFeedbackUseCase(a.store)
	return nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
