package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"qarag/internal/adapter/store"
	"qarag/internal/domain"
	"qarag/internal/port"
)

// IndexUseCase loads the source document, chunks it and keeps the
// embedding index in sync with it.
type IndexUseCase struct {
	source  port.DocumentSource
	chunker port.Chunker
	index   *EmbeddingIndex
	path    string
	log     *slog.Logger
}

func NewIndexUseCase(source port.DocumentSource, chunker port.Chunker, index *EmbeddingIndex, path string, log *slog.Logger) *IndexUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &IndexUseCase{
		source:  source,
		chunker: chunker,
		index:   index,
		path:    path,
		log:     log,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	domain.IndexStats
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Index extracts and chunks the source, then loads the persisted index
// or builds a new one. With force the persisted index is discarded.
// Extraction failures wrap domain.ErrSourceUnavailable.
func (u *IndexUseCase) Index(ctx context.Context, force bool, progress ProgressFunc) (*IndexResult, error) {
	start := time.Now()

	chunks, err := u.loadChunks(ctx)
	if err != nil {
		return nil, err
	}

	var stats domain.IndexStats
	if force {
		stats, err = u.index.Rebuild(ctx, chunks, progress)
	} else {
		stats, err = u.index.LoadOrBuild(ctx, chunks, progress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	return &IndexResult{IndexStats: stats, Duration: time.Since(start)}, nil
}

// Refresh rebuilds the index if the source text changed since the last
// build. Used by the source watcher.
func (u *IndexUseCase) Refresh(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	chunks, err := u.loadChunks(ctx)
	if err != nil {
		return nil, err
	}
	if store.ComputeFingerprint(u.index.ChunkSize(), chunks) == u.index.Fingerprint() {
		return &IndexResult{IndexStats: u.index.Stats(), Skipped: true, Duration: time.Since(start)}, nil
	}

	stats, err := u.index.Rebuild(ctx, chunks, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	return &IndexResult{IndexStats: stats, Duration: time.Since(start)}, nil
}

// Watch refreshes the index on every change reported by the watcher
// until ctx is done. Failures are logged and the current index stays
// in service.
func (u *IndexUseCase) Watch(ctx context.Context, watcher port.SourceWatcher) error {
	changes, err := watcher.Watch(ctx, u.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", u.path, err)
	}
	u.log.Info("watching source", "path", u.path)

	for range changes {
		res, err := u.Refresh(ctx)
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			u.log.Error("source refresh failed, keeping current index", "error", err)
		case res.Skipped:
			u.log.Debug("source changed but chunks are identical")
		default:
			u.log.Info("index rebuilt after source change", "chunks", res.Chunks, "duration", res.Duration.Round(time.Millisecond))
		}
	}
	return nil
}

func (u *IndexUseCase) loadChunks(ctx context.Context) ([]domain.Chunk, error) {
	raw, err := u.source.Extract(ctx, u.path)
	if err != nil {
		return nil, err
	}
	chunks := u.chunker.Chunk(raw)
	u.log.Info("loaded and chunked source", "path", u.path, "chunks", len(chunks))
	return chunks, nil
}

func (u *IndexUseCase) EmbeddingIndex() *EmbeddingIndex {
	return u.index
}
