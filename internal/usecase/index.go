package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qarag/internal/adapter/index"
	"qarag/internal/adapter/store"
	"qarag/internal/domain"
	"qarag/internal/port"
)

// ProgressFunc is called after each embedding batch.
type ProgressFunc func(done, total int)

// EmbeddingIndex owns the chunk sequence, its vectors and the flat index
// built from them. Searches hold the read lock. Building holds the write
// lock from the first embedding batch until the new index is installed,
// so retrieval waits for a rebuild to finish.
type EmbeddingIndex struct {
	embedder  port.Embedder
	cache     port.IndexCache
	chunkSize int
	batchSize int
	timeout   time.Duration
	log       *slog.Logger

	mu          sync.RWMutex
	chunks      []domain.Chunk
	vectors     [][]float32
	flat        *index.FlatL2
	fingerprint string
	loaded      bool

	// rebuildMu keeps concurrent rebuilds from interleaving.
	rebuildMu sync.Mutex
	onRebuild []func()
}

type IndexOptions struct {
	// ChunkSize is recorded in the fingerprint so a persisted index is
	// not reused after the chunking parameters change.
	ChunkSize int
	BatchSize int
	Timeout   time.Duration
}

func NewEmbeddingIndex(embedder port.Embedder, cache port.IndexCache, opts IndexOptions, log *slog.Logger) *EmbeddingIndex {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &EmbeddingIndex{
		embedder:  embedder,
		cache:     cache,
		chunkSize: opts.ChunkSize,
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
		log:       log,
	}
}

// OnRebuild registers a hook run after a new index is installed.
func (x *EmbeddingIndex) OnRebuild(fn func()) {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()
	x.onRebuild = append(x.onRebuild, fn)
}

// Build embeds every chunk and installs the result. Nothing is persisted.
func (x *EmbeddingIndex) Build(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) (domain.IndexStats, error) {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	x.mu.Lock()
	vectors, flat, err := x.embedAll(ctx, chunks, progress)
	if err != nil {
		x.mu.Unlock()
		return domain.IndexStats{}, err
	}
	x.installLocked(chunks, vectors, flat, store.ComputeFingerprint(x.chunkSize, chunks), false)
	stats := x.statsLocked()
	x.mu.Unlock()

	x.runHooks()
	return stats, nil
}

// LoadOrBuild installs the persisted snapshot when it is complete and
// matches the chunks and the embedder. Otherwise it builds a fresh index
// and persists vectors, index and metadata together.
func (x *EmbeddingIndex) LoadOrBuild(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) (domain.IndexStats, error) {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	fingerprint := store.ComputeFingerprint(x.chunkSize, chunks)

	snap, err := x.cache.LoadIndex(ctx)
	switch {
	case err == nil:
		flat, verr := x.validate(snap, chunks, fingerprint)
		if verr == nil {
			x.mu.Lock()
			x.installLocked(chunks, snap.Vectors, flat, fingerprint, true)
			stats := x.statsLocked()
			x.mu.Unlock()

			x.runHooks()
			x.log.Info("loaded cached index", "chunks", len(chunks), "model", snap.ModelName)
			return stats, nil
		}
		if errors.Is(verr, domain.ErrEmbeddingModelMismatch) {
			x.log.Warn("cached index built with another embedding model, rebuilding",
				"cached", snap.ModelName, "current", x.embedder.ModelName())
		} else {
			x.log.Info("cached index is stale, rebuilding", "reason", verr)
		}
	case errors.Is(err, domain.ErrCacheMiss):
		x.log.Info("no cached index, building", "chunks", len(chunks))
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.IndexStats{}, ctxErr
		}
		x.log.Warn("failed to read cached index, rebuilding", "error", err)
	}

	return x.buildAndSave(ctx, chunks, fingerprint, progress)
}

// Rebuild ignores the persisted snapshot and builds from chunks. The
// stored snapshot is replaced only once the new one is saved.
func (x *EmbeddingIndex) Rebuild(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) (domain.IndexStats, error) {
	x.rebuildMu.Lock()
	defer x.rebuildMu.Unlock()

	return x.buildAndSave(ctx, chunks, store.ComputeFingerprint(x.chunkSize, chunks), progress)
}

// Fingerprint of the installed chunk sequence.
func (x *EmbeddingIndex) Fingerprint() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.fingerprint
}

func (x *EmbeddingIndex) ChunkSize() int {
	return x.chunkSize
}

// buildAndSave holds the write lock for the whole build.
func (x *EmbeddingIndex) buildAndSave(ctx context.Context, chunks []domain.Chunk, fingerprint string, progress ProgressFunc) (domain.IndexStats, error) {
	x.mu.Lock()
	stats, err := x.buildAndSaveLocked(ctx, chunks, fingerprint, progress)
	x.mu.Unlock()
	if err != nil {
		return domain.IndexStats{}, err
	}

	x.runHooks()
	return stats, nil
}

func (x *EmbeddingIndex) buildAndSaveLocked(ctx context.Context, chunks []domain.Chunk, fingerprint string, progress ProgressFunc) (domain.IndexStats, error) {
	start := time.Now()
	vectors, flat, err := x.embedAll(ctx, chunks, progress)
	if err != nil {
		return domain.IndexStats{}, err
	}

	blob, err := flat.MarshalBinary()
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("serialize index: %w", err)
	}
	snap := &domain.IndexSnapshot{
		ModelName:   x.embedder.ModelName(),
		Dimension:   x.embedder.Dimension(),
		Fingerprint: fingerprint,
		Vectors:     vectors,
		Index:       blob,
	}
	if err := x.cache.SaveIndex(ctx, snap); err != nil {
		// The in-memory index is still usable; the next start rebuilds.
		x.log.Warn("failed to persist index", "error", err)
	}

	x.installLocked(chunks, vectors, flat, fingerprint, false)
	x.log.Info("index built", "chunks", len(chunks), "model", snap.ModelName, "duration", time.Since(start).Round(time.Millisecond))
	return x.statsLocked(), nil
}

func (x *EmbeddingIndex) validate(snap *domain.IndexSnapshot, chunks []domain.Chunk, fingerprint string) (*index.FlatL2, error) {
	if snap.ModelName != x.embedder.ModelName() {
		return nil, fmt.Errorf("%w: cached %q, current %q", domain.ErrEmbeddingModelMismatch, snap.ModelName, x.embedder.ModelName())
	}
	if snap.Dimension != x.embedder.Dimension() {
		return nil, fmt.Errorf("%w: cached dimension %d, current %d", domain.ErrEmbeddingModelMismatch, snap.Dimension, x.embedder.Dimension())
	}
	if len(snap.Vectors) != len(chunks) {
		return nil, fmt.Errorf("cached %d vectors for %d chunks", len(snap.Vectors), len(chunks))
	}
	if snap.Fingerprint != fingerprint {
		return nil, errors.New("source or chunking changed")
	}

	flat := index.NewFlatL2(snap.Dimension)
	if err := flat.UnmarshalBinary(snap.Index); err != nil {
		return nil, fmt.Errorf("corrupt index: %w", err)
	}
	if flat.Size() != len(chunks) || flat.Dimension() != snap.Dimension {
		return nil, fmt.Errorf("index holds %d vectors of dimension %d", flat.Size(), flat.Dimension())
	}
	return flat, nil
}

func (x *EmbeddingIndex) embedAll(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([][]float32, *index.FlatL2, error) {
	dim := x.embedder.Dimension()
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += x.batchSize {
		end := start + x.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		batch, err := x.embedBatch(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)

		if progress != nil {
			progress(end, len(chunks))
		}
	}

	flat := index.NewFlatL2(dim)
	if err := flat.Add(vectors); err != nil {
		return nil, nil, err
	}
	return vectors, flat, nil
}

func (x *EmbeddingIndex) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	return x.embedder.Embed(ctx, texts)
}

// installLocked swaps in a new index. The caller holds x.mu.
func (x *EmbeddingIndex) installLocked(chunks []domain.Chunk, vectors [][]float32, flat *index.FlatL2, fingerprint string, loaded bool) {
	x.chunks = chunks
	x.vectors = vectors
	x.flat = flat
	x.fingerprint = fingerprint
	x.loaded = loaded
}

// runHooks is called with rebuildMu held and x.mu released.
func (x *EmbeddingIndex) runHooks() {
	for _, fn := range x.onRebuild {
		fn()
	}
}

// Search returns the k chunks nearest to the query vector.
func (x *EmbeddingIndex) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.flat == nil {
		return nil, domain.ErrEmptyIndex
	}
	hits, err := x.flat.Search(query, k)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.ScoredChunk{Chunk: x.chunks[h.ChunkIndex], Distance: h.Distance})
	}
	return out, nil
}

// Vector returns a copy of the embedding stored for chunk i.
func (x *EmbeddingIndex) Vector(i int) []float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i < 0 || i >= len(x.vectors) {
		return nil
	}
	return append([]float32(nil), x.vectors[i]...)
}

func (x *EmbeddingIndex) Chunks() []domain.Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]domain.Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

func (x *EmbeddingIndex) Stats() domain.IndexStats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.statsLocked()
}

func (x *EmbeddingIndex) statsLocked() domain.IndexStats {
	return domain.IndexStats{
		Chunks:    len(x.chunks),
		Vectors:   len(x.vectors),
		Dimension: x.embedder.Dimension(),
		Model:     x.embedder.ModelName(),
		Loaded:    x.loaded,
	}
}
