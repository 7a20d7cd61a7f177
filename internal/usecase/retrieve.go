package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qarag/internal/domain"
	"qarag/internal/port"
)

// RetrieveUseCase embeds a query with the index's embedder and returns
// the nearest chunks.
type RetrieveUseCase struct {
	index       *EmbeddingIndex
	embedder    port.Embedder
	maxDistance float32 // Drop hits farther than this (0 = disabled)
	timeout     time.Duration
}

func NewRetrieveUseCase(index *EmbeddingIndex, maxDistance float64, timeout time.Duration) *RetrieveUseCase {
	return &RetrieveUseCase{
		index:       index,
		embedder:    index.embedder,
		maxDistance: float32(maxDistance),
		timeout:     timeout,
	}
}

var _ port.Retriever = (*RetrieveUseCase)(nil)

// Retrieve returns up to k chunks ordered by ascending distance. An empty
// index yields an empty result, not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := u.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrRetrievalFailure, err)
	}

	results, err := u.index.Search(vec, k)
	if errors.Is(err, domain.ErrEmptyIndex) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}

	if u.maxDistance > 0 {
		results = u.filterByDistance(results)
	}
	return results, nil
}

func (u *RetrieveUseCase) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	vecs, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}
	return vecs[0], nil
}

func (u *RetrieveUseCase) filterByDistance(results []domain.ScoredChunk) []domain.ScoredChunk {
	filtered := results[:0]
	for _, r := range results {
		if r.Distance <= u.maxDistance {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
