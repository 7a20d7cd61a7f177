package port

import (
	"context"

	"qarag/internal/domain"
)

// Retriever returns the chunks closest to a query, nearest first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
