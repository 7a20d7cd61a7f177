package port

import (
	"context"

	"qarag/internal/domain"
)

// IndexCache persists an embedding index snapshot as one unit.
type IndexCache interface {
	// LoadIndex returns domain.ErrCacheMiss unless vectors, index and
	// metadata are all present.
	LoadIndex(ctx context.Context) (*domain.IndexSnapshot, error)

	SaveIndex(ctx context.Context, snap *domain.IndexSnapshot) error

	ClearIndex(ctx context.Context) error
}

// InteractionLog is the durable, append-only interaction record.
type InteractionLog interface {
	Append(ctx context.Context, it domain.Interaction) error

	// LoadAll returns every record in append order. An absent log is empty.
	LoadAll(ctx context.Context) ([]domain.Interaction, error)
}

type FeedbackLog interface {
	AppendFeedback(ctx context.Context, fb domain.Feedback) error
	ListFeedback(ctx context.Context) ([]domain.Feedback, error)
}
