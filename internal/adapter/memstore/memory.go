package memstore

import (
	"context"
	"sync"

	"qarag/internal/domain"
)

// MemoryStore is the ephemeral counterpart of store.BoltStore. It keeps
// an index snapshot and both logs in process memory.
type MemoryStore struct {
	mu           sync.RWMutex
	snapshot     *domain.IndexSnapshot
	interactions []domain.Interaction
	feedback     []domain.Feedback

	// AppendErr, when set, is returned by Append without recording.
	AppendErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadIndex(ctx context.Context) (*domain.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, domain.ErrCacheMiss
	}
	return cloneSnapshot(s.snapshot), nil
}

func (s *MemoryStore) SaveIndex(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = cloneSnapshot(snap)
	return nil
}

func (s *MemoryStore) ClearIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, in domain.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.interactions = append(s.interactions, in)
	return nil
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out, nil
}

func (s *MemoryStore) AppendFeedback(ctx context.Context, fb domain.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb)
	return nil
}

func (s *MemoryStore) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneSnapshot(in *domain.IndexSnapshot) *domain.IndexSnapshot {
	if in == nil {
		return nil
	}
	out := *in
	out.Vectors = make([][]float32, len(in.Vectors))
	for i, v := range in.Vectors {
		out.Vectors[i] = append([]float32(nil), v...)
	}
	out.Index = append([]byte(nil), in.Index...)
	return &out
}
