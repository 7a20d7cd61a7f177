package usecase

import (
	"context"
	"fmt"
	"sync"

	"qarag/internal/domain"
	"qarag/internal/port"
)

// History is the in-memory session history backed by the durable
// interaction log. A record enters memory only after the durable append
// succeeds, so memory is always a prefix-consistent view of the log.
type History struct {
	log port.InteractionLog

	mu    sync.RWMutex
	items []domain.Interaction
}

func NewHistory(log port.InteractionLog) *History {
	return &History{log: log}
}

// Load replaces the in-memory history with the durable log.
func (h *History) Load(ctx context.Context) error {
	items, err := h.log.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load interaction log: %w", err)
	}
	h.mu.Lock()
	h.items = items
	h.mu.Unlock()
	return nil
}

// Record appends durably, then in memory.
func (h *History) Record(ctx context.Context, in domain.Interaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.log.Append(ctx, in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLogWriteFailure, err)
	}
	h.items = append(h.items, in)
	return nil
}

// List returns a copy of the most recent limit interactions in append
// order. limit <= 0 returns all of them.
func (h *History) List(limit int) []domain.Interaction {
	h.mu.RLock()
	defer h.mu.RUnlock()

	items := h.items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]domain.Interaction, len(items))
	copy(out, items)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}
