package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"qarag/internal/domain"
)

// Append writes one interaction under the bucket's next sequence number.
// Existing records are never rewritten.
func (s *BoltStore) Append(ctx context.Context, in domain.Interaction) error {
	return s.appendRecord(ctx, bucketInteractions, in)
}

// LoadAll returns every interaction in append order.
func (s *BoltStore) LoadAll(ctx context.Context) ([]domain.Interaction, error) {
	var out []domain.Interaction
	err := s.forEach(ctx, bucketInteractions, func(v []byte) error {
		var in domain.Interaction
		if err := json.Unmarshal(v, &in); err != nil {
			return fmt.Errorf("corrupt interaction record: %w", err)
		}
		out = append(out, in)
		return nil
	})
	return out, err
}

func (s *BoltStore) AppendFeedback(ctx context.Context, fb domain.Feedback) error {
	return s.appendRecord(ctx, bucketFeedback, fb)
}

func (s *BoltStore) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := s.forEach(ctx, bucketFeedback, func(v []byte) error {
		var fb domain.Feedback
		if err := json.Unmarshal(v, &fb); err != nil {
			return fmt.Errorf("corrupt feedback record: %w", err)
		}
		out = append(out, fb)
		return nil
	})
	return out, err
}

func (s *BoltStore) appendRecord(ctx context.Context, bucket []byte, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

func (s *BoltStore) forEach(ctx context.Context, bucket []byte, fn func(v []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// Big-endian keys make cursor order equal to append order.
		return b.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}
