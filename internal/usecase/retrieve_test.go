package usecase

import (
	"context"
	"testing"

	"qarag/internal/adapter/memstore"
)

func newBuiltRetriever(t *testing.T, maxDistance float64) (*RetrieveUseCase, *countingEmbedder) {
	t.Helper()
	emb := newCountingEmbedder("")
	idx := newTestIndex(emb, memstore.NewMemoryStore())
	if _, err := idx.Build(context.Background(), ethiopiaChunks, nil); err != nil {
		t.Fatal(err)
	}
	return NewRetrieveUseCase(idx, maxDistance, 0), emb
}

func TestRetrieveOrdering(t *testing.T) {
	r, _ := newBuiltRetriever(t, 0)

	results, err := r.Retrieve(context.Background(), ethiopiaChunks[1].Text, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Index != 1 || results[0].Distance != 0 {
		t.Errorf("expected exact match first, got %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not ascending at %d: %v", i, results)
		}
	}
}

func TestRetrieveKLimits(t *testing.T) {
	r, _ := newBuiltRetriever(t, 0)
	ctx := context.Background()

	results, err := r.Retrieve(ctx, "Ethiopia", 1)
	if err != nil || len(results) != 1 {
		t.Fatalf("expected 1 result, got %d (%v)", len(results), err)
	}
	results, err = r.Retrieve(ctx, "Ethiopia", 10)
	if err != nil || len(results) != len(ethiopiaChunks) {
		t.Fatalf("expected k clamped to %d, got %d (%v)", len(ethiopiaChunks), len(results), err)
	}
	results, err = r.Retrieve(ctx, "Ethiopia", 0)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty result for k=0, got %d (%v)", len(results), err)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx := newTestIndex(newCountingEmbedder(""), memstore.NewMemoryStore())
	if _, err := idx.Build(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	r := NewRetrieveUseCase(idx, 0, 0)

	results, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("empty index must not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRetrieveMaxDistance(t *testing.T) {
	r, _ := newBuiltRetriever(t, 0.01)

	results, err := r.Retrieve(context.Background(), ethiopiaChunks[0].Text, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Index != 0 {
		t.Errorf("expected only the exact match within threshold, got %+v", results)
	}
}
