package index

import (
	"errors"
	"testing"

	"qarag/internal/domain"
)

func sampleVectors() [][]float32 {
	return [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
}

func TestFlatL2AddAndSize(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 4 {
		t.Errorf("expected size 4, got %d", idx.Size())
	}

	if err := idx.Add([][]float32{{1, 2}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if idx.Size() != 4 {
		t.Errorf("failed add must not change size, got %d", idx.Size())
	}
}

func TestFlatL2ExactMatch(t *testing.T) {
	idx := NewFlatL2(3)
	vectors := sampleVectors()
	if err := idx.Add(vectors); err != nil {
		t.Fatal(err)
	}

	for i, v := range vectors {
		hits, err := idx.Search(v, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
		if hits[0].ChunkIndex != i {
			t.Errorf("query %d: expected chunk %d, got %d", i, i, hits[0].ChunkIndex)
		}
		if hits[0].Distance != 0 {
			t.Errorf("query %d: expected distance 0, got %f", i, hits[0].Distance)
		}
	}
}

func TestFlatL2Ordering(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{1, 0.9, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 4 {
		t.Fatalf("k larger than size should return all, got %d", len(hits))
	}
	if hits[0].ChunkIndex != 3 {
		t.Errorf("expected nearest chunk 3, got %d", hits[0].ChunkIndex)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Errorf("hits not sorted at %d: %f < %f", i, hits[i].Distance, hits[i-1].Distance)
		}
	}
}

func TestFlatL2TiesPreferLowerIndex(t *testing.T) {
	idx := NewFlatL2(2)
	if err := idx.Add([][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, h := range hits {
		if h.ChunkIndex != i {
			t.Errorf("tie at position %d: expected chunk %d, got %d", i, i, h.ChunkIndex)
		}
	}
}

func TestFlatL2Empty(t *testing.T) {
	idx := NewFlatL2(3)
	_, err := idx.Search([]float32{1, 0, 0}, 1)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Errorf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestFlatL2QueryDimension(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected query dimension error")
	}
}

func TestFlatL2ZeroK(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search([]float32{1, 0, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits for k=0, got %d", len(hits))
	}
}

func TestFlatL2Binary(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}

	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var loaded FlatL2
	if err := loaded.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != idx.Size() || loaded.Dimension() != idx.Dimension() {
		t.Fatalf("loaded index shape %dx%d, want %dx%d", loaded.Size(), loaded.Dimension(), idx.Size(), idx.Dimension())
	}

	hits, err := loaded.Search([]float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ChunkIndex != 2 {
		t.Errorf("expected chunk 2 after reload, got %d", hits[0].ChunkIndex)
	}
}

func TestFlatL2UnmarshalRejectsCorruptData(t *testing.T) {
	idx := NewFlatL2(3)
	if err := idx.Add(sampleVectors()); err != nil {
		t.Fatal(err)
	}
	data, _ := idx.MarshalBinary()

	cases := map[string][]byte{
		"empty":     nil,
		"bad magic": append([]byte("XXXX"), data[4:]...),
		"truncated": data[:len(data)-3],
	}
	for name, payload := range cases {
		var f FlatL2
		if err := f.UnmarshalBinary(payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
