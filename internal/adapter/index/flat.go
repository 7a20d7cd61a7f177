// Package index implements an exact nearest-neighbor index over
// embedding vectors using squared Euclidean distance.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"qarag/internal/domain"
)

var magic = [4]byte{'Q', 'F', 'L', '2'}

// FlatL2 stores vectors contiguously and searches them exhaustively.
// Vector i corresponds to chunk index i.
type FlatL2 struct {
	dim  int
	data []float32
}

func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (f *FlatL2) Dimension() int {
	return f.dim
}

func (f *FlatL2) Size() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors in order.
func (f *FlatL2) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d dimension mismatch: expected %d, got %d", i, f.dim, len(v))
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a copy of the i-th stored vector.
func (f *FlatL2) Vector(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Search returns up to k hits ordered by ascending distance. Equal
// distances keep insertion order, so the lower chunk index comes first.
func (f *FlatL2) Search(query []float32, k int) ([]domain.Hit, error) {
	n := f.Size()
	if n == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", f.dim, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = domain.Hit{
			ChunkIndex: i,
			Distance:   squaredL2(query, f.data[i*f.dim:(i+1)*f.dim]),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > n {
		k = n
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// MarshalBinary encodes the index as magic, dimension, count and the
// little-endian vector data.
func (f *FlatL2) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(12 + 4*len(f.data))
	buf.Write(magic[:])
	header := [2]uint32{uint32(f.dim), uint32(f.Size())}
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, f.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *FlatL2) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return fmt.Errorf("reading index header: %w", err)
	}
	if m != magic {
		return errors.New("not a flat L2 index")
	}

	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("reading index header: %w", err)
	}
	dim, n := int(header[0]), int(header[1])
	if r.Len() != dim*n*4 {
		return fmt.Errorf("index payload truncated: expected %d bytes, got %d", dim*n*4, r.Len())
	}

	payload := make([]float32, dim*n)
	if err := binary.Read(r, binary.LittleEndian, payload); err != nil {
		return fmt.Errorf("reading index vectors: %w", err)
	}
	if hasNaN(payload) {
		return errors.New("index contains NaN values")
	}

	f.dim = dim
	f.data = payload
	return nil
}

func hasNaN(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) {
			return true
		}
	}
	return false
}
