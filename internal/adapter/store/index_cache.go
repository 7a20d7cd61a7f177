package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"qarag/internal/domain"
)

// SaveIndex replaces the persisted snapshot. Vectors, the serialized
// index and the metadata are written in a single transaction so a reader
// never sees half of a snapshot.
func (s *BoltStore) SaveIndex(ctx context.Context, snap *domain.IndexSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := resetBucket(tx, bucketVectors); err != nil {
			return err
		}
		if err := resetBucket(tx, bucketIndex); err != nil {
			return err
		}

		vb := tx.Bucket(bucketVectors)
		for i, v := range snap.Vectors {
			if len(v) != snap.Dimension {
				return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), snap.Dimension)
			}
			if err := vb.Put(itob(uint64(i)), encodeVector(v)); err != nil {
				return err
			}
		}

		if err := tx.Bucket(bucketIndex).Put(keyFlatIndex, snap.Index); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		pairs := map[string]string{
			string(keyModel):       snap.ModelName,
			string(keyDimension):   strconv.Itoa(snap.Dimension),
			string(keyFingerprint): snap.Fingerprint,
			string(keyCount):       strconv.Itoa(len(snap.Vectors)),
			string(keyBuiltAt):     time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range pairs {
			if err := meta.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadIndex returns domain.ErrCacheMiss unless every artifact of a
// snapshot is present and the vector count matches the metadata.
func (s *BoltStore) LoadIndex(ctx context.Context) (*domain.IndexSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap domain.IndexSnapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		model := meta.Get(keyModel)
		dim := meta.Get(keyDimension)
		count := meta.Get(keyCount)
		index := tx.Bucket(bucketIndex).Get(keyFlatIndex)
		if model == nil || dim == nil || count == nil || index == nil {
			return domain.ErrCacheMiss
		}

		d, err := strconv.Atoi(string(dim))
		if err != nil {
			return fmt.Errorf("%w: corrupt dimension", domain.ErrCacheMiss)
		}
		n, err := strconv.Atoi(string(count))
		if err != nil {
			return fmt.Errorf("%w: corrupt vector count", domain.ErrCacheMiss)
		}

		snap.ModelName = string(model)
		snap.Dimension = d
		snap.Fingerprint = string(meta.Get(keyFingerprint))
		snap.Index = append([]byte(nil), index...)
		snap.Vectors = make([][]float32, 0, n)

		c := tx.Bucket(bucketVectors).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if int(btoi(k)) != len(snap.Vectors) {
				return fmt.Errorf("%w: vector sequence gap at %d", domain.ErrCacheMiss, len(snap.Vectors))
			}
			vec, err := decodeVector(v, d)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
			}
			snap.Vectors = append(snap.Vectors, vec)
		}
		if len(snap.Vectors) != n {
			return fmt.Errorf("%w: %d vectors stored, metadata says %d", domain.ErrCacheMiss, len(snap.Vectors), n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ClearIndex drops the snapshot. Logs are untouched.
func (s *BoltStore) ClearIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := resetBucket(tx, bucketVectors); err != nil {
			return err
		}
		if err := resetBucket(tx, bucketIndex); err != nil {
			return err
		}
		meta := tx.Bucket(bucketMeta)
		for _, k := range [][]byte{keyModel, keyDimension, keyFingerprint, keyCount, keyBuiltAt} {
			if err := meta.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func resetBucket(tx *bbolt.Tx, name []byte) error {
	if tx.Bucket(name) != nil {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}
	_, err := tx.CreateBucket(name)
	return err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte, dim int) ([]float32, error) {
	if len(b) != 4*dim {
		return nil, fmt.Errorf("vector has %d bytes, expected %d", len(b), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
