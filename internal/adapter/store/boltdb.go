package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta         = []byte("meta")
	bucketVectors      = []byte("vectors")
	bucketIndex        = []byte("index")
	bucketInteractions = []byte("interactions")
	bucketFeedback     = []byte("feedback")

	keyModel       = []byte("embedding_model")
	keyDimension   = []byte("dimension")
	keyFingerprint = []byte("fingerprint")
	keyCount       = []byte("vector_count")
	keyBuiltAt     = []byte("built_at")
	keyFlatIndex   = []byte("flat_l2")
)

// BoltStore keeps the index snapshot, the interaction log and the
// feedback log in one bbolt file.
type BoltStore struct {
	db *bbolt.DB

	// appendMu serializes log appends across requests.
	appendMu sync.Mutex
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketMeta, bucketVectors, bucketIndex, bucketInteractions, bucketFeedback}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
