package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
	"qarag/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaVersion = []byte("schema_version")

// SchemaInfo stores the schema version.
type SchemaInfo struct {
	Version int `json:"version"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		v, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("corrupt schema version %q", data)
		}
		info.Version = v
		return nil
	})
	return &info, err
}

// Migrate stamps a fresh database and refuses databases written by a
// newer schema.
func (s *BoltStore) Migrate() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}

	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	}
	if info.Version == CurrentSchemaVersion {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		// v0 -> v1 has no data changes.
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte(strconv.Itoa(CurrentSchemaVersion)))
	})
}

// ComputeFingerprint hashes the chunking parameters and the chunk
// sequence. A persisted index whose fingerprint differs was built from
// another source text or chunk size.
func ComputeFingerprint(maxChunkSize int, chunks []domain.Chunk) string {
	relevant := struct {
		ChunkSize int      `json:"chunk_size"`
		Texts     []string `json:"texts"`
	}{
		ChunkSize: maxChunkSize,
		Texts:     make([]string, len(chunks)),
	}
	for i, c := range chunks {
		relevant.Texts[i] = c.Text
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
