package bbolt

import (
	"encoding/binary"

	"github.com/mwoo-bridge/mwoo/internal/store"
	"go.etcd.io/bbolt"
)

func keyObjectRevision(objectID string, id store.RevisionID) []byte {
	return keyObjectUint64(objectID, uint64(id))
}

func keyObjectChunk(objectID string, chunk uint64) []byte {
	return keyObjectUint64(objectID, chunk)
}

func keyObjectUint64(objectID string, n uint64) []byte {
	buf := make([]byte, len(objectID)+1+8)
	copy(buf, objectID)
	buf[len(objectID)] = '|'
	binary.BigEndian.PutUint64(buf[len(objectID)+1:], n)
	return buf
}

// claimNextRevision atomically increments the nextRevisionCounter in bucketLatest *and*
// updates the in-memory cache. It returns the newly assigned revision number.
func (s *Store) claimNextRevision(tx *bbolt.Tx, objectID string) (store.RevisionID, error) {
	latest := tx.Bucket(bucketLatest)

	var next uint64
	if raw := latest.Get([]byte(objectID)); raw != nil {
		next = binary.BigEndian.Uint64(raw)
	}
	revisionNumber := store.RevisionID(next)
	next++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := latest.Put([]byte(objectID), buf); err != nil {
		return 0, err
	}

	// the cache must only see the counter once the transaction commits
	tx.OnCommit(func() {
		s.nextRevisionCounterMutex.Lock()
		s.nextRevisionCounter[objectID] = next
		s.nextRevisionCounterMutex.Unlock()
	})

	return revisionNumber, nil
}

// putChunk stores [payload] at [offset] of the patch chunk [chunkID],
// creating the chunk if needed.
func (s *Store) putChunk(tx *bbolt.Tx, objectID string, chunkID uint64, offset uint16, payload []byte) error {
	key := keyObjectChunk(objectID, chunkID)
	bucket := tx.Bucket(bucketChunks)

	var chunk []rawPatch
	if v := bucket.Get(key); v != nil {
		if err := s.codec.Unmarshal(v, &chunk); err != nil {
			return err
		}
	}
	if len(chunk) < chunkSize {
		grown := make([]rawPatch, chunkSize)
		copy(grown, chunk)
		chunk = grown
	}
	chunk[offset] = rawPatch{Data: payload}

	encoded, err := s.codec.Marshal(chunk)
	if err != nil {
		return err
	}
	return bucket.Put(key, encoded)
}
