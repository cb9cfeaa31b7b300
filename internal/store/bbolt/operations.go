package bbolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mwoo-bridge/mwoo/internal/store"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var errPatchChunkMissing = errors.New("patch chunk missing")

// SetSnapshot stores a full snapshot and bumps the counter.
func (s *Store) SetSnapshot(
	_ context.Context,
	objectID string,
	snapshot *store.Snapshot,
) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, objectID)
		if err != nil {
			return err
		}
		snapshot.ID = revNum

		// save the payload
		key := keyObjectRevision(objectID, revNum)
		payload, err := s.codec.Marshal(snapshot)
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketSnapshots).Put(key, payload)
		if err != nil {
			return err
		}

		// update the index
		indexBytes, err := msgpack.Marshal(indexEntry{Snap: true})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put(key, indexBytes)
	})
}

// SetPatch stores a delta and bumps the counter.
func (s *Store) SetPatch(
	_ context.Context,
	objectID string,
	rec *store.Patch,
) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, objectID)
		if err != nil {
			return err
		}
		if revNum == 0 {
			return fmt.Errorf("%w: the first revision of %q must be a snapshot", store.ErrInvalidRevision, objectID)
		}
		rec.ID = revNum

		chunkID := uint64(revNum) / chunkSize
		offset := uint16(revNum % chunkSize)
		recBytes, err := s.codec.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.putChunk(tx, objectID, chunkID, offset, recBytes); err != nil {
			return err
		}
		idx := indexEntry{Snap: false, Chunk: chunkID, Offset: offset}
		idxBytes, err := msgpack.Marshal(&idx)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put(keyObjectRevision(objectID, revNum), idxBytes)
	})
}

// Get returns the snapshot or the patch stored as [revID]; the other one is nil.
func (s *Store) Get(
	_ context.Context,
	objectID string,
	revID store.RevisionID,
) (*store.Snapshot, *store.Patch, error) {
	var (
		snapshot *store.Snapshot
		patchRec *store.Patch
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := keyObjectRevision(objectID, revID)
		idxBytes := tx.Bucket(bucketIndex).Get(key)
		if idxBytes == nil {
			return fmt.Errorf("%w: revision %s of %q", store.ErrNotFound, revID, objectID)
		}
		var idx indexEntry
		if err := msgpack.Unmarshal(idxBytes, &idx); err != nil {
			return err
		}

		if idx.Snap {
			v := tx.Bucket(bucketSnapshots).Get(key)
			if v == nil {
				return fmt.Errorf("%w: snapshot %s of %q", store.ErrNotFound, revID, objectID)
			}
			snapshot = &store.Snapshot{}
			return s.codec.Unmarshal(v, snapshot)
		}

		// read chunks
		chunkBytes := tx.Bucket(bucketChunks).Get(keyObjectChunk(objectID, idx.Chunk))
		if chunkBytes == nil {
			return errPatchChunkMissing
		}
		var arr []rawPatch
		if err := s.codec.Unmarshal(chunkBytes, &arr); err != nil {
			return err
		}
		if int(idx.Offset) >= len(arr) || arr[idx.Offset].Data == nil {
			return errPatchChunkMissing
		}
		patchRec = &store.Patch{}
		return s.codec.Unmarshal(arr[idx.Offset].Data, patchRec)
	})
	if err != nil {
		return nil, nil, err
	}
	return snapshot, patchRec, nil
}

// GetLatestRevision returns the highest committed revision for objectID.
func (s *Store) GetLatestRevision(
	_ context.Context,
	objectID string,
) (store.RevisionID, error) {
	// check cache first
	s.nextRevisionCounterMutex.RLock()
	if next, ok := s.nextRevisionCounter[objectID]; ok {
		s.nextRevisionCounterMutex.RUnlock()
		return store.RevisionID(next - 1), nil
	}
	s.nextRevisionCounterMutex.RUnlock()

	var next uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketLatest).Get([]byte(objectID))
		if v == nil {
			return store.ErrNotFound
		}
		next = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.nextRevisionCounterMutex.Lock()
	s.nextRevisionCounter[objectID] = next
	s.nextRevisionCounterMutex.Unlock()
	return store.RevisionID(next - 1), nil
}

// WalkObjectRevisions iterates the index of [objectID] in revision order.
func (s *Store) WalkObjectRevisions(
	ctx context.Context,
	objectID string,
	fn func(store.RevisionInfo) error,
) error {
	prefix := append([]byte(objectID), '|')
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketIndex).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			// "a|<rev>" must not match the revisions of "a|b"
			if len(k) != len(prefix)+8 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var idx indexEntry
			if err := msgpack.Unmarshal(v, &idx); err != nil {
				return err
			}
			info := store.RevisionInfo{
				ID:       store.RevisionID(binary.BigEndian.Uint64(k[len(prefix):])),
				Snapshot: idx.Snap,
			}
			if err := fn(info); err != nil {
				return err
			}
		}
		return nil
	})
}

// Objects returns every record ID known to the store, in byte order.
func (s *Store) Objects(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLatest).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}
