package bbolt

import (
	"fmt"
	"sync"

	"github.com/mwoo-bridge/mwoo/internal/store"
	"go.etcd.io/bbolt"
)

var (
	bucketSnapshots = []byte("snapshots")   // <obj>|rev  -> Snapshot
	bucketChunks    = []byte("patchChunks") // <obj>|chunkID -> []rawPatch
	bucketIndex     = []byte("index")       // <obj>|rev  -> indexEntry
	bucketLatest    = []byte("latest")      // <obj>      -> uint64(nextRev)
)

const chunkSize = 64 // patches per chunk value

type indexEntry struct {
	Snap   bool   `msgpack:"s"`
	Chunk  uint64 `msgpack:"c"`
	Offset uint16 `msgpack:"o"`
}

type rawPatch struct {
	Data []byte `msgpack:"d"`
}

type Store struct {
	db    *bbolt.DB
	codec store.Codec

	nextRevisionCounterMutex sync.RWMutex
	nextRevisionCounter      map[string]uint64
}

var _ store.ResourcePatchStore = (*Store)(nil)

// New opens (or creates) a BoltDB database file.
// Pass nil for [codec] to use the default MessagePack implementation.
// With [durable] unset, commits are not fsynced, which is a lot faster but
// may lose the last revisions on a crash.
func New(path string, codec store.Codec, durable bool) (*Store, error) {
	if codec == nil {
		codec = store.DefaultCodec
	}
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{
		Timeout:      0,
		NoSync:       !durable,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSnapshots, bucketChunks, bucketIndex, bucketLatest} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create default buckets: %w", err)
	}
	return &Store{
		db:                  db,
		codec:               codec,
		nextRevisionCounter: make(map[string]uint64),
	}, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
