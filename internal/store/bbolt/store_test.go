package bbolt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wI2L/jsondiff"

	"github.com/mwoo-bridge/mwoo/internal/store"
)

// handy constants -----------------------------------------------------------

var (
	ctx = context.Background()
	id  = "product:COURSE-42"
)

func openStore(t *testing.T, codec store.Codec) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"), codec, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestNewAndBuckets checks that the DB opens and buckets exist.
func TestNewAndBuckets(t *testing.T) {
	s := openStore(t, nil)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.NotZero(t, info.Size(), "DB file should not be empty")

	_, err = s.GetLatestRevision(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestSnapshotPatchRoundtrip covers:
//   - claimNextRevision
//   - SetSnapshot / SetPatch
//   - Get / GetLatestRevision / WalkObjectRevisions
func TestSnapshotPatchRoundtrip(t *testing.T) {
	for name, codec := range map[string]store.Codec{"msgpack": nil, "json": store.JSONCodec} {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, codec)
			now := time.Now().UTC().Truncate(time.Second)

			// -------- 1st snapshot -------------------------------------------
			snap := &store.Snapshot{Time: now, Object: map[string]any{"name": "Course"}}
			require.NoError(t, s.SetSnapshot(ctx, id, snap))
			assert.Equal(t, store.RevisionID(0), snap.ID)

			latest, err := s.GetLatestRevision(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, store.RevisionID(0), latest)

			// -------- patch #1 -----------------------------------------------
			patch1 := &store.Patch{
				PreviousID: snap.ID,
				Time:       now,
				Operations: []jsondiff.Operation{{Type: jsondiff.OperationReplace, Path: "/name", Value: "Course v2"}},
			}
			require.NoError(t, s.SetPatch(ctx, id, patch1))
			assert.Equal(t, store.RevisionID(1), patch1.ID)

			// -------- patch #2 -----------------------------------------------
			patch2 := &store.Patch{
				PreviousID: patch1.ID,
				Operations: []jsondiff.Operation{{Type: jsondiff.OperationAdd, Path: "/sku", Value: "C42"}},
			}
			require.NoError(t, s.SetPatch(ctx, id, patch2))

			latest, err = s.GetLatestRevision(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, store.RevisionID(2), latest)

			// -------- random gets --------------------------------------------
			sn0, p0, err := s.Get(ctx, id, 0)
			require.NoError(t, err)
			assert.Nil(t, p0)
			require.NotNil(t, sn0)
			assert.Equal(t, "Course", sn0.Object["name"])
			assert.True(t, now.Equal(sn0.Time))

			sn1, p1, err := s.Get(ctx, id, 1)
			require.NoError(t, err)
			assert.Nil(t, sn1)
			require.NotNil(t, p1)
			assert.Equal(t, store.RevisionID(1), p1.ID)
			assert.Equal(t, store.RevisionID(0), p1.PreviousID)
			require.Len(t, p1.Operations, 1)
			assert.Equal(t, "/name", p1.Operations[0].Path)
			assert.Equal(t, "Course v2", p1.Operations[0].Value)

			_, p2, err := s.Get(ctx, id, 2)
			require.NoError(t, err)
			require.NotNil(t, p2)
			assert.Equal(t, store.RevisionID(2), p2.ID)

			_, _, err = s.Get(ctx, id, 3)
			assert.ErrorIs(t, err, store.ErrNotFound)

			var walked []store.RevisionInfo
			require.NoError(t, s.WalkObjectRevisions(ctx, id, func(info store.RevisionInfo) error {
				walked = append(walked, info)
				return nil
			}))
			assert.Equal(t, []store.RevisionInfo{
				{ID: 0, Snapshot: true},
				{ID: 1},
				{ID: 2},
			}, walked)
		})
	}
}

func TestFirstRevisionMustBeSnapshot(t *testing.T) {
	s := openStore(t, nil)

	err := s.SetPatch(ctx, id, &store.Patch{})
	require.ErrorIs(t, err, store.ErrInvalidRevision)

	// the failed claim must not leak into the counter
	_, err = s.GetLatestRevision(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatchesSpanChunks(t *testing.T) {
	s := openStore(t, nil)
	require.NoError(t, s.SetSnapshot(ctx, id, &store.Snapshot{Object: map[string]any{"n": 0}}))

	for i := 1; i <= chunkSize+5; i++ {
		p := &store.Patch{PreviousID: store.RevisionID(i - 1)}
		require.NoError(t, s.SetPatch(ctx, id, p))
		require.Equal(t, store.RevisionID(i), p.ID)
	}

	_, p, err := s.Get(ctx, id, chunkSize+3)
	require.NoError(t, err)
	assert.Equal(t, store.RevisionID(chunkSize+2), p.PreviousID)
}

func TestWalkSkipsOtherObjects(t *testing.T) {
	s := openStore(t, nil)
	require.NoError(t, s.SetSnapshot(ctx, "a", &store.Snapshot{}))
	require.NoError(t, s.SetSnapshot(ctx, "a|b", &store.Snapshot{}))
	require.NoError(t, s.SetSnapshot(ctx, "a|b", &store.Snapshot{}))

	count := 0
	require.NoError(t, s.WalkObjectRevisions(ctx, "a", func(store.RevisionInfo) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)

	stop := errors.New("stop")
	err := s.WalkObjectRevisions(ctx, "a|b", func(store.RevisionInfo) error { return stop })
	assert.ErrorIs(t, err, stop)

	objects, err := s.Objects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a|b"}, objects)
}

// TestConcurrentClaims ensures claimNextRevision is atomic.
func TestConcurrentClaims(t *testing.T) {
	s := openStore(t, nil)

	// race 20 goroutines
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.SetSnapshot(ctx, id, &store.Snapshot{Object: map[string]any{"x": i}})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	latest, err := s.GetLatestRevision(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RevisionID(19), latest)
}

// TestPersistedValues verifies that bytes written are real MessagePack and
// that the counter survives a reopen.
func TestPersistedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := New(path, nil, true)
	require.NoError(t, err)
	require.NoError(t, s.SetSnapshot(ctx, id, &store.Snapshot{Object: map[string]any{"k": "v"}}))
	require.NoError(t, s.Close())

	// reopen raw file and search for MessagePack prefix 0x81 (map of 1)
	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(blob, []byte{0x81}), "file does not appear to contain msgpack map header")

	s, err = New(path, nil, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	latest, err := s.GetLatestRevision(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RevisionID(0), latest)
}
