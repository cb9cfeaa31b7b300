package service_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwoo-bridge/mwoo/internal/service"
	"github.com/mwoo-bridge/mwoo/internal/store"
	bboltStore "github.com/mwoo-bridge/mwoo/internal/store/bbolt"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

func newLedger(t *testing.T, opts service.Options) *service.LedgerService {
	t.Helper()
	rps, err := bboltStore.New(filepath.Join(t.TempDir(), "ledger.db"), nil, false)
	require.NoError(t, err)
	svc := service.NewLedgerService(rps, opts)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Minute)
		return at
	}
}

func revisions() []map[string]any {
	return []map[string]any{
		{"sku": "C42", "name": "Course", "regular_price": "10", "tags": []any{map[string]any{"id": 1}}},
		{"sku": "C42", "name": "Course", "regular_price": "12", "tags": []any{map[string]any{"id": 1}}},
		{"sku": "C42", "name": "Course", "regular_price": "12", "tags": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}},
		{"sku": "C42", "name": "Course (2025)", "regular_price": "12"},
		{"sku": "C42", "name": "Course (2025)", "regular_price": "12", "meta_data": []any{map[string]any{"key": "k", "value": nil}}},
		{"sku": "C42", "name": "Course", "status": "draft"},
		{"sku": "C42"},
	}
}

func TestCommitRestore(t *testing.T) {
	for _, disableCache := range []bool{false, true} {
		t.Run(fmt.Sprintf("disableCache=%v", disableCache), func(t *testing.T) {
			ctx := context.Background()
			svc := newLedger(t, service.Options{SnapshotEvery: 3, Now: fixedClock(), DisableCache: disableCache})

			states := revisions()
			for i, state := range states {
				rev, err := svc.Commit(ctx, "C42", state)
				require.NoError(t, err)
				require.Equal(t, store.RevisionID(i), rev)
			}

			for i, want := range states {
				got, err := svc.Restore(ctx, "C42", store.RevisionID(i))
				require.NoError(t, err)
				assert.Equal(t, store.RevisionID(i), got.ID)
				assert.True(t, deepdiff.Equal(want, got.Object), "revision %d: %s", i, cmp.Diff(want, got.Object))
				assert.Equal(t, 2025, got.Time.Year())
			}

			latest, err := svc.Latest(ctx, "C42")
			require.NoError(t, err)
			assert.Equal(t, store.RevisionID(len(states)-1), latest.ID)

			history, err := svc.History(ctx, "C42")
			require.NoError(t, err)
			var kinds []bool
			for _, info := range history {
				kinds = append(kinds, info.Snapshot)
			}
			assert.Equal(t, []bool{true, false, false, true, false, false, true}, kinds)
		})
	}
}

func TestCommitUnchanged(t *testing.T) {
	ctx := context.Background()
	svc := newLedger(t, service.Options{})

	state := map[string]any{"sku": "C42", "regular_price": "10", "images": []any{map[string]any{"id": 7}}}
	rev, err := svc.Commit(ctx, "C42", state)
	require.NoError(t, err)

	// same values, different numeric types
	again := map[string]any{"sku": "C42", "regular_price": "10", "images": []any{map[string]any{"id": 7.0}}}
	rev2, err := svc.Commit(ctx, "C42", again)
	require.ErrorIs(t, err, service.ErrUnchanged)
	assert.Equal(t, rev, rev2)

	// a removed key is a change
	rev3, err := svc.Commit(ctx, "C42", map[string]any{"sku": "C42", "regular_price": "10"})
	require.NoError(t, err)
	assert.Equal(t, rev+1, rev3)
}

func TestCommitDoesNotAliasInput(t *testing.T) {
	ctx := context.Background()
	svc := newLedger(t, service.Options{})

	state := map[string]any{"sku": "C42", "tags": []any{"a"}}
	_, err := svc.Commit(ctx, "C42", state)
	require.NoError(t, err)

	state["tags"].([]any)[0] = "b"
	rev, err := svc.Commit(ctx, "C42", state)
	require.NoError(t, err)
	assert.Equal(t, store.RevisionID(1), rev)
}

func TestRestoreUnknownRecord(t *testing.T) {
	svc := newLedger(t, service.Options{})

	_, err := svc.Restore(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.History(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	svc := newLedger(t, service.Options{})
	for _, id := range []string{"b", "a"} {
		_, err := svc.Commit(ctx, id, map[string]any{"id": id})
		require.NoError(t, err)
	}
	records, err := svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, records)
}

func BenchmarkCommit_SnapshotEvery1(b *testing.B) {
	benchCommit(b, 1)
}

func BenchmarkCommit_SnapshotEvery4(b *testing.B) {
	benchCommit(b, 4)
}

func BenchmarkCommit_SnapshotEvery16(b *testing.B) {
	benchCommit(b, 16)
}

// benchCommit is the shared benchmark body.
func benchCommit(b *testing.B, snapshotEvery uint64) {
	dbPath := filepath.Join(b.TempDir(), fmt.Sprintf("bench-%d.db", snapshotEvery))

	rps, err := bboltStore.New(dbPath, nil, false)
	if err != nil {
		b.Fatalf("init store: %v", err)
	}
	svc := service.NewLedgerService(rps, service.Options{SnapshotEvery: snapshotEvery})
	defer func() {
		_ = svc.Close()
	}()

	// make this record large
	meta := make([]any, 0, 500)
	for i := 0; i < 500; i++ {
		meta = append(meta, map[string]any{"key": rand.Text(), "value": rand.Text()})
	}
	record := map[string]any{
		"sku":       "bench",
		"name":      "Course 0",
		"meta_data": meta,
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		// mutate name each commit
		record["name"] = "Course " + strconv.Itoa(i+1)

		if _, err := svc.Commit(b.Context(), "bench", record); err != nil {
			b.Fatalf("commit error: %v", err)
		}
	}
	b.StopTimer()

	// record file size for visibility
	if fi, err := os.Stat(dbPath); err == nil {
		b.ReportMetric(float64(fi.Size())/1e3, "KB_db")
	} else {
		b.Fatalf("stat db file: %v", err)
	}
}
