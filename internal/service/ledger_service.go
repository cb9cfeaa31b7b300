package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mwoo-bridge/mwoo/internal/patch"
	"github.com/mwoo-bridge/mwoo/internal/store"
	"github.com/mwoo-bridge/mwoo/internal/util"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// LedgerService records the desired state pushed for each record.
// It stores the changes in a resource patch store and allows restoring
// the full record state at a specific revision.
type LedgerService struct {
	rps           store.ResourcePatchStore
	snapshotEvery uint64 // create full snapshot after this many patches
	log           zerolog.Logger
	now           func() time.Time

	cache    *stateCache // nil when disabled
	commitMu sync.Mutex
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(rps store.ResourcePatchStore, opts Options) *LedgerService {
	opts.SnapshotEvery = util.RangeOrElse(opts.SnapshotEvery, 1, maxSnapshotEvery, defaultSnapshotEvery)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := &LedgerService{
		rps:           rps,
		snapshotEvery: opts.SnapshotEvery,
		log:           opts.Logger,
		now:           opts.Now,
	}
	if !opts.DisableCache {
		l.cache = newStateCache()
	}
	return l
}

// Commit persists [state] as the next revision of [recordID] and returns its ID.
// If [state] equals the latest revision it returns that revision's ID and
// [ErrUnchanged]. Commits are serialised.
func (l *LedgerService) Commit(
	ctx context.Context,
	recordID string,
	state map[string]any,
) (store.RevisionID, error) {
	l.commitMu.Lock()
	defer l.commitMu.Unlock()

	if state == nil {
		state = map[string]any{}
	}
	state = deepdiff.Clone(state).(map[string]any)
	now := l.now()

	latest, err := l.latest(ctx, recordID)
	if errors.Is(err, store.ErrNotFound) {
		snapshot := store.Snapshot{Time: now, Object: state}
		if err := l.rps.SetSnapshot(ctx, recordID, &snapshot); err != nil {
			return 0, err
		}
		l.remember(recordID, state, snapshot.ID, 0)
		l.logCommit(recordID, snapshot.ID, true)
		return snapshot.ID, nil
	}
	if err != nil {
		return 0, err
	}

	if deepdiff.Equal(latest.obj, state) {
		return latest.rev, ErrUnchanged
	}

	// check if it's time for a full snapshot
	if uint64(latest.distance) >= l.snapshotEvery-1 {
		snapshot := store.Snapshot{
			PreviousID: latest.rev,
			Time:       now,
			Object:     state,
		}
		if err := l.rps.SetSnapshot(ctx, recordID, &snapshot); err != nil {
			return 0, err
		}
		l.remember(recordID, state, snapshot.ID, 0)
		l.logCommit(recordID, snapshot.ID, true)
		return snapshot.ID, nil
	}

	operations, err := patch.Diff(latest.obj, state)
	if err != nil {
		return 0, fmt.Errorf("failed to diff against revision %s: %w", latest.rev, err)
	}
	p := &store.Patch{
		PreviousID: latest.rev,
		Time:       now,
		Operations: operations,
	}
	if err := l.rps.SetPatch(ctx, recordID, p); err != nil {
		return 0, err
	}
	l.remember(recordID, state, p.ID, latest.distance+1)
	l.logCommit(recordID, p.ID, false)
	return p.ID, nil
}

// Restore brings back the record state at [rev].
func (l *LedgerService) Restore(ctx context.Context, recordID string, rev store.RevisionID) (*store.Snapshot, error) {
	snapshot, _, err := l.restore(ctx, recordID, rev)
	return snapshot, err
}

// Latest returns the state of the newest revision of [recordID].
func (l *LedgerService) Latest(ctx context.Context, recordID string) (*store.Snapshot, error) {
	rev, err := l.rps.GetLatestRevision(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return l.Restore(ctx, recordID, rev)
}

// History lists the revisions of [recordID], oldest first.
func (l *LedgerService) History(ctx context.Context, recordID string) ([]store.RevisionInfo, error) {
	var revisions []store.RevisionInfo
	err := l.rps.WalkObjectRevisions(ctx, recordID, func(info store.RevisionInfo) error {
		revisions = append(revisions, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("%w: record %q", store.ErrNotFound, recordID)
	}
	return revisions, nil
}

// Records lists every record that has a history.
func (l *LedgerService) Records(ctx context.Context) ([]string, error) {
	return l.rps.Objects(ctx)
}

// Close stops the cache and closes the underlying store.
func (l *LedgerService) Close() error {
	if l.cache != nil {
		l.cache.close()
	}
	return l.rps.Close()
}

// latest returns the newest state of [recordID], from the cache when possible.
func (l *LedgerService) latest(ctx context.Context, recordID string) (*ledgerState, error) {
	rev, err := l.rps.GetLatestRevision(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if st := l.cache.get(recordID); st != nil && st.rev == rev {
			return st, nil
		}
	}
	snapshot, distance, err := l.restore(ctx, recordID, rev)
	if err != nil {
		return nil, err
	}
	st := &ledgerState{obj: snapshot.Object, rev: rev, distance: distance}
	if l.cache != nil {
		l.cache.set(recordID, st)
	}
	return st, nil
}

func (l *LedgerService) remember(recordID string, state map[string]any, rev store.RevisionID, distance int) {
	if l.cache == nil {
		return
	}
	l.cache.set(recordID, &ledgerState{obj: state, rev: rev, distance: distance})
}

// restore replays the patches since the closest snapshot at or before [rev]
// and also returns how many there were.
func (l *LedgerService) restore(ctx context.Context, recordID string, rev store.RevisionID) (*store.Snapshot, int, error) {
	var chain []*store.Patch
	cur := rev
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		snap, p, err := l.rps.Get(ctx, recordID, cur)
		if err != nil {
			return nil, 0, fmt.Errorf("broken chain at %s: %w", cur, err)
		}
		if p != nil {
			if p.PreviousID >= cur {
				return nil, 0, fmt.Errorf("%w: patch %s points forward to %s", store.ErrInvalidRevision, cur, p.PreviousID)
			}
			chain = append(chain, p)
			cur = p.PreviousID
			continue
		}

		// we have now found the base snapshot
		state := snap.Object
		if state == nil {
			state = map[string]any{}
		}
		for i := len(chain) - 1; i >= 0; i-- {
			state, err = patch.ApplyOperations(state, chain[i].Operations)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to apply revision %s: %w", chain[i].ID, err)
			}
		}
		restored := &store.Snapshot{
			ID:         rev,
			PreviousID: snap.PreviousID,
			Time:       snap.Time,
			Object:     state,
		}
		if len(chain) > 0 {
			restored.PreviousID = chain[0].PreviousID
			restored.Time = chain[0].Time
		}
		return restored, len(chain), nil
	}
}

func (l *LedgerService) logCommit(recordID string, rev store.RevisionID, snapshot bool) {
	l.log.Debug().
		Str("id", recordID).
		Stringer("revision-id", rev).
		Bool("snapshot", snapshot).
		Msg("committed revision")
}
