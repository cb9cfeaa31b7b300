package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRevision = errors.New("invalid revision")
)

// ResourcePatchStore keeps the revision history of records as a chain of
// snapshots and patches. Revision IDs are assigned by the store.
type ResourcePatchStore interface {
	// Get returns either the snapshot or the patch stored as [revisionID].
	Get(ctx context.Context, objectID string, revisionID RevisionID) (*Snapshot, *Patch, error)

	// SetSnapshot stores [snapshot] as the next revision and sets its ID.
	SetSnapshot(ctx context.Context, objectID string, snapshot *Snapshot) error
	// SetPatch stores [patch] as the next revision and sets its ID.
	SetPatch(ctx context.Context, objectID string, patch *Patch) error

	GetLatestRevision(ctx context.Context, objectID string) (RevisionID, error)

	// WalkObjectRevisions calls [fn] for every revision of [objectID], oldest first.
	WalkObjectRevisions(ctx context.Context, objectID string, fn func(RevisionInfo) error) error
	// Objects lists the IDs of all records with at least one revision.
	Objects(ctx context.Context) ([]string, error)

	Close() error
}
