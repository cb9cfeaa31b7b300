// Package service keeps the sync ledger: the revision history of the desired
// state pushed for every record.
package service

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnchanged is returned by [LedgerService.Commit] when the state equals the
// latest committed one. Nothing is stored in that case.
var ErrUnchanged = errors.New("state unchanged")

const (
	defaultSnapshotEvery = 10
	maxSnapshotEvery     = 1 << 16
)

// Options configures a [LedgerService].
type Options struct {
	// SnapshotEvery stores a full snapshot after this many revisions.
	// Defaults to 10, also when out of range; 1 stores snapshots only.
	SnapshotEvery uint64
	// Logger receives one debug line per commit.
	Logger zerolog.Logger
	// Now stamps revisions. Defaults to time.Now.
	Now func() time.Time
	// DisableCache forces every commit to restore the latest state from the store.
	DisableCache bool
}
