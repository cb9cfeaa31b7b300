package store

import (
	"fmt"
	"time"

	"github.com/wI2L/jsondiff"
)

// RevisionID numbers the revisions of one record, starting at 0.
type RevisionID uint64

func (id RevisionID) String() string {
	return fmt.Sprintf("%08x", uint64(id))
}

type Patch struct {
	/// Revision Metadata
	// ID of the revision
	ID RevisionID `msgpack:"i" json:"id"`
	// PreviousID is the ID of the previous revision.
	// This should always be set since a patch cannot exist without a previous snapshot.
	PreviousID RevisionID `msgpack:"<,omitempty" json:"previousID"`
	// Time the revision was committed.
	Time time.Time `msgpack:"t" json:"time"`

	/// Patch Metadata
	// Operations turn the state of the previous revision into this one (RFC 6902).
	Operations []jsondiff.Operation `msgpack:"s" json:"operations"`
}

type Snapshot struct {
	/// Revision Metadata
	// ID of the revision
	ID RevisionID `msgpack:"i" json:"id"`
	// PreviousID is the ID of the previous revision. This can be empty if this is the first revision.
	PreviousID RevisionID `msgpack:"<,omitempty" json:"previousID,omitempty"`
	// Time the revision was committed.
	Time time.Time `msgpack:"t" json:"time"`

	/// Snapshot Metadata
	// Object is the full record state pushed in this revision.
	Object map[string]any `msgpack:"o" json:"object"`
}

// RevisionInfo describes one stored revision without loading it.
type RevisionInfo struct {
	ID       RevisionID
	Snapshot bool
}
