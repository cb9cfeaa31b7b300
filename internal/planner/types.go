package planner

import (
	"time"

	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/internal/store"
)

// Action is what has to happen to a record to reach its desired state.
type Action string

const (
	// ActionCreate creates a record that does not exist remotely.
	ActionCreate Action = "create"
	// ActionUpdate writes a record whose remote state differs.
	ActionUpdate Action = "update"
	// ActionUnchanged marks a record that is up-to-date.
	ActionUnchanged Action = "unchanged"
	// ActionOrphan marks a record that only exists remotely. Orphans are
	// reported, never deleted.
	ActionOrphan Action = "orphan"
)

// Item is the planned action for one record.
type Item struct {
	// ID is the identity of the record (its sku or slug).
	ID string `json:"id"`

	// Action is the decision for this record.
	Action Action `json:"action"`

	// Diff is the change-set from the remote to the desired state.
	// Only populated for ActionUpdate.
	Diff any `json:"diff,omitempty"`

	// Operations is Diff as a JSON Patch against the remote record.
	// Only populated for ActionUpdate.
	Operations []jsondiff.Operation `json:"operations,omitempty"`

	// Payload is the body to send: the desired fields for an update, the
	// desired fields over the kind's create defaults for a create.
	Payload map[string]any `json:"payload,omitempty"`

	// Revision is the ledger revision that recorded Payload.
	Revision *store.RevisionID `json:"revision,omitempty"`

	// Remote is the remote record, if any.
	Remote map[string]any `json:"-"`
}

// Plan is the result of [Planner.Plan].
type Plan struct {
	// ID identifies this planning run in logs and the ledger.
	ID uuid.UUID `json:"id"`

	Kind policy.Kind `json:"kind"`

	CreatedAt time.Time `json:"created_at"`

	// Items holds one entry per record, sorted by ID.
	Items []Item `json:"items"`

	// Skipped counts the records rejected by the filter.
	Skipped int `json:"skipped"`
}

// Summary provides aggregate counts of a plan.
type Summary struct {
	Create    int `json:"create"`
	Update    int `json:"update"`
	Unchanged int `json:"unchanged"`
	Orphan    int `json:"orphan"`
	Skipped   int `json:"skipped"`
}

// Summary counts the items of the plan per action.
func (p *Plan) Summary() Summary {
	s := Summary{Skipped: p.Skipped}
	for _, item := range p.Items {
		switch item.Action {
		case ActionCreate:
			s.Create++
		case ActionUpdate:
			s.Update++
		case ActionUnchanged:
			s.Unchanged++
		case ActionOrphan:
			s.Orphan++
		}
	}
	return s
}

// Pending reports whether any record has to be written.
func (s Summary) Pending() bool {
	return s.Create+s.Update > 0
}
