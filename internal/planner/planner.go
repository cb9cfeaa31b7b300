// Package planner decides, for a set of catalog records, which ones have to be
// created or updated remotely to match their desired state.
package planner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mwoo-bridge/mwoo/internal/patch"
	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/internal/service"
	"github.com/mwoo-bridge/mwoo/internal/store"
	"github.com/mwoo-bridge/mwoo/internal/util"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// ErrIdentity is returned when records cannot be paired up because an identity
// is missing or used twice.
var ErrIdentity = errors.New("invalid record identity")

const (
	DefaultWorkers = 4
	MaxWorkers     = 64
)

// Ledger records the payloads of planned writes, see [service.LedgerService].
type Ledger interface {
	Commit(ctx context.Context, recordID string, state map[string]any) (store.RevisionID, error)
}

var _ Ledger = (*service.LedgerService)(nil)

// Options configures a [Planner].
type Options struct {
	Kind policy.Kind

	// Policy compares remote and desired records. Defaults to the kind's.
	Policy deepdiff.Config

	// Identity is the field pairing records up. Defaults to the kind's.
	// Dotted paths reach into nested objects.
	Identity string

	// Workers bounds the number of records diffed at once, clamped to [1, 64].
	// Zero selects DefaultWorkers.
	Workers int

	// Filter is an expression over util.RecordEnv; records for which it is
	// false are skipped. Empty passes everything.
	Filter string

	// Ledger, if set, receives the payload of every create and update.
	Ledger Ledger

	Logger zerolog.Logger

	// Now stamps plans. Defaults to time.Now.
	Now func() time.Time
}

type Planner struct {
	kind     policy.Kind
	policy   deepdiff.Config
	identity string
	workers  int
	filter   *vm.Program
	ledger   Ledger
	log      zerolog.Logger
	now      func() time.Time
}

// New validates [opts] and compiles the filter.
func New(opts Options) (*Planner, error) {
	if _, err := policy.ParseKind(string(opts.Kind)); err != nil {
		return nil, err
	}
	p := &Planner{
		kind:     opts.Kind,
		policy:   opts.Policy,
		identity: opts.Identity,
		workers:  opts.Workers,
		ledger:   opts.Ledger,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if p.policy == nil {
		p.policy = opts.Kind.Policy()
	}
	if p.identity == "" {
		p.identity = opts.Kind.Identity()
	}
	if p.workers == 0 {
		p.workers = DefaultWorkers
	}
	p.workers = util.Clamp(p.workers, 1, MaxWorkers)
	if p.now == nil {
		p.now = time.Now
	}
	if opts.Filter != "" {
		program, err := expr.Compile(opts.Filter, expr.Env(util.RecordEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("failed to compile filter: %w", err)
		}
		p.filter = program
	}
	return p, nil
}

// Policy is the effective comparison policy.
func (p *Planner) Policy() deepdiff.Config {
	return p.policy
}

// Workers is the effective worker count.
func (p *Planner) Workers() int {
	return p.workers
}

type pair struct {
	id      string
	remote  map[string]any
	desired map[string]any
}

// Plan pairs [remote] and [desired] records by identity and decides an action
// for each. The result does not depend on the worker count.
func (p *Planner) Plan(ctx context.Context, remote, desired []map[string]any) (*Plan, error) {
	plan := &Plan{
		ID:        uuid.New(),
		Kind:      p.kind,
		CreatedAt: p.now(),
	}
	l := p.log.With().
		Str("plan-id", plan.ID.String()).
		Str("kind", p.kind.String()).
		Logger()

	remoteByID, err := p.index(remote, "remote")
	if err != nil {
		return nil, err
	}
	desiredByID, err := p.index(desired, "desired")
	if err != nil {
		return nil, err
	}

	var pairs []pair
	for id, record := range desiredByID {
		pairs = append(pairs, pair{id: id, remote: remoteByID[id], desired: record})
	}
	for id, record := range remoteByID {
		if _, ok := desiredByID[id]; !ok {
			pairs = append(pairs, pair{id: id, remote: record})
		}
	}
	slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.id, b.id) })

	selected := pairs[:0]
	for _, pr := range pairs {
		pass, err := p.pass(pr)
		if err != nil {
			return nil, err
		}
		if !pass {
			l.Debug().Str("id", pr.id).Msg("skipped by filter")
			plan.Skipped++
			continue
		}
		selected = append(selected, pr)
	}

	plan.Items = make([]Item, len(selected))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)
	for i, pr := range selected {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			item, err := p.decide(pr)
			if err != nil {
				return err
			}
			plan.Items[i] = item
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if p.ledger != nil {
		if err := p.record(ctx, plan); err != nil {
			return nil, err
		}
	}

	for _, item := range plan.Items {
		l.Debug().
			Str("id", item.ID).
			Str("action", string(item.Action)).
			Msg("planned record")
	}
	summary := plan.Summary()
	l.Info().
		Int("create", summary.Create).
		Int("update", summary.Update).
		Int("unchanged", summary.Unchanged).
		Int("orphan", summary.Orphan).
		Int("skipped", summary.Skipped).
		Msg("plan ready")
	return plan, nil
}

// index maps every record to its identity.
func (p *Planner) index(records []map[string]any, side string) (map[string]map[string]any, error) {
	byID := make(map[string]map[string]any, len(records))
	seen := sets.New[string]()
	for i, record := range records {
		id, ok := util.ExtractString(record, p.identity)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: %s record %d has no %q", ErrIdentity, side, i, p.identity)
		}
		if seen.Has(id) {
			return nil, fmt.Errorf("%w: %s records share %s %q", ErrIdentity, side, p.identity, id)
		}
		seen.Insert(id)
		byID[id] = record
	}
	return byID, nil
}

func (p *Planner) pass(pr pair) (bool, error) {
	if p.filter == nil {
		return true, nil
	}
	out, err := expr.Run(p.filter, util.RecordEnv{
		Kind:    p.kind.String(),
		ID:      pr.id,
		Remote:  pr.remote,
		Desired: pr.desired,
	})
	if err != nil {
		return false, fmt.Errorf("filter failed on %q: %w", pr.id, err)
	}
	return out.(bool), nil
}

func (p *Planner) decide(pr pair) (Item, error) {
	item := Item{ID: pr.id, Remote: pr.remote}
	switch {
	case pr.desired == nil:
		item.Action = ActionOrphan
		return item, nil
	case pr.remote == nil:
		item.Action = ActionCreate
		payload := make(map[string]any)
		maps.Copy(payload, p.kind.CreateDefaults())
		maps.Copy(payload, deepdiff.Clone(pr.desired).(map[string]any))
		item.Payload = payload
		return item, nil
	}

	chg, err := deepdiff.Diff(pr.remote, pr.desired, p.policy)
	if err != nil {
		return Item{}, fmt.Errorf("record %q: %w", pr.id, err)
	}
	if !deepdiff.Changed(chg) {
		item.Action = ActionUnchanged
		return item, nil
	}
	ops, err := patch.Operations(pr.remote, chg, p.policy)
	if err != nil {
		return Item{}, fmt.Errorf("record %q: %w", pr.id, err)
	}
	item.Action = ActionUpdate
	item.Diff = chg
	item.Operations = ops
	item.Payload = deepdiff.Clone(pr.desired).(map[string]any)
	return item, nil
}

// record commits the payloads of the plan to the ledger, in plan order.
func (p *Planner) record(ctx context.Context, plan *Plan) error {
	for i := range plan.Items {
		item := &plan.Items[i]
		if item.Action != ActionCreate && item.Action != ActionUpdate {
			continue
		}
		rev, err := p.ledger.Commit(ctx, LedgerID(p.kind, item.ID), item.Payload)
		if err != nil && !errors.Is(err, service.ErrUnchanged) {
			return fmt.Errorf("failed to record %q: %w", item.ID, err)
		}
		item.Revision = util.Ptr(rev)
	}
	return nil
}

// LedgerID is the ledger key of record [id] of [kind]. Keys are namespaced by
// kind since a tag and a category may share a slug.
func LedgerID(kind policy.Kind, id string) string {
	return kind.String() + ":" + id
}
