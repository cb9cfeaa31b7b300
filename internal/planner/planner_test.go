package planner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwoo-bridge/mwoo/internal/planner"
	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/internal/service"
	"github.com/mwoo-bridge/mwoo/internal/store"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

type record = map[string]any

func fixture() (remote, desired []map[string]any) {
	remote = []map[string]any{
		{"id": 100, "sku": "A", "name": "a", "regular_price": "10", "tags": []any{record{"id": 1}, record{"id": 2}}},
		{"id": 101, "sku": "B", "name": "b", "meta_data": []any{record{"key": "k", "value": "v"}}},
		{"id": 102, "sku": "Z", "name": "orphan"},
	}
	desired = []map[string]any{
		{"sku": "C", "name": "c"},
		{"sku": "A", "name": "a", "regular_price": "12", "tags": []any{record{"id": 2}, record{"id": 1}}},
		{"sku": "B", "name": "b", "meta_data": []any{record{"key": "k", "value": "v"}}},
	}
	return remote, desired
}

func actions(plan *planner.Plan) map[string]planner.Action {
	out := make(map[string]planner.Action, len(plan.Items))
	for _, item := range plan.Items {
		out[item.ID] = item.Action
	}
	return out
}

func TestPlan(t *testing.T) {
	p, err := planner.New(planner.Options{Kind: policy.Product})
	require.NoError(t, err)

	remote, desired := fixture()
	plan, err := p.Plan(context.Background(), remote, desired)
	require.NoError(t, err)

	var ids []string
	for _, item := range plan.Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"A", "B", "C", "Z"}, ids)
	assert.Equal(t, map[string]planner.Action{
		"A": planner.ActionUpdate,
		"B": planner.ActionUnchanged,
		"C": planner.ActionCreate,
		"Z": planner.ActionOrphan,
	}, actions(plan))

	update := plan.Items[0]
	assert.Equal(t, map[string]any{"regular_price": "12"}, update.Diff)
	require.Len(t, update.Operations, 1)
	assert.Equal(t, "/regular_price", update.Operations[0].Path)
	assert.Equal(t, "12", update.Payload["regular_price"])

	create := plan.Items[2]
	assert.Equal(t, "c", create.Payload["name"])
	assert.Equal(t, "private", create.Payload["status"])
	assert.Equal(t, true, create.Payload["virtual"])
	assert.Nil(t, create.Remote)

	assert.Equal(t, planner.Summary{Create: 1, Update: 1, Unchanged: 1, Orphan: 1}, plan.Summary())
	assert.True(t, plan.Summary().Pending())
	assert.NotEmpty(t, plan.ID.String())
}

func TestPlanFilter(t *testing.T) {
	cases := map[string][]string{
		"Prefix('A', 'C')":                         {"A", "C"},
		"Exists() && HasField('meta_data')":        {"B"},
		"IDs('Z') || Desired?.name == 'c'":         {"C", "Z"},
		"None()":                                   nil,
		"Kind == 'product' && !Exists()":           {"C"},
		"Remote?.id == 100 || Field('sku') == 'B'": {"A", "B"},
	}
	for filter, want := range cases {
		t.Run(filter, func(t *testing.T) {
			p, err := planner.New(planner.Options{Kind: policy.Product, Filter: filter})
			require.NoError(t, err)

			remote, desired := fixture()
			plan, err := p.Plan(context.Background(), remote, desired)
			require.NoError(t, err)

			var ids []string
			for _, item := range plan.Items {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, want, ids)
			assert.Equal(t, 4-len(want), plan.Skipped)
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := planner.New(planner.Options{Kind: "order"})
	assert.ErrorIs(t, err, policy.ErrUnknownKind)

	_, err = planner.New(planner.Options{Kind: policy.Tag, Filter: "Unknown("})
	assert.Error(t, err)

	_, err = planner.New(planner.Options{Kind: policy.Tag, Filter: "ID"})
	assert.Error(t, err, "filters must be boolean")
}

func TestWorkersAreClamped(t *testing.T) {
	for in, want := range map[int]int{0: planner.DefaultWorkers, -3: 1, 1: 1, 1000: planner.MaxWorkers} {
		p, err := planner.New(planner.Options{Kind: policy.Tag, Workers: in})
		require.NoError(t, err)
		assert.Equal(t, want, p.Workers(), "workers %d", in)
	}
}

func TestPlanIdentityErrors(t *testing.T) {
	p, err := planner.New(planner.Options{Kind: policy.Product})
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), nil, []map[string]any{{"name": "no sku"}})
	assert.ErrorIs(t, err, planner.ErrIdentity)

	_, err = p.Plan(context.Background(), []map[string]any{{"sku": "A"}, {"sku": "A"}}, nil)
	assert.ErrorIs(t, err, planner.ErrIdentity)
}

func TestPlanConfigError(t *testing.T) {
	p, err := planner.New(planner.Options{Kind: policy.Product})
	require.NoError(t, err)

	remote := []map[string]any{{"sku": "A", "tags": []any{record{"name": "no id"}}}}
	desired := []map[string]any{{"sku": "A", "tags": []any{record{"id": 1}}}}
	_, err = p.Plan(context.Background(), remote, desired)
	assert.ErrorIs(t, err, deepdiff.ErrConfig)
	assert.ErrorContains(t, err, `"A"`)
}

func TestPlanCustomPolicyAndIdentity(t *testing.T) {
	p, err := planner.New(planner.Options{
		Kind:     policy.Category,
		Identity: "image.slug",
		Policy:   &deepdiff.Policy{IgnoreKeys: []string{"description"}},
	})
	require.NoError(t, err)

	remote := []map[string]any{{"image": record{"slug": "x"}, "description": "old"}}
	desired := []map[string]any{{"image": record{"slug": "x"}, "description": "new"}}
	plan, err := p.Plan(context.Background(), remote, desired)
	require.NoError(t, err)
	assert.Equal(t, map[string]planner.Action{"x": planner.ActionUnchanged}, actions(plan))
}

func TestPlanIndependentOfWorkers(t *testing.T) {
	var remote, desired []map[string]any
	for i := 0; i < 200; i++ {
		sku := fmt.Sprintf("SKU-%03d", i)
		remote = append(remote, record{"sku": sku, "price": i, "meta_data": []any{record{"key": "n", "value": i}}})
		if i%3 != 0 {
			desired = append(desired, record{"sku": sku, "price": i + i%2, "meta_data": []any{record{"key": "n", "value": i}}})
		}
	}

	encoded := make([][]byte, 0, 2)
	for _, workers := range []int{1, 16} {
		p, err := planner.New(planner.Options{Kind: policy.Product, Workers: workers})
		require.NoError(t, err)
		plan, err := p.Plan(context.Background(), remote, desired)
		require.NoError(t, err)
		raw, err := json.Marshal(plan.Items)
		require.NoError(t, err)
		encoded = append(encoded, raw)
	}
	assert.JSONEq(t, string(encoded[0]), string(encoded[1]))
}

func TestPlanCanceled(t *testing.T) {
	p, err := planner.New(planner.Options{Kind: policy.Product})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	remote, desired := fixture()
	_, err = p.Plan(ctx, remote, desired)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeLedger struct {
	mu      sync.Mutex
	commits map[string]map[string]any
}

func (f *fakeLedger) Commit(_ context.Context, id string, state map[string]any) (store.RevisionID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commits == nil {
		f.commits = make(map[string]map[string]any)
	}
	if _, ok := f.commits[id]; ok {
		return 0, service.ErrUnchanged
	}
	f.commits[id] = state
	return store.RevisionID(len(f.commits)), nil
}

func TestPlanRecordsLedger(t *testing.T) {
	ledger := &fakeLedger{}
	p, err := planner.New(planner.Options{Kind: policy.Product, Ledger: ledger})
	require.NoError(t, err)

	remote, desired := fixture()
	plan, err := p.Plan(context.Background(), remote, desired)
	require.NoError(t, err)

	assert.Len(t, ledger.commits, 2)
	assert.Contains(t, ledger.commits, "product:A")
	assert.Contains(t, ledger.commits, "product:C")
	require.NotNil(t, plan.Items[0].Revision)
	assert.Equal(t, store.RevisionID(1), *plan.Items[0].Revision)
	assert.Nil(t, plan.Items[1].Revision)

	// a second run finds the same payloads already recorded
	_, err = p.Plan(context.Background(), remote, desired)
	require.NoError(t, err)
	assert.Len(t, ledger.commits, 2)
}

func TestWriteTable(t *testing.T) {
	p, err := planner.New(planner.Options{Kind: policy.Product})
	require.NoError(t, err)
	remote, desired := fixture()
	plan, err := p.Plan(context.Background(), remote, desired)
	require.NoError(t, err)

	var buf bytes.Buffer
	plan.WriteTable(&buf)
	out := buf.String()
	assert.Contains(t, out, "regular_price")
	assert.Contains(t, out, "orphan")
	// the footer is upper-cased by the table style
	assert.Contains(t, strings.ToLower(out), "1 create, 1 update, 1 unchanged, 1 orphan")
}
