package patch_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wI2L/jsondiff"

	"github.com/mwoo-bridge/mwoo/internal/patch"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

func TestOperationsFromChangeSet(t *testing.T) {
	remote := map[string]any{
		"name":          "Course",
		"regular_price": "10",
		"tags":          []any{map[string]any{"id": 1.0, "name": "a"}, map[string]any{"id": 2.0, "name": "b"}},
	}
	desired := map[string]any{
		"name":          "Course",
		"regular_price": "12",
		"tags":          []any{map[string]any{"id": 2.0, "name": "B"}},
	}
	cfg := deepdiff.Fields{"tags": &deepdiff.Policy{UniqueBy: "id"}}

	chg, err := deepdiff.Diff(remote, desired, cfg)
	require.NoError(t, err)

	ops, err := patch.Operations(remote, chg, cfg)
	require.NoError(t, err)

	var got []string
	for _, op := range ops {
		got = append(got, fmt.Sprintf("%s %s %v", op.Type, op.Path, op.Value))
	}
	assert.ElementsMatch(t, []string{
		"replace /regular_price 12",
		"replace /tags/1/name B",
	}, got)

	// the keyed tag "a" only exists remotely and is left alone
	patched, err := patch.ApplyOperations(remote, ops)
	require.NoError(t, err)
	assert.Equal(t, "12", patched["regular_price"])
	assert.Len(t, patched["tags"], 2)
	assert.Equal(t, "10", remote["regular_price"])
}

func TestOperationsNoChange(t *testing.T) {
	ops, err := patch.Operations(map[string]any{"a": 1}, map[string]any{}, nil)
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestOperationsRemoval(t *testing.T) {
	remote := map[string]any{"a": "x", "b": "y"}
	chg := map[string]any{"b": deepdiff.Undefined}

	ops, err := patch.Operations(remote, chg, nil)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, jsondiff.OperationRemove, ops[0].Type)
	assert.Equal(t, "/b", ops[0].Path)

	patched, err := patch.ApplyOperations(remote, ops)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x"}, patched)
}

func TestApplyOperationsInvalid(t *testing.T) {
	_, err := patch.ApplyOperations(map[string]any{}, []jsondiff.Operation{
		{Type: jsondiff.OperationReplace, Path: "/missing", Value: 1},
	})
	assert.Error(t, err)
}
