package diffpreview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
	"github.com/mwoo-bridge/mwoo/pkg/diffpreview"
)

var plain = diffpreview.RenderOptions{
	Options:    diffpreview.Options{MarkRemovals: true},
	IndentSize: 2,
	Markers:    true,
}

func TestDiffAnnotates(t *testing.T) {
	left := map[string]any{"name": "a", "price": "10", "old": true, "dims": map[string]any{"w": 1, "h": 2}}
	right := map[string]any{"name": "b", "price": "10", "new": 1, "dims": map[string]any{"w": 1, "h": 3}}

	node, err := diffpreview.Diff(left, right, nil, diffpreview.Options{MarkRemovals: true})
	require.NoError(t, err)

	require.Contains(t, node.Children, "name")
	assert.Equal(t, diffpreview.Modified, node.Children["name"].Change)
	assert.Equal(t, "b", node.Children["name"].Value)
	assert.Equal(t, diffpreview.Added, node.Children["new"].Change)
	assert.Equal(t, diffpreview.Removed, node.Children["old"].Change)
	assert.Equal(t, true, node.Children["old"].Value)
	assert.NotContains(t, node.Children, "price")
	assert.Equal(t, diffpreview.Modified, node.Children["dims"].Children["h"].Change)
	assert.NotContains(t, node.Children["dims"].Children, "w")

	assert.Equal(t, map[diffpreview.ChangeType]int{
		diffpreview.Modified: 2,
		diffpreview.Added:    1,
		diffpreview.Removed:  1,
	}, node.Changes())
}

func TestDiffWithoutRemovals(t *testing.T) {
	node, err := diffpreview.Diff(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 2}, nil, diffpreview.Options{})
	require.NoError(t, err)
	assert.NotContains(t, node.Children, "b")
}

func TestDiffUnchangedContext(t *testing.T) {
	left := map[string]any{"a": 1, "b": map[string]any{"c": 1}}
	right := map[string]any{"a": 2, "b": map[string]any{"c": 1}}

	node, err := diffpreview.Diff(left, right, nil, diffpreview.Options{Unchanged: true})
	require.NoError(t, err)
	assert.Equal(t, diffpreview.Modified, node.Children["a"].Change)
	assert.Equal(t, diffpreview.Unchanged, node.Children["b"].Children["c"].Change)
	assert.Equal(t, 1, node.Children["b"].Children["c"].Value)
}

func TestDiffPositionalArray(t *testing.T) {
	left := map[string]any{"list": []any{"a", "b", "c"}}
	right := map[string]any{"list": []any{"a", "x", "c"}}

	node, err := diffpreview.Diff(left, right, nil, diffpreview.Options{})
	require.NoError(t, err)

	list := node.Children["list"]
	require.True(t, list.IsList())
	require.Len(t, list.Children, 1)
	assert.Equal(t, 1, list.Children["1"].Index)
	assert.Equal(t, "x", list.Children["1"].Value)
}

func TestDiffKeyedArrayShowsMergedValue(t *testing.T) {
	left := map[string]any{"tags": []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
	}}
	right := map[string]any{"tags": []any{
		map[string]any{"id": 2, "name": "B"},
		map[string]any{"id": 1, "name": "a"},
	}}
	cfg := deepdiff.Fields{"tags": &deepdiff.Policy{UniqueBy: "id"}}

	node, err := diffpreview.Diff(left, right, cfg, diffpreview.Options{})
	require.NoError(t, err)

	tags := node.Children["tags"]
	assert.Equal(t, diffpreview.Modified, tags.Change)
	assert.Equal(t, []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "B"},
	}, tags.Value)
}

func TestDiffConfigError(t *testing.T) {
	left := map[string]any{"tags": []any{map[string]any{"name": "a"}}}
	right := map[string]any{"tags": []any{map[string]any{"name": "b"}}}

	_, err := diffpreview.Diff(left, right, deepdiff.Fields{"tags": &deepdiff.Policy{UniqueBy: "id"}}, diffpreview.Options{})
	assert.ErrorIs(t, err, deepdiff.ErrConfig)
}

func TestRenderMarkers(t *testing.T) {
	left := map[string]any{"name": "a", "old": 1, "dims": map[string]any{"h": 2}}
	right := map[string]any{"name": "b", "new": []any{"x"}, "dims": map[string]any{"h": 3}}

	out, err := diffpreview.RenderWithOptions(left, right, nil, diffpreview.PlainTheme, plain)
	require.NoError(t, err)

	assert.Equal(t, ""+
		"  dims:\n"+
		"~   h: 3\n"+
		"~ name: \"b\"\n"+
		"+ new: \n"+
		"+   - \"x\"\n"+
		"- old: 1\n", out)
}

func TestRenderEmpty(t *testing.T) {
	out, err := diffpreview.Render(map[string]any{"a": 1}, map[string]any{"a": 1.0}, nil, diffpreview.PlainTheme)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "added", diffpreview.Added.String())
	assert.Equal(t, "removed", diffpreview.Removed.String())
	assert.Equal(t, "modified", diffpreview.Modified.String())
	assert.Equal(t, "unchanged", diffpreview.Unchanged.String())
}
