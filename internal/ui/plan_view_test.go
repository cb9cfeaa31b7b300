package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwoo-bridge/mwoo/internal/planner"
	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

func testPlan() *planner.Plan {
	return &planner.Plan{
		Kind: policy.Product,
		Items: []planner.Item{
			{ID: "A-1", Action: planner.ActionUnchanged, Remote: map[string]any{"sku": "A-1"}},
			{
				ID:      "B-2",
				Action:  planner.ActionUpdate,
				Remote:  map[string]any{"sku": "B-2", "name": "old"},
				Diff:    map[string]any{"name": "new"},
				Payload: map[string]any{"sku": "B-2", "name": "new"},
			},
			{ID: "C-3", Action: planner.ActionCreate, Payload: map[string]any{"sku": "C-3", "status": "private"}},
			{ID: "D-4", Action: planner.ActionOrphan, Remote: map[string]any{"sku": "D-4"}},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestPlanView(t *testing.T) *PlanView {
	t.Helper()
	pv := NewPlanView(testPlan(), policy.Product.Policy())
	pv.SetTheme(DarkTheme)
	pv.SetSize(120, 30)
	return pv
}

func press(t *testing.T, v View, keys ...string) View {
	t.Helper()
	for _, k := range keys {
		v, _ = v.Update(key(k))
	}
	return v
}

func TestPlanViewGroupsByAction(t *testing.T) {
	pv := newTestPlanView(t)

	var actions []planner.Action
	for _, g := range pv.groups {
		actions = append(actions, g.action)
	}
	assert.Equal(t, []planner.Action{
		planner.ActionCreate,
		planner.ActionUpdate,
		planner.ActionOrphan,
		planner.ActionUnchanged,
	}, actions)

	// unchanged starts collapsed: 4 headers and 3 records
	assert.Len(t, pv.rows(), 7)

	out := pv.View()
	assert.Contains(t, out, "C-3")
	assert.Contains(t, out, "B-2")
	assert.NotContains(t, out, "A-1")
}

func TestPlanViewNavigation(t *testing.T) {
	pv := newTestPlanView(t)

	_, ok := pv.Selected()
	assert.False(t, ok, "cursor starts on a header")

	press(t, pv, "down")
	item, ok := pv.Selected()
	require.True(t, ok)
	assert.Equal(t, "C-3", item.ID)
	assert.Contains(t, pv.right.View(), "status")

	press(t, pv, "down", "down")
	item, ok = pv.Selected()
	require.True(t, ok)
	assert.Equal(t, "B-2", item.ID)
	assert.Contains(t, pv.right.View(), `name: "new"`)

	// the cursor never leaves the list
	press(t, pv, "up", "up", "up", "up", "up", "up")
	assert.Equal(t, 0, pv.cursor)
}

func TestPlanViewToggleGroup(t *testing.T) {
	pv := newTestPlanView(t)

	// collapse "create" from its record, the cursor jumps back to the header
	press(t, pv, "down", "left")
	assert.Equal(t, 0, pv.cursor)
	assert.Len(t, pv.rows(), 6)

	// open "unchanged", the last header
	press(t, pv, "down", "down", "down", "down", "down")
	r, ok := pv.selection()
	require.True(t, ok)
	require.Equal(t, planner.ActionUnchanged, r.group.action)
	press(t, pv, "enter")
	assert.Len(t, pv.rows(), 7)
	assert.Contains(t, pv.View(), "A-1")
}

func TestPlanViewRenderModes(t *testing.T) {
	pv := newTestPlanView(t)
	press(t, pv, "down", "down", "down") // B-2

	press(t, pv, "p")
	assert.Equal(t, modeDiffJSON, pv.renderMode)
	assert.Contains(t, pv.right.View(), `"name": "new"`)

	press(t, pv, "p", "p")
	assert.Equal(t, modePatchJSON, pv.renderMode)
	assert.Contains(t, pv.right.View(), "nothing to show")

	press(t, pv, "p")
	assert.Equal(t, modeRemoteJSON, pv.renderMode)
	assert.Contains(t, pv.right.View(), `"name": "old"`)

	press(t, pv, "p")
	assert.Equal(t, modeDiffPretty, pv.renderMode)
}

func TestPlanViewFocusAndQuit(t *testing.T) {
	pv := newTestPlanView(t)

	press(t, pv, "tab")
	assert.True(t, pv.focusRight)
	assert.Contains(t, pv.KeyMap(), "fullscreen")

	_, cmd := pv.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestGroupSummary(t *testing.T) {
	assert.Equal(t, "1 record will be created",
		groupSummary(&actionGroup{action: planner.ActionCreate, items: []int{0}}))
	assert.Equal(t, "2 records are up-to-date",
		groupSummary(&actionGroup{action: planner.ActionUnchanged, items: []int{0, 1}}))
}

func TestRootViewStack(t *testing.T) {
	pager := NewPagerView("preview", strings.Repeat("line\n", 100))
	var model tea.Model = NewRoot(DarkTheme, pager)

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	root := model.(Root)
	assert.Equal(t, 19, root.Height)
	assert.Contains(t, root.View(), "preview")

	// alerts are pushed on top and popped with esc
	model, cmd := model.Update(NewAlert("loading", errors.New("boom")))
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	require.Len(t, model.(Root).ViewStack, 2)
	assert.Contains(t, model.(Root).View(), "boom")

	model, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	model, _ = model.Update(cmd())
	assert.Len(t, model.(Root).ViewStack, 1)
}

func TestAlertViewDetails(t *testing.T) {
	_, err := deepdiff.Diff(
		map[string]any{"images": []any{map[string]any{"id": 1}}},
		map[string]any{"images": []any{map[string]any{"src": "a.png"}}},
		deepdiff.Fields{"images": &deepdiff.Policy{UniqueBy: "id"}},
	)
	require.Error(t, err)

	assert.Equal(t, []string{
		"array:     images",
		"element:   right #0",
		"unique_by: id",
	}, alertDetails(err))
	assert.Nil(t, alertDetails(errors.New("boom")))

	av := &AlertView{Title: "diffing B-2", Err: err}
	av.SetTheme(DarkTheme)
	av.SetSize(100, 20)
	out := av.View()
	assert.Contains(t, out, "Failed diffing B-2")
	assert.Contains(t, out, "unique_by: id")

	_, cmd := av.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, cmd = av.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}
