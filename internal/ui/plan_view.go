package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/mwoo-bridge/mwoo/internal/planner"
	"github.com/mwoo-bridge/mwoo/internal/util"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
	"github.com/mwoo-bridge/mwoo/pkg/diffpreview"
)

const (
	arrowDown  = "▾"
	arrowRight = "▸"

	pageScrollSkip = 5
	sizeSkip       = 2

	selectRecordBanner = `
         .-"-.
       _/_-.-_\_   WHICH
      / __} {__ \     RECORD
     / //  "  \\ \      ???
    / / \'---'/ \ \`
)

type renderMode uint

const (
	modeDiffPretty renderMode = iota
	modeDiffJSON
	modePayloadJSON
	modePatchJSON
	modeRemoteJSON

	_modeMax // only a helper to get the number of modes
)

func (r renderMode) String() string {
	switch r {
	case modeDiffPretty:
		return "diff (pretty)"
	case modeDiffJSON:
		return "diff (json)"
	case modePayloadJSON:
		return "payload (json)"
	case modePatchJSON:
		return "patch (json)"
	case modeRemoteJSON:
		return "remote (json)"
	default:
		return "unknown"
	}
}

// actionOrder is the order of the groups in the list, most urgent first.
var actionOrder = []planner.Action{
	planner.ActionCreate,
	planner.ActionUpdate,
	planner.ActionOrphan,
	planner.ActionUnchanged,
}

type actionGroup struct {
	action planner.Action
	open   bool
	items  []int // indices into Plan.Items
}

// row is one line of the left pane: a group header (item < 0) or a record.
type row struct {
	group *actionGroup
	item  int
}

// PlanView browses the items of a plan: records grouped by action on the left,
// the selected record's diff, payload or patch on the right.
type PlanView struct {
	Base

	plan   *planner.Plan
	policy deepdiff.Config

	left, right viewport.Model
	leftExtra   int

	groups []*actionGroup

	// ui state
	cursor     int
	focusRight bool
	renderMode renderMode
	fullscreen bool
	highlight  bool
}

var _ View = (*PlanView)(nil)

// NewPlanView builds the view of [plan]; [policy] is the comparison policy
// the plan was made with.
func NewPlanView(plan *planner.Plan, policy deepdiff.Config) *PlanView {
	pv := &PlanView{
		plan:   plan,
		policy: policy,

		left:  viewport.New(5, 5), // will be overwritten by SetSize
		right: viewport.New(5, 5), // will be overwritten by SetSize
	}
	for _, action := range actionOrder {
		group := &actionGroup{
			action: action,
			// unchanged records are the boring majority
			open: action != planner.ActionUnchanged,
		}
		for i, item := range plan.Items {
			if item.Action == action {
				group.items = append(group.items, i)
			}
		}
		if len(group.items) > 0 {
			pv.groups = append(pv.groups, group)
		}
	}
	pv.render()
	return pv
}

func (pv *PlanView) Breadcrumb() string {
	return "plan " + pv.plan.Kind.String()
}

func (pv *PlanView) calculateViewportSizes() {
	if pv.fullscreen {
		pv.right.Width = pv.Width
		pv.right.Height = pv.Height
		return
	}
	// 2 for the border of each pane
	leftWidth := max(0, (pv.Width/2+pv.leftExtra)-2)
	pv.left.Width, pv.left.Height = leftWidth, max(0, pv.Height-2)

	rightWidth := max(0, pv.Width-leftWidth-4)
	pv.right.Width, pv.right.Height = rightWidth, max(0, pv.Height-2)
}

// SetSize sets the size of the left and right panes.
func (pv *PlanView) SetSize(width, height int) {
	pv.Base.SetSize(width, height)
	pv.calculateViewportSizes()
	pv.render()
}

func (pv *PlanView) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		if cmd := pv.handleKey(k); cmd != nil {
			return pv, cmd
		}
	}
	return pv, pv.render()
}

func (pv *PlanView) View() string {
	if pv.fullscreen {
		return pv.right.View()
	}
	leftBox := ternary(pv.focusRight, pv.Theme.BorderIdleContainerStyle, pv.Theme.BorderActiveContainerStyle).
		Render(pv.left.View())
	rightBox := ternary(pv.focusRight, pv.Theme.BorderActiveContainerStyle, pv.Theme.BorderIdleContainerStyle).
		Render(pv.right.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
}

func (pv *PlanView) KeyMap() string {
	return fmt.Sprintf("[mode: %s] %s",
		pv.Theme.PrimaryTextStyle.Render(pv.renderMode.String()),
		NewShortcuts().
			// general shortcuts
			Add("q", "quit").
			Add("⇥", "focus").
			Add("p", "mode").
			Add("h", "highlight "+ternary(pv.highlight, "off", "on")).

			// left-only shortcuts
			AddIf(!pv.focusRight, "↑/↓/pgup/pgdn", "scroll").
			AddIf(!pv.focusRight, "←/→", "collapse").
			AddIf(!pv.focusRight, "⏎", "toggle").

			// right-only shortcuts
			AddIf(pv.focusRight, "↑/↓/←/→", "move").
			AddIf(pv.focusRight, "f", "fullscreen").
			Render(pv.Theme))
}

func (pv *PlanView) handleKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "q":
		return tea.Quit
	case "tab":
		pv.focusRight = !pv.focusRight
	case "p":
		pv.renderMode = (pv.renderMode + 1) % _modeMax
	case "h":
		pv.highlight = !pv.highlight
	case "f":
		pv.fullscreen = !pv.fullscreen
		pv.calculateViewportSizes()
	case "+", "-":
		limit := max(0, pv.Width/2-8)
		step := ternary(k.String() == "+", sizeSkip, -sizeSkip)
		pv.leftExtra = util.Clamp(pv.leftExtra+step, -limit, limit)
		pv.calculateViewportSizes()
	default:
		if pv.focusRight {
			return ScrollViewport(k, &pv.right)
		}
		pv.navigateLeft(k)
	}
	return nil
}

func (pv *PlanView) navigateLeft(k tea.KeyMsg) {
	last := len(pv.rows()) - 1
	switch k.String() {
	case "up", "k":
		pv.cursor = util.Clamp(pv.cursor-1, 0, max(0, last))
	case "down", "j":
		pv.cursor = util.Clamp(pv.cursor+1, 0, max(0, last))
	case "pgup":
		pv.cursor = util.Clamp(pv.cursor-pageScrollSkip, 0, max(0, last))
	case "pgdown":
		pv.cursor = util.Clamp(pv.cursor+pageScrollSkip, 0, max(0, last))
	case "left":
		pv.toggle(false)
	case "right", "l":
		pv.toggle(true)
	case "enter", " ":
		if r, ok := pv.selection(); ok && r.item < 0 {
			pv.toggle(!r.group.open)
		}
	}
	pv.keepVisible()
}

// toggle opens or closes the group under the cursor, or the group of the
// record under the cursor.
func (pv *PlanView) toggle(open bool) {
	r, ok := pv.selection()
	if !ok || r.group.open == open {
		return
	}
	r.group.open = open
	if !open {
		// move the cursor onto the collapsed header
		for i, other := range pv.rows() {
			if other.group == r.group && other.item < 0 {
				pv.cursor = i
				break
			}
		}
	}
}

func (pv *PlanView) keepVisible() {
	if pv.cursor < pv.left.YOffset {
		pv.left.YOffset = pv.cursor
	}
	if pv.cursor >= pv.left.YOffset+pv.left.Height {
		pv.left.YOffset = pv.cursor - pv.left.Height + 1
	}
}

func (pv *PlanView) rows() []row {
	var rows []row
	for _, group := range pv.groups {
		rows = append(rows, row{group: group, item: -1})
		if !group.open {
			continue
		}
		for _, item := range group.items {
			rows = append(rows, row{group: group, item: item})
		}
	}
	return rows
}

func (pv *PlanView) selection() (row, bool) {
	rows := pv.rows()
	if pv.cursor < 0 || pv.cursor >= len(rows) {
		return row{}, false
	}
	return rows[pv.cursor], true
}

// Selected returns the record under the cursor.
func (pv *PlanView) Selected() (planner.Item, bool) {
	r, ok := pv.selection()
	if !ok || r.item < 0 {
		return planner.Item{}, false
	}
	return pv.plan.Items[r.item], true
}

func (pv *PlanView) actionStyle(action planner.Action) lipgloss.Style {
	switch action {
	case planner.ActionCreate:
		return pv.Theme.ActionCreateTextStyle
	case planner.ActionUpdate:
		return pv.Theme.ActionUpdateTextStyle
	case planner.ActionOrphan:
		return pv.Theme.ActionOrphanTextStyle
	default:
		return pv.Theme.ActionUnchangedTextStyle
	}
}

func (pv *PlanView) render() tea.Cmd {
	pv.renderLeft()
	return pv.renderRight()
}

func (pv *PlanView) renderLeft() {
	if len(pv.groups) == 0 {
		pv.left.SetContent(pv.Theme.MutedTextStyle.Render("no records"))
		return
	}

	var b strings.Builder
	for i, r := range pv.rows() {
		isSelected := pv.cursor == i
		cursor := ternary(isSelected, pv.Theme.ListCurrentArrowTextStyle.Render(arrowRight), " ")

		if r.item < 0 {
			_, _ = fmt.Fprintf(&b, "%s %s %s %s\n",
				cursor,
				ternary(r.group.open, arrowDown, arrowRight),
				pv.actionStyle(r.group.action).Inherit(pv.Theme.ListGroupTextStyle).Render(string(r.group.action)),
				pv.Theme.MutedTextStyle.Render(fmt.Sprintf("(%s)", humanize.Comma(int64(len(r.group.items))))))
			continue
		}

		item := pv.plan.Items[r.item]
		var info []string
		if len(item.Operations) > 0 {
			info = append(info, fmt.Sprintf("%d ops", len(item.Operations)))
		}
		if item.Revision != nil {
			info = append(info, pv.Theme.ListRevisionTextStyle.Render(item.Revision.String()))
		}
		_, _ = fmt.Fprintf(&b, "%s   %s %s\n",
			cursor,
			pv.Theme.ListRecordTextStyle.Render(item.ID),
			pv.Theme.MutedTextStyle.Render(strings.Join(info, " | ")))
	}
	pv.left.SetContent(b.String())
}

func (pv *PlanView) renderRight() tea.Cmd {
	r, ok := pv.selection()
	if !ok {
		pv.right.SetContent(pv.Theme.MutedTextStyle.Render(selectRecordBanner))
		return nil
	}
	if r.item < 0 {
		pv.right.SetContent(pv.Theme.MutedTextStyle.Render(selectRecordBanner) + "\n\n" +
			groupSummary(r.group))
		return nil
	}
	item := pv.plan.Items[r.item]

	var asJSON any
	switch pv.renderMode {
	case modeDiffPretty:
		pv.right.SetContent(pv.renderPretty(item))
		return nil
	case modeDiffJSON:
		if item.Diff != nil {
			asJSON = deepdiff.Export(item.Diff)
		}
	case modePayloadJSON:
		if item.Payload != nil {
			asJSON = item.Payload
		}
	case modePatchJSON:
		if len(item.Operations) > 0 {
			asJSON = item.Operations
		}
	case modeRemoteJSON:
		if item.Remote != nil {
			asJSON = item.Remote
		}
	}

	if asJSON == nil {
		pv.right.SetContent(pv.Theme.MutedTextStyle.Render("nothing to show for " + string(item.Action) + " records"))
		return nil
	}
	j, err := json.MarshalIndent(asJSON, "", "  ")
	if err != nil {
		pv.right.SetContent("")
		return PushAlert("when rendering "+item.ID, err)
	}
	pv.right.SetContent(string(j))
	return nil
}

func (pv *PlanView) renderPretty(item planner.Item) string {
	opts := diffpreview.RenderOptions{
		IndentSize:                2,
		EnableBackgroundHighlight: pv.highlight,
		Markers:                   !pv.highlight,
	}
	switch item.Action {
	case planner.ActionUpdate:
		node := diffpreview.Annotate(item.Remote, item.Diff, pv.policy, false)
		return diffpreview.RenderYAML(node, diffpreview.DarkTheme, opts)
	case planner.ActionCreate:
		node := diffpreview.Annotate(map[string]any{}, item.Payload, nil, false)
		return diffpreview.RenderYAML(node, diffpreview.DarkTheme, opts)
	case planner.ActionOrphan:
		return pv.Theme.MutedTextStyle.Render("only exists remotely, it will not be deleted")
	default:
		return pv.Theme.MutedTextStyle.Render("no difference between remote and desired state")
	}
}

func groupSummary(group *actionGroup) string {
	noun := ternary(len(group.items) == 1, "record", "records")
	count := humanize.Comma(int64(len(group.items)))
	switch group.action {
	case planner.ActionCreate:
		return fmt.Sprintf("%s %s will be created", count, noun)
	case planner.ActionUpdate:
		return fmt.Sprintf("%s %s will be updated", count, noun)
	case planner.ActionOrphan:
		return fmt.Sprintf("%s %s only exist remotely", count, noun)
	default:
		return fmt.Sprintf("%s %s are up-to-date", count, noun)
	}
}
