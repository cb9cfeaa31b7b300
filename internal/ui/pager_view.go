package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// PagerView shows a block of pre-rendered text in a scrollable viewport.
type PagerView struct {
	Base

	title    string
	content  string
	viewport viewport.Model
}

var _ View = (*PagerView)(nil)

func NewPagerView(title, content string) *PagerView {
	pv := &PagerView{
		title:    title,
		content:  content,
		viewport: viewport.New(10, 10), // will be overwritten by SetSize
	}
	pv.viewport.SetContent(content)
	return pv
}

func (pv *PagerView) SetSize(width, height int) {
	pv.Base.SetSize(width, height)
	pv.viewport.Width = max(0, width-2)
	pv.viewport.Height = max(0, height-2)
}

func (pv *PagerView) Breadcrumb() string {
	return pv.title
}

func (pv *PagerView) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "esc":
			return pv, tea.Quit
		default:
			return pv, ScrollViewport(k, &pv.viewport)
		}
	}
	return pv, nil
}

func (pv *PagerView) View() string {
	return pv.Theme.BorderIdleContainerStyle.Render(pv.viewport.View())
}

func (pv *PagerView) KeyMap() string {
	return NewShortcuts(
		"q", "quit",
		"↑/↓/pgup/pgdn", "scroll",
		"g/G", "top/bottom",
	).Render(pv.Theme)
}

// RunPager shows [content] in a full screen pager until the user quits.
func RunPager(title, content string) error {
	return Run(DarkTheme, NewPagerView(title, content))
}
