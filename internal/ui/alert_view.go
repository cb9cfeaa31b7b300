package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// AlertView shows an error on top of the current view until dismissed.
type AlertView struct {
	Base

	Title string
	Err   error
}

var _ View = (*AlertView)(nil)

func (av *AlertView) View() string {
	lines := []string{
		av.Theme.ErrorTextStyle.Render(av.Err.Error()),
	}
	if details := alertDetails(av.Err); len(details) > 0 {
		lines = append(lines, "")
		for _, d := range details {
			lines = append(lines, av.Theme.MutedTextStyle.Render(d))
		}
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		av.Theme.PrimaryTextStyle.Render("Failed "+av.Title),
		"",
		strings.Join(lines, "\n"),
	)
	return lipgloss.Place(av.Width, av.Height, lipgloss.Center, lipgloss.Center,
		av.Theme.AlertContainerStyle.Render(body))
}

// alertDetails spells out where a comparison policy did not fit the records.
func alertDetails(err error) []string {
	var cfgErr *deepdiff.ConfigError
	if !errors.As(err, &cfgErr) {
		return nil
	}
	path := strings.Join(cfgErr.Path, ".")
	if path == "" {
		path = "(root)"
	}
	details := []string{
		"array:     " + path,
		fmt.Sprintf("element:   %s #%d", cfgErr.Side, cfgErr.Index),
		"unique_by: " + cfgErr.UniqueBy,
	}
	if cfgErr.Value != nil {
		details = append(details, fmt.Sprintf("value:     %v", cfgErr.Value))
	}
	return details
}

func (av *AlertView) KeyMap() string {
	return NewShortcuts("esc/enter", "dismiss").Render(av.Theme)
}

func (av *AlertView) Breadcrumb() string {
	return "Error (" + av.Title + ")"
}

func (av *AlertView) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "enter", "q":
			return av, PushChangeView(Pop, nil)
		}
	}
	return av, nil
}
