package ui

import "github.com/charmbracelet/lipgloss"

// Some predefined colors

var (
	ColorRed         = lipgloss.Color("1")
	ColorGreen       = lipgloss.Color("2")
	ColorBlack       = lipgloss.Color("0")
	ColorWhite       = lipgloss.Color("7")
	ColorBrightBlue  = lipgloss.Color("33")
	ColorLightGray   = lipgloss.Color("243")
	ColorGray        = lipgloss.Color("238")
	ColorMutedPurple = lipgloss.Color("92")
	ColorOrange      = lipgloss.Color("214")
)

type Theme struct {
	ListGroupTextStyle        lipgloss.Style
	ListRecordTextStyle       lipgloss.Style
	ListRevisionTextStyle     lipgloss.Style
	ListCurrentArrowTextStyle lipgloss.Style

	// action colors in the plan list
	ActionCreateTextStyle    lipgloss.Style
	ActionUpdateTextStyle    lipgloss.Style
	ActionUnchangedTextStyle lipgloss.Style
	ActionOrphanTextStyle    lipgloss.Style

	AlertContainerStyle        lipgloss.Style
	BorderActiveContainerStyle lipgloss.Style
	BorderIdleContainerStyle   lipgloss.Style

	MutedTextStyle   lipgloss.Style
	ErrorTextStyle   lipgloss.Style
	PrimaryTextStyle lipgloss.Style

	BreadcrumbBarStyle lipgloss.Style
	HelpBarStyle       lipgloss.Style
}

var DarkTheme = Theme{
	ListGroupTextStyle: lipgloss.NewStyle().
		Bold(true),
	ListRecordTextStyle: lipgloss.NewStyle(),
	ListRevisionTextStyle: lipgloss.NewStyle().
		Foreground(ColorMutedPurple),
	ListCurrentArrowTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),

	ActionCreateTextStyle: lipgloss.NewStyle().
		Foreground(ColorGreen),
	ActionUpdateTextStyle: lipgloss.NewStyle().
		Foreground(ColorOrange),
	ActionUnchangedTextStyle: lipgloss.NewStyle().
		Foreground(ColorLightGray),
	ActionOrphanTextStyle: lipgloss.NewStyle().
		Foreground(ColorRed).
		Italic(true),

	AlertContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ColorRed).
		Padding(4, 4),
	BorderActiveContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBrightBlue),
	BorderIdleContainerStyle: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray),

	MutedTextStyle: lipgloss.NewStyle().
		Foreground(ColorLightGray),
	ErrorTextStyle: lipgloss.NewStyle().
		Foreground(ColorRed).
		Bold(true),
	PrimaryTextStyle: lipgloss.NewStyle().
		Foreground(ColorBrightBlue),

	BreadcrumbBarStyle: lipgloss.NewStyle().
		Padding(0, 1).
		Background(ColorBrightBlue).
		Foreground(ColorWhite),
	HelpBarStyle: lipgloss.NewStyle().
		Padding(0, 1),
}
