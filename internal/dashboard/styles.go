package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dim    = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	red    = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}
	green  = lipgloss.AdaptiveColor{Light: "2", Dark: "10"}
)

var (
	mutedText    = lipgloss.NewStyle().Foreground(dim)
	errorText    = lipgloss.NewStyle().Foreground(red)
	titleText    = lipgloss.NewStyle().Bold(true)
	focusedLabel = lipgloss.NewStyle().Foreground(accent).Bold(true)
	tagText      = lipgloss.NewStyle().Foreground(accent)

	pagerActive  = lipgloss.NewStyle().Foreground(accent)
	pagerCurrent = lipgloss.NewStyle().Bold(true)

	tabActive   = lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	tabInactive = lipgloss.NewStyle().Foreground(dim)

	modalBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	toastSuccess = lipgloss.NewStyle().Foreground(green)
	toastError   = lipgloss.NewStyle().Foreground(red)
)
