package tui

import "github.com/charmbracelet/lipgloss"

// Styles are grounded on the teacher's internal/tui/styles.go palette
// (tab colors 205/236/240, danger 196, warning 214) reused verbatim so
// a reader moving between the CLI's TUI and this one sees the same look.
var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 1)

	dayHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	selectedDayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	sessionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	hardWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)

	softWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Italic(true)

	docStyle = lipgloss.NewStyle().Padding(1, 2)
)
