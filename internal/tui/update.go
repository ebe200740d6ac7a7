package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case msg.String() == "q" || msg.String() == "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case msg.String() == "?":
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case msg.String() == "tab":
			if m.tab == tabPlan {
				m.tab = tabWarnings
			} else {
				m.tab = tabPlan
			}
			m.cursor = 0
			return m, nil

		case msg.String() == "up" || msg.String() == "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case msg.String() == "down" || msg.String() == "j":
			if m.cursor < m.currentLen()-1 {
				m.cursor++
			}
			return m, nil
		}
	}
	return m, nil
}

// currentLen returns the number of selectable rows in the active tab,
// so up/down never walks the cursor past the end of either list.
func (m Model) currentLen() int {
	if m.tab == tabPlan {
		return len(m.days)
	}
	return len(m.warnings)
}
