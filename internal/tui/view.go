package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/workload"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.loadErr != nil {
		return docStyle.Render(fmt.Sprintf("failed to load dashboard: %v\n", m.loadErr))
	}

	content := m.viewPlan()
	if m.tab == tabWarnings {
		content = m.viewWarnings()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		m.help.View(m.keys),
	)
}

func (m Model) viewTabs() string {
	labels := []string{"Weekly Plan", "Workload Warnings"}
	var tabs []string
	for i, label := range labels {
		if viewTab(i) == m.tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewPlan() string {
	if len(m.days) == 0 {
		return "No sessions scheduled in the next 7 days."
	}

	var b strings.Builder
	for i, day := range m.days {
		header := fmt.Sprintf("%s (%d session(s))", day.Date.String(), len(day.Sessions))
		if i == m.cursor {
			b.WriteString(selectedDayStyle.Render("> " + header))
		} else {
			b.WriteString(dayHeaderStyle.Render("  " + header))
		}
		b.WriteString("\n")

		for _, s := range day.Sessions {
			line := fmt.Sprintf("    %s-%s  %s  [%s]",
				s.StartTime.Format("15:04"), s.EndTime.Format("15:04"), sessionLabel(s), s.Status)
			b.WriteString(sessionStyle.Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sessionLabel(s models.StudySession) string {
	return fmt.Sprintf("%d min", s.DurationMinutes())
}

func (m Model) viewWarnings() string {
	if len(m.warnings) == 0 {
		return "No workload warnings for the upcoming week."
	}

	var b strings.Builder
	for i, w := range m.warnings {
		style := softWarningStyle
		if w.Severity == workload.SeverityHard {
			style = hardWarningStyle
		}
		line := fmt.Sprintf("[%s] %s", w.Severity, w.Message)
		if i == m.cursor {
			line = "> " + line
		} else {
			line = "  " + line
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
