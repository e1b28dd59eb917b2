package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pulse/internal/logtail"
)

// renderLogs renders the bottom log pane from the tailed log file.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	width := maxInt(m.width, 20)

	title := styles.AccentText.Bold(true).Render(" Log")
	if m.logPath != "" {
		title += styles.FaintText.Render("  " + truncate(m.logPath, width-8))
	}

	lines := make([]string, 0, logPaneHeight)
	start := len(m.logLines) - (logPaneHeight - 1)
	if start < 0 {
		start = 0
	}
	for _, entry := range m.logLines[start:] {
		lines = append(lines, m.formatLogLine(entry, width-2))
	}
	for len(lines) < logPaneHeight-1 {
		lines = append(lines, "")
	}
	if len(m.logLines) == 0 {
		lines[0] = styles.FaintText.Render(" (no log output yet)")
	}

	return title + "\n" + strings.Join(lines, "\n")
}

func (m Model) formatLogLine(e logtail.Entry, width int) string {
	text := truncate(logtail.Format(e), width)
	if e.Level == "" {
		return " " + m.theme.Styles().MutedText.Render(text)
	}
	return " " + lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.LevelColor(e.Level))).Render(text)
}
