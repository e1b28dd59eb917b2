package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderAuthPrompt renders the authorization prompt that the notification
// gate let through.
func (m Model) renderAuthPrompt() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render("Authorization required"))
	b.WriteString("\n\n")
	msg := m.snapshot.Status.Message
	if msg == "" {
		msg = "The dashboard needs you to authorize the official API."
	}
	b.WriteString(styles.Text.Render(msg))
	b.WriteString("\n\n")
	if m.authURL != "" {
		b.WriteString(styles.MutedText.Render(m.authURL))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.AccentText.Render("a/enter") + styles.MutedText.Render(" open browser   "))
	b.WriteString(styles.AccentText.Render("esc") + styles.MutedText.Render(" later"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Warning)).
		Padding(1, 2).
		Width(56).
		Render(b.String())

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
