package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pulse/internal/status"
)

// renderHeader renders the status bar: logo, transport, auth badge and freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot

	parts := []string{bg.Render("pulse", styles.Logo)}

	switch {
	case snap.Connected:
		parts = append(parts, bg.Render("● LIVE", styles.SuccessText))
	case snap.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case snap.Connection == "connecting":
		parts = append(parts, bg.Render("● CONNECTING", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, bg.Render("● POLLING", styles.WarningText))
	}
	if snap.Polling && !snap.Connected {
		parts = append(parts, bg.Render("pull fallback", styles.MutedText))
	}

	if m.hasAuth {
		authStyle := styles.SuccessText
		if m.auth.NeedsAuthorization() {
			authStyle = styles.WarningText
		} else if !m.auth.Configured {
			authStyle = styles.MutedText
		}
		parts = append(parts, bg.Render(m.auth.Label(), authStyle))
	}

	if ts := formatUpdated(snap.LastUpdated, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if snap.LastError != nil {
		max := 60
		if m.width < 100 {
			max = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), max), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderCommandBar lists the key bindings most often needed.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	logsLabel := "Logs"
	if m.showLogs {
		logsLabel = "Hide logs"
	}
	commands := []cmd{
		{"r", "Refresh"},
		{"l", logsLabel},
		{"j/k", "Scroll"},
		{"?", "Help"},
		{"q", "Quit"},
	}
	if m.snapshot.Status.Action == status.ActionAuthorize || m.auth.NeedsAuthorization() {
		commands = append([]cmd{{"a", "Authorize"}}, commands...)
	}

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderBanner shows the classified status message, or nothing when hidden.
func (m Model) renderBanner() string {
	snap := m.snapshot
	if !snap.HasStatus || snap.Status.Banner == status.BannerHidden {
		return ""
	}
	color := m.theme.BannerColor(snap.Status.Banner)
	label := strings.ToUpper(snap.Status.Banner.String())

	text := snap.Status.Message
	switch snap.Status.Action {
	case status.ActionConfigure:
		text += " Set up an API key on the server."
	case status.ActionAuthorize:
		text += " Press a to authorize."
	case status.ActionDemo:
		text += " Configure an API to see real data."
	}

	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Background)).
		Background(lipgloss.Color(color)).
		Bold(true).
		Padding(0, 1).
		Render(label)
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Render(" " + truncate(text, maxInt(m.width-len(label)-4, 10)))
	return badge + body
}

// renderStats renders the summary strip over the current snapshot.
func (m Model) renderStats() string {
	styles := m.theme.Styles()
	sum := Summarize(m.snapshot.Records)

	bucket := func(b Bucket) string {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BucketColor(b)))
		return style.Render(fmt.Sprintf("%s %d", b, sum.Buckets[b]))
	}

	parts := []string{
		styles.MutedText.Render("Videos ") + styles.Text.Render(fmt.Sprintf("%d", sum.Count)),
		styles.MutedText.Render("Views ") + styles.Text.Render(formatCount(sum.TotalViews)),
		styles.MutedText.Render("Avg completion ") + styles.Text.Render(fmt.Sprintf("%.1f%%", sum.AvgCompletion)),
		styles.MutedText.Render("New followers ") + styles.Text.Render(formatCount(sum.TotalFollowers)),
		bucket(BucketHigh) + " " + bucket(BucketMedium) + " " + bucket(BucketLow),
	}
	return " " + strings.Join(parts, styles.FaintText.Render("  •  "))
}

// renderFooter shows the toast, or the origin of the last update.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.toast != "" {
		return " " + styles.AccentText.Render(m.toast)
	}
	if m.snapshot.Updates == 0 {
		return " " + styles.FaintText.Render("Waiting for data...")
	}
	return " " + styles.FaintText.Render(fmt.Sprintf("update #%d via %s", m.snapshot.Updates, m.snapshot.Origin))
}

// formatUpdated renders a timestamp with a relative age.
func formatUpdated(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	age := now.Sub(t)
	switch {
	case age < 5*time.Second:
		return t.Format("15:04:05") + " (just now)"
	case age < time.Minute:
		return fmt.Sprintf("%s (%ds ago)", t.Format("15:04:05"), int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%s (%dm ago)", t.Format("15:04:05"), int(age.Minutes()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
