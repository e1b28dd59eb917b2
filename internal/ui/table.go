package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pulse/internal/dashboard"
)

type tableColumn struct {
	label string
	width int // 0 = flexible
	right bool
}

var recordColumns = []tableColumn{
	{label: "Video"},
	{label: "Product", width: 14},
	{label: "Service", width: 10},
	{label: "Published", width: 11},
	{label: "Views", width: 8, right: true},
	{label: "Watch", width: 7, right: true},
	{label: "Followers", width: 9, right: true},
	{label: "Completion", width: 10, right: true},
}

const minFlexWidth = 16

// columnWidths sizes the flexible column to fill width.
func columnWidths(width int) []int {
	widths := make([]int, len(recordColumns))
	fixed := 0
	for i, c := range recordColumns {
		widths[i] = c.width
		fixed += c.width + 1
	}
	flex := width - fixed - 1
	if flex < minFlexWidth {
		flex = minFlexWidth
	}
	widths[0] = flex
	return widths
}

// recordCells extracts the display values for one record in column order.
func recordCells(rec dashboard.Record) []string {
	views, _ := rec.Number(fieldViews)
	followers, _ := rec.Number(fieldFollowers)

	watch := rec.Text(fieldWatchTime)
	if watch != "" && !strings.HasSuffix(watch, "s") {
		watch += "s"
	}
	completion := rec.Text(fieldCompletion)
	if completion != "" && !strings.HasSuffix(completion, "%") {
		completion += "%"
	}

	return []string{
		rec.Text(fieldTitle, fieldLink, "id"),
		rec.Text(fieldProduct),
		rec.Text(fieldService),
		rec.Text(fieldPublished),
		formatCount(views),
		watch,
		formatCount(followers),
		completion,
	}
}

func (m Model) renderTable() string {
	styles := m.theme.Styles()
	widths := columnWidths(m.width)

	var b strings.Builder
	b.WriteString(renderRow(headerCells(), widths, func(int) lipgloss.Style { return styles.TableHeader }))

	rows := m.tableRows()
	records := m.snapshot.Records
	if len(records) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render(" No records"))
		for i := 1; i < rows; i++ {
			b.WriteString("\n")
		}
		return b.String()
	}

	end := m.offset + rows
	if end > len(records) {
		end = len(records)
	}
	for i := m.offset; i < end; i++ {
		rec := records[i]
		rate, hasRate := rec.Number(fieldCompletion)
		completionStyle := styles.MutedText
		if hasRate {
			completionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BucketColor(BucketFor(rate))))
		}
		b.WriteString("\n")
		b.WriteString(renderRow(recordCells(rec), widths, func(col int) lipgloss.Style {
			if col == len(recordColumns)-1 {
				return completionStyle
			}
			return styles.Text
		}))
	}
	for i := end - m.offset; i < rows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func headerCells() []string {
	out := make([]string, len(recordColumns))
	for i, c := range recordColumns {
		out[i] = c.label
	}
	return out
}

func renderRow(cells []string, widths []int, style func(col int) lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		w := widths[i]
		st := style(i).Width(w).MaxWidth(w)
		if recordColumns[i].right {
			st = st.Align(lipgloss.Right)
		}
		parts[i] = st.Render(truncate(cell, w))
	}
	return " " + strings.Join(parts, " ")
}
