package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chris/tgrid/internal/timeline"
)

// Styles
var (
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	focusDotStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	blurDotStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	detailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const marginX = 2

func (m *Model) style(s lipgloss.Style, text string) string {
	if m.noColor {
		return text
	}
	return s.Render(text)
}

func (m *Model) renderView() string {
	var b strings.Builder

	width := m.width
	if width == 0 {
		width = 80
	}
	contentWidth := max(width-2*marginX, 20)
	margin := strings.Repeat(" ", marginX)

	b.WriteString(margin + m.renderHeader())
	b.WriteString("\n")
	b.WriteString(margin + m.style(separatorStyle, strings.Repeat("=", contentWidth)))
	b.WriteString("\n\n")

	if m.viewState == HelpView {
		b.WriteString(m.renderHelp(margin))
		return b.String()
	}

	for _, line := range strings.Split(strings.TrimSuffix(m.renderGrid(contentWidth), "\n"), "\n") {
		b.WriteString(margin + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(margin + timeline.Legend(m.noColor))
	b.WriteString("\n\n")

	if m.viewState == RangeEntryView {
		b.WriteString(m.renderRangeEntry(margin))
	} else {
		b.WriteString(m.renderDetail(margin))
	}

	b.WriteString("\n")
	b.WriteString(margin + m.style(separatorStyle, strings.Repeat("─", contentWidth)))
	b.WriteString("\n")
	b.WriteString(margin + m.renderStatusBar())

	return b.String()
}

func (m *Model) renderHeader() string {
	dot := m.style(focusDotStyle, "●")
	if !m.focused {
		dot = m.style(blurDotStyle, "○")
	}
	first, last := m.visibleColumns()
	span := m.data.Grid.VisibleSpanLabel(first, last)
	return m.style(headerStyle, "Timeline") + " " + dot + " " + m.style(headerStyle, span)
}

// renderGrid sizes cells so the visible columns fill the content width
func (m *Model) renderGrid(contentWidth int) string {
	first, last := m.visibleColumns()
	cols := last - first + 1
	cellWidth := timeline.MinCellWidth
	if cols > 0 {
		cellWidth = max((contentWidth-m.data.Grid.EntityColumnWidth())/cols, timeline.MinCellWidth)
	}

	cursor := m.Cursor()
	return m.data.Grid.RenderGrid(timeline.RenderOptions{
		FirstBucket: first,
		LastBucket:  last,
		CellWidth:   cellWidth,
		NoColor:     m.noColor,
		Cursor:      &cursor,
	})
}

func (m *Model) renderDetail(margin string) string {
	events := m.cellEvents()
	cursor := m.Cursor()
	span := m.data.Grid.VisibleSpanLabel(cursor.Bucket, cursor.Bucket)

	var out strings.Builder
	out.WriteString(margin + m.style(headerStyle, fmt.Sprintf("%s  %s", cursor.EntityID, span)))
	out.WriteString("\n")
	if len(events) == 0 {
		out.WriteString(margin + "  No events\n")
		return out.String()
	}

	for i, be := range events {
		prefix := "  "
		if i == min(m.eventIdx, len(events)-1) {
			prefix = "▶ "
		}
		for j, line := range strings.Split(timeline.DetailText(be), "\n") {
			text := prefix + line
			if j > 0 {
				text = "  " + line
			}
			if strings.HasPrefix(text, "▶") {
				out.WriteString(margin + m.style(selectedStyle, text) + "\n")
			} else {
				out.WriteString(margin + m.style(detailStyle, text) + "\n")
			}
		}
	}
	return out.String()
}

func (m *Model) renderRangeEntry(margin string) string {
	re := m.rangeEntry
	var out strings.Builder
	out.WriteString(margin + m.style(headerStyle, "Visible range") + "\n")
	out.WriteString(margin + "  Start: " + re.start.View() + "\n")
	out.WriteString(margin + "  End:   " + re.end.View() + "\n")
	if re.errorMsg != "" {
		out.WriteString(margin + "  " + m.style(errorStyle, re.errorMsg) + "\n")
	}
	return out.String()
}

func (m *Model) renderHelp(margin string) string {
	var out strings.Builder
	for _, binding := range bindingsForView(GridView) {
		h := binding.Help()
		out.WriteString(fmt.Sprintf("%s%-8s %s\n", margin, h.Key, h.Desc))
	}
	out.WriteString("\n" + margin + m.style(statusBarStyle, "Press any key to return"))
	return out.String()
}

func (m *Model) renderStatusBar() string {
	if m.status != "" {
		return m.style(statusBarStyle, m.status)
	}
	if m.viewState == RangeEntryView {
		var parts []string
		for _, binding := range bindingsForView(RangeEntryView) {
			h := binding.Help()
			parts = append(parts, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
		}
		return m.style(statusBarStyle, strings.Join(parts, "  "))
	}
	return m.style(statusBarStyle, "[h/l] Bucket  [j/k] Entity  [[ ]] Low  [{ }] High  [H/L] Pan  [t] Range  [y] Yank  [?] Help  [q] Quit")
}
