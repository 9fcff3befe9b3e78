package timeline

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chris/tgrid/pkg/models"
)

// Colours match the scatter chart palette
var (
	truthStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57"))
	matchStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6495ED"))
	discrepancyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347"))
	plainDotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	timeHeaderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	entityStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	cursorStyle      = lipgloss.NewStyle().Reverse(true)
	separatorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const (
	dotGlyph          = "●"
	emptyCell         = "·"
	MinCellWidth      = 9
	maxEntityWidth    = 24
	entityColumnTitle = "Entities"
)

// Grid is the render-ready view of a binned dataset
type Grid struct {
	Entities []string
	Buckets  []models.Bucket
	Groups   []models.DateGroup
	Cells    *CellIndex
}

// NewGrid builds a Grid; the cell index is built here, once
func NewGrid(entities []string, buckets []models.Bucket, binned []models.BinnedEvent) *Grid {
	return &Grid{
		Entities: entities,
		Buckets:  buckets,
		Groups:   GroupByDate(buckets),
		Cells:    NewCellIndex(binned),
	}
}

// RenderOptions controls grid rendering
type RenderOptions struct {
	FirstBucket int // inclusive
	LastBucket  int // inclusive
	CellWidth   int
	NoColor     bool
	Cursor      *CellKey // highlighted cell, nil for none
}

// Helper function to render with or without colors
func renderStyle(style lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

// CategoryStyle returns the style used for a category's dots
func CategoryStyle(c models.Category) lipgloss.Style {
	switch c {
	case models.CategoryTruth:
		return truthStyle
	case models.CategoryMatch:
		return matchStyle
	case models.CategoryDiscrepancy:
		return discrepancyStyle
	default:
		return plainDotStyle
	}
}

// RenderGrid renders the visible bucket columns as a two-row header (dates,
// then times) followed by one row per entity with a dot per event, placed by
// its fraction within the cell.
func (g *Grid) RenderGrid(opts RenderOptions) string {
	if len(g.Buckets) == 0 {
		return ""
	}
	first, last := clampColumns(opts.FirstBucket, opts.LastBucket, len(g.Buckets))
	cellWidth := max(opts.CellWidth, MinCellWidth)
	entityWidth := g.EntityColumnWidth()

	var b strings.Builder

	// Date header, clipped to the visible columns
	b.WriteString(strings.Repeat(" ", entityWidth))
	for _, grp := range g.Groups {
		lo := max(grp.StartBucket, first)
		hi := min(grp.EndBucket(), last)
		if lo > hi {
			continue
		}
		width := (hi - lo + 1) * cellWidth
		b.WriteString(renderStyle(headerStyle, padRight(truncate(grp.Label, width-1), width), opts.NoColor))
	}
	b.WriteString("\n")

	// Time header
	b.WriteString(padRight(entityColumnTitle, entityWidth))
	for i := first; i <= last; i++ {
		b.WriteString(renderStyle(timeHeaderStyle, padRight(TimeLabel(g.Buckets[i].Start), cellWidth), opts.NoColor))
	}
	b.WriteString("\n")
	b.WriteString(renderStyle(separatorStyle, strings.Repeat("─", entityWidth+(last-first+1)*cellWidth), opts.NoColor))
	b.WriteString("\n")

	for _, entity := range g.Entities {
		b.WriteString(renderStyle(entityStyle, padRight(truncate(entity, entityWidth-1), entityWidth), opts.NoColor))
		for i := first; i <= last; i++ {
			cell := g.renderCell(entity, i, cellWidth, opts.NoColor)
			if opts.Cursor != nil && opts.Cursor.EntityID == entity && opts.Cursor.Bucket == i && !opts.NoColor {
				cell = cursorStyle.Render(ansi.Strip(cell))
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderCell draws one cell cellWidth columns wide. The last column is a gap.
func (g *Grid) renderCell(entity string, bucket, cellWidth int, noColor bool) string {
	events := g.Cells.Cell(entity, bucket)
	slots := cellWidth - 1

	dots := make([]string, slots)
	for i := range dots {
		dots[i] = emptyCell
	}
	for _, be := range events {
		pos := int(be.Fraction * float64(slots))
		if pos >= slots {
			pos = slots - 1
		}
		dots[pos] = renderStyle(CategoryStyle(be.Category), dotGlyph, noColor)
	}
	return strings.Join(dots, "") + " "
}

// EntityColumnWidth returns the width of the entity name column, padding included
func (g *Grid) EntityColumnWidth() int {
	width := ansi.StringWidth(entityColumnTitle)
	for _, e := range g.Entities {
		width = max(width, ansi.StringWidth(e))
	}
	return min(width, maxEntityWidth) + 2
}

// Legend returns a one-line key of category colours
func Legend(noColor bool) string {
	parts := []string{
		renderStyle(truthStyle, dotGlyph, noColor) + " truth",
		renderStyle(matchStyle, dotGlyph, noColor) + " match",
		renderStyle(discrepancyStyle, dotGlyph, noColor) + " discrepancy",
	}
	return strings.Join(parts, "   ")
}

// VisibleSpanLabel describes the time covered by columns [first, last]
func (g *Grid) VisibleSpanLabel(first, last int) string {
	if len(g.Buckets) == 0 {
		return ""
	}
	first, last = clampColumns(first, last, len(g.Buckets))
	return fmt.Sprintf("%s – %s", EventTimeLabel(g.Buckets[first].Start), EventTimeLabel(g.Buckets[last].End))
}

func clampColumns(first, last, n int) (int, int) {
	first = min(max(first, 0), n-1)
	last = min(max(last, first), n-1)
	return first, last
}

// truncate truncates s to maxWidth, adding … if truncated
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth-1, "") + "…"
}

func padRight(s string, width int) string {
	pad := width - ansi.StringWidth(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
