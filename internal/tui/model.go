package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/logger"
	"github.com/chris/tgrid/internal/selection"
	"github.com/chris/tgrid/internal/timeline"
	"github.com/chris/tgrid/pkg/models"
)

// ViewState represents which view is currently displayed
type ViewState int

const (
	GridView ViewState = iota
	RangeEntryView
	HelpView
)

const (
	rangeFocusStart = iota
	rangeFocusEnd
)

// rangeEntry is the date-time entry drawer
type rangeEntry struct {
	focus    int
	start    textinput.Model
	end      textinput.Model
	errorMsg string
}

func newTimeInput() textinput.Model {
	layout := timeline.InputTimeLayout()
	ti := textinput.New()
	ti.Placeholder = layout
	ti.CharLimit = len(layout)
	ti.Width = len(layout)
	ti.Prompt = ""
	return ti
}

// Model is the interactive grid view of one dataset. It never owns the
// visible range: it proposes changes to the dataset's Selection and redraws
// from the value delivered to its subscription.
type Model struct {
	data        *dataset.Dataset
	log         *zap.Logger
	unsubscribe func()

	// Last range delivered by the selection
	visible models.SelectionRange

	viewState  ViewState
	rangeEntry rangeEntry

	// Cursor
	entityIdx int
	bucket    int
	eventIdx  int // within the cell

	status string

	// UI dimensions
	width  int
	height int

	focused bool
	noColor bool
}

// Option is a functional option for configuring the Model
type Option func(*Model)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) {
		m.log = log
	}
}

// WithNoColor disables styling
func WithNoColor(noColor bool) Option {
	return func(m *Model) {
		m.noColor = noColor
	}
}

// New creates a Model over d and subscribes it to d's selection
func New(d *dataset.Dataset, opts ...Option) *Model {
	m := &Model{
		data:    d,
		focused: true,
		rangeEntry: rangeEntry{
			start: newTimeInput(),
			end:   newTimeInput(),
		},
	}

	for _, opt := range opts {
		opt(m)
	}
	m.log = logger.OrNop(m.log)

	m.visible = d.Selection.Range()
	m.unsubscribe = d.Selection.Subscribe(selection.SubscriberFunc(m.rangeChanged))
	first, _ := m.visibleColumns()
	m.bucket = first

	return m
}

// Close detaches the model from the selection
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// rangeChanged receives every applied range and keeps the cursor on screen
func (m *Model) rangeChanged(r models.SelectionRange) {
	m.visible = r
	first, last := m.visibleColumns()
	if m.bucket < first {
		m.bucket = first
		m.eventIdx = 0
	}
	if m.bucket > last {
		m.bucket = last
		m.eventIdx = 0
	}
}

// visibleColumns is the integer column span of the delivered range
func (m *Model) visibleColumns() (int, int) {
	return selection.VisibleColumns(m.visible)
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.FocusMsg:
		m.focused = true
		return m, nil

	case tea.BlurMsg:
		m.focused = false
		return m, nil

	case yankResultMsg:
		if msg.err != nil {
			m.log.Warn("Yank failed", zap.Error(msg.err))
			m.status = "Yank failed: " + msg.err.Error()
		} else {
			m.status = "Yanked event detail"
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch m.viewState {
	case RangeEntryView:
		return m.handleRangeEntryKey(msg)
	case HelpView:
		m.viewState = GridView
		return m, nil
	default:
		return m.handleGridKey(msg)
	}
}

func (m *Model) handleGridKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	m.status = ""
	first, last := m.visibleColumns()

	switch {
	case key.Matches(msg, Keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, Keys.Left):
		if m.bucket > first {
			m.bucket--
			m.eventIdx = 0
		} else {
			m.propose(m.data.Selection.Shift(-1))
		}
		return m, nil

	case key.Matches(msg, Keys.Right):
		if m.bucket < last {
			m.bucket++
			m.eventIdx = 0
		} else {
			m.propose(m.data.Selection.Shift(1))
		}
		return m, nil

	case key.Matches(msg, Keys.Up):
		if m.entityIdx > 0 {
			m.entityIdx--
			m.eventIdx = 0
		}
		return m, nil

	case key.Matches(msg, Keys.Down):
		if m.entityIdx < len(m.data.Entities)-1 {
			m.entityIdx++
			m.eventIdx = 0
		}
		return m, nil

	case key.Matches(msg, Keys.NextEvent):
		if n := len(m.cellEvents()); n > 0 {
			m.eventIdx = (m.eventIdx + 1) % n
		}
		return m, nil

	case key.Matches(msg, Keys.LowDown):
		m.propose(m.data.Selection.SetLow(m.visible.Low - 1))
		return m, nil

	case key.Matches(msg, Keys.LowUp):
		m.propose(m.data.Selection.SetLow(m.visible.Low + 1))
		return m, nil

	case key.Matches(msg, Keys.HighDown):
		m.propose(m.data.Selection.SetHigh(m.visible.High - 1))
		return m, nil

	case key.Matches(msg, Keys.HighUp):
		m.propose(m.data.Selection.SetHigh(m.visible.High + 1))
		return m, nil

	case key.Matches(msg, Keys.PanLeft):
		m.propose(m.data.Selection.Shift(-1))
		return m, nil

	case key.Matches(msg, Keys.PanRight):
		m.propose(m.data.Selection.Shift(1))
		return m, nil

	case key.Matches(msg, Keys.Reset):
		m.data.Selection.Reset()
		return m, nil

	case key.Matches(msg, Keys.EnterRange):
		m.openRangeEntry()
		return m, nil

	case key.Matches(msg, Keys.Yank):
		be, ok := m.SelectedEvent()
		if !ok {
			m.status = "Nothing to yank"
			return m, nil
		}
		return m, yankToClipboard(timeline.DetailText(be))

	case key.Matches(msg, Keys.Help):
		m.viewState = HelpView
		return m, nil
	}

	return m, nil
}

// propose reports a clamp on the status line; the applied range arrives
// through the subscription
func (m *Model) propose(w *selection.RangeClampWarning) {
	if w != nil {
		m.status = w.Reason
	}
}

func (m *Model) openRangeEntry() {
	start, end := m.data.VisibleTimes()
	re := &m.rangeEntry
	re.errorMsg = ""
	re.start.SetValue(timeline.FormatInputTime(start))
	re.end.SetValue(timeline.FormatInputTime(end))
	m.setRangeFocus(rangeFocusStart)
	m.viewState = RangeEntryView
}

func (m *Model) setRangeFocus(focus int) {
	re := &m.rangeEntry
	re.focus = focus
	if focus == rangeFocusStart {
		re.start.Focus()
		re.end.Blur()
	} else {
		re.start.Blur()
		re.end.Focus()
	}
}

func (m *Model) handleRangeEntryKey(msg tea.KeyMsg) (*Model, tea.Cmd) {
	re := &m.rangeEntry

	switch msg.Type {
	case tea.KeyCtrlC:
		m.Close()
		return m, tea.Quit
	case tea.KeyEsc:
		m.viewState = GridView
		return m, nil
	case tea.KeyEnter:
		m.applyRangeEntry()
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab:
		m.setRangeFocus(1 - re.focus)
		return m, nil
	}

	var cmd tea.Cmd
	if re.focus == rangeFocusStart {
		re.start, cmd = re.start.Update(msg)
	} else {
		re.end, cmd = re.end.Update(msg)
	}
	return m, cmd
}

func (m *Model) applyRangeEntry() {
	re := &m.rangeEntry
	re.errorMsg = ""
	loc := m.data.Bounds.Min.Location()

	start, err := timeline.ParseInputTime(re.start.Value(), loc)
	if err != nil {
		re.errorMsg = "Invalid start time"
		return
	}
	end, err := timeline.ParseInputTime(re.end.Value(), loc)
	if err != nil {
		re.errorMsg = "Invalid end time"
		return
	}
	if start.After(end) {
		re.errorMsg = "Start is after end"
		return
	}

	if w := m.data.SetTimeRange(start, end); w != nil {
		m.status = fmt.Sprintf("Range adjusted: %s", w.Reason)
	}
	m.viewState = GridView
}

// cellEvents returns the events in the cell under the cursor
func (m *Model) cellEvents() []models.BinnedEvent {
	if len(m.data.Entities) == 0 {
		return nil
	}
	return m.data.Grid.Cells.Cell(m.data.Entities[m.entityIdx], m.bucket)
}

// SelectedEvent returns the event under the cursor, if any
func (m *Model) SelectedEvent() (models.BinnedEvent, bool) {
	events := m.cellEvents()
	if len(events) == 0 {
		return models.BinnedEvent{}, false
	}
	return events[min(m.eventIdx, len(events)-1)], true
}

// View implements tea.Model
func (m *Model) View() string {
	return m.renderView()
}

// Getters for testing
func (m *Model) ViewState() ViewState {
	return m.viewState
}

func (m *Model) Visible() models.SelectionRange {
	return m.visible
}

func (m *Model) Cursor() timeline.CellKey {
	if len(m.data.Entities) == 0 {
		return timeline.CellKey{Bucket: m.bucket}
	}
	return timeline.CellKey{EntityID: m.data.Entities[m.entityIdx], Bucket: m.bucket}
}

func (m *Model) Status() string {
	return m.status
}

func (m *Model) RangeError() string {
	return m.rangeEntry.errorMsg
}

func (m *Model) Focused() bool {
	return m.focused
}
