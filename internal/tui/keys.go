package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// Keymap holds the bindings of the grid view
type Keymap struct {
	Quit       key.Binding
	Left       key.Binding
	Right      key.Binding
	Up         key.Binding
	Down       key.Binding
	NextEvent  key.Binding
	LowDown    key.Binding
	LowUp      key.Binding
	HighDown   key.Binding
	HighUp     key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	Reset      key.Binding
	EnterRange key.Binding
	Yank       key.Binding
	Help       key.Binding
}

var Keys = Keymap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "previous bucket"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next bucket"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "previous entity"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "next entity"),
	),
	NextEvent: key.NewBinding(
		key.WithKeys("n", "tab"),
		key.WithHelp("n", "next event in cell"),
	),
	LowDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "low handle left"),
	),
	LowUp: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "low handle right"),
	),
	HighDown: key.NewBinding(
		key.WithKeys("{"),
		key.WithHelp("{", "high handle left"),
	),
	HighUp: key.NewBinding(
		key.WithKeys("}"),
		key.WithHelp("}", "high handle right"),
	),
	PanLeft: key.NewBinding(
		key.WithKeys("H", "shift+left"),
		key.WithHelp("H", "pan left"),
	),
	PanRight: key.NewBinding(
		key.WithKeys("L", "shift+right"),
		key.WithHelp("L", "pan right"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "show everything"),
	),
	EnterRange: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "enter time range"),
	),
	Yank: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "yank event detail"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// bindingsForView returns the help bindings for the given view state.
func bindingsForView(vs ViewState) []key.Binding {
	switch vs {
	case RangeEntryView:
		return []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch field")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	default:
		k := Keys
		return []key.Binding{
			k.Left, k.Right, k.Up, k.Down, k.NextEvent,
			k.LowDown, k.LowUp, k.HighDown, k.HighUp,
			k.PanLeft, k.PanRight, k.Reset,
			k.EnterRange, k.Yank, k.Help, k.Quit,
		}
	}
}
