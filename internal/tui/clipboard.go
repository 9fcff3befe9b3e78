package tui

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// yankResultMsg is sent after a yank attempt completes.
type yankResultMsg struct {
	err error
}

// osc52Writer sets the system clipboard with an OSC 52 escape sequence. It is
// a tea.ExecCommand so the write happens while bubbletea has released the
// terminal. Inside tmux the sequence needs a DCS passthrough.
type osc52Writer struct {
	text   string
	tmux   bool
	stdout io.Writer
}

func osc52Sequence(text string, tmux bool) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	if tmux {
		// ESCs inside the passthrough payload are doubled
		return fmt.Sprintf("\x1bPtmux;\x1b\x1b]52;c;%s\x07\x1b\\", encoded)
	}
	return fmt.Sprintf("\x1b]52;c;%s\x07", encoded)
}

func (o *osc52Writer) Run() error {
	if o.stdout == nil {
		o.stdout = os.Stdout
	}
	_, err := io.WriteString(o.stdout, osc52Sequence(o.text, o.tmux))
	return err
}

func (o *osc52Writer) SetStdin(_ io.Reader)  {}
func (o *osc52Writer) SetStdout(w io.Writer) { o.stdout = w }
func (o *osc52Writer) SetStderr(_ io.Writer) {}

// yankToClipboard returns a tea.Cmd that writes text to the clipboard via OSC 52.
func yankToClipboard(text string) tea.Cmd {
	w := &osc52Writer{text: text, tmux: os.Getenv("TMUX") != ""}
	return tea.Exec(w, func(err error) tea.Msg {
		return yankResultMsg{err: err}
	})
}
