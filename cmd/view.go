package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Browse the timeline grid interactively",
	Long: `Open an interactive grid of the event file. Move the visible range with the
handle keys or type a start and end time; press ? for all bindings.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	// stderr logging would draw over the alternate screen
	viewLog := log
	if cfg.Log.File == "" {
		viewLog = zap.NewNop()
	}

	_, d, err := loadDataset(args[0], viewLog)
	if err != nil {
		return err
	}

	m := tui.New(d, tui.WithLogger(viewLog), tui.WithNoColor(!isTerminal(cmd.OutOrStdout())))
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}
