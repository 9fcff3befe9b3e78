package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/chris/tgrid/internal/timeline"
)

var (
	reportCellWidth int
	reportColor     bool
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Print the timeline grid for the visible range",
	Long: `Load a JSON event file and print the grid for the initial visible range
(--low/--high, in bucket indices) followed by a colour legend.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVar(&reportCellWidth, "cell-width", timeline.MinCellWidth, "Width of one bucket column")
	reportCmd.Flags().BoolVar(&reportColor, "color", false, "Force coloured output even when not writing to a terminal")
}

func runReport(cmd *cobra.Command, args []string) error {
	_, d, err := loadDataset(args[0], log)
	if err != nil {
		return err
	}

	noColor := !isTerminal(cmd.OutOrStdout())
	if reportColor {
		lipgloss.SetColorProfile(termenv.TrueColor)
		noColor = false
	}

	first, last := d.Selection.VisibleBuckets()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", d.Grid.VisibleSpanLabel(first, last))
	fmt.Fprint(out, d.Grid.RenderGrid(timeline.RenderOptions{
		FirstBucket: first,
		LastBucket:  last,
		CellWidth:   reportCellWidth,
		NoColor:     noColor,
	}))
	fmt.Fprintf(out, "\n%s\n", timeline.Legend(noColor))

	if n := len(d.Warnings); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d malformed record(s) skipped, run 'tgrid check' for details\n", n)
	}
	return nil
}
