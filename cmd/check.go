package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chris/tgrid/internal/timeline"
	"github.com/chris/tgrid/pkg/models"
)

var checkStrict bool

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate an event file and list skipped records",
	Long: `Load a JSON event file and print what was derived from it: entities, event
count, bounds, buckets, days and category counts, followed by one line per
malformed record that was skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail when any record was skipped")
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, d, err := loadDataset(args[0], log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset:   %s\n", d.ID)
	fmt.Fprintf(out, "Entities:  %d\n", len(d.Entities))
	fmt.Fprintf(out, "Events:    %d\n", len(d.Events))
	fmt.Fprintf(out, "Bounds:    %s – %s\n",
		timeline.EventTimeLabel(d.Bounds.Min), timeline.EventTimeLabel(d.Bounds.Max))
	fmt.Fprintf(out, "Buckets:   %d × %gh\n", len(d.Buckets), d.BucketHours())
	fmt.Fprintf(out, "Days:      %s\n", strings.Join(timeline.DayLabels(d.Buckets), ", "))

	counts := d.CategoryCounts()
	if counts[models.CategoryNone] < len(d.Binned) {
		var parts []string
		for category, n := range counts {
			name := string(category)
			if category == models.CategoryNone {
				name = "unclassified"
			}
			parts = append(parts, fmt.Sprintf("%s=%d", name, n))
		}
		sort.Strings(parts)
		fmt.Fprintf(out, "Categories: %s\n", strings.Join(parts, " "))
	}

	if len(d.Warnings) == 0 && len(d.BinWarnings) == 0 {
		fmt.Fprintln(out, "No malformed records")
		return nil
	}

	fmt.Fprintf(out, "Skipped:   %d\n", len(d.Warnings)+len(d.BinWarnings))
	for _, w := range d.Warnings {
		fmt.Fprintf(out, "  %s\n", w)
	}
	for _, w := range d.BinWarnings {
		fmt.Fprintf(out, "  %s\n", w)
	}

	if checkStrict {
		return fmt.Errorf("%d record(s) skipped", len(d.Warnings)+len(d.BinWarnings))
	}
	return nil
}
