package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chris/tgrid/internal/db"
	"github.com/chris/tgrid/internal/timeline"
)

var (
	exportsDB    string
	exportsFirst int
	exportsLast  int
)

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "Inspect and prune datasets written by export",
	Long: `Work with a SQLite database written by 'tgrid export': list the stored
datasets, print the binned events of a bucket span, or delete a dataset.`,
}

var exportsListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List exported datasets, newest first",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetupAnnotation: "true"},
	RunE:        runExportsList,
}

var exportsShowCmd = &cobra.Command{
	Use:   "show <dataset-id>",
	Short: "Print the binned events of an exported dataset",
	Long: `Print the binned events stored for a dataset, optionally limited to the
buckets between --first and --last inclusive.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipSetupAnnotation: "true"},
	RunE:        runExportsShow,
}

var exportsDeleteCmd = &cobra.Command{
	Use:         "delete <dataset-id>",
	Short:       "Delete an exported dataset and its derived rows",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipSetupAnnotation: "true"},
	RunE:        runExportsDelete,
}

func init() {
	rootCmd.AddCommand(exportsCmd)
	exportsCmd.AddCommand(exportsListCmd, exportsShowCmd, exportsDeleteCmd)

	exportsCmd.PersistentFlags().StringVar(&exportsDB, "db", "tgrid.db", "SQLite database written by export")
	exportsShowCmd.Flags().IntVar(&exportsFirst, "first", 0, "First bucket index")
	exportsShowCmd.Flags().IntVar(&exportsLast, "last", -1, "Last bucket index (default: last bucket)")
}

// openExports opens an existing export database; it never creates one
func openExports() (*db.DB, error) {
	if _, err := os.Stat(exportsDB); err != nil {
		return nil, fmt.Errorf("no export database at %s: %w", exportsDB, err)
	}
	database, err := db.New(exportsDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func runExportsList(cmd *cobra.Command, args []string) error {
	database, err := openExports()
	if err != nil {
		return err
	}
	defer database.Close()

	datasets, err := database.ListDatasets(cmd.Context())
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No datasets exported")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tLOADED\tWIDTH")
	for _, ds := range datasets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ds.ID, ds.Source, ds.LoadedAt.UTC().Format("2006-01-02 15:04"), ds.BucketWidth)
	}
	return w.Flush()
}

func runExportsShow(cmd *cobra.Command, args []string) error {
	database, err := openExports()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	counts, err := database.CountRows(ctx, args[0])
	if err != nil {
		return err
	}

	last := exportsLast
	if last < 0 {
		last = counts.Buckets - 1
	}
	if exportsFirst > last {
		return fmt.Errorf("--first %d is after --last %d", exportsFirst, last)
	}

	binned, err := database.BinnedEventsInRange(ctx, args[0], exportsFirst, last)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, be := range binned {
		category := string(be.Category)
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(out, "[%d] %s %s\n", be.BucketIndex, category, timeline.DetailText(be))
	}
	fmt.Fprintf(out, "%d event(s) in buckets %d-%d\n", len(binned), exportsFirst, last)
	return nil
}

func runExportsDelete(cmd *cobra.Command, args []string) error {
	database, err := openExports()
	if err != nil {
		return err
	}
	defer database.Close()

	deleted, err := database.DeleteDataset(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", db.ErrDatasetNotFound, args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted dataset %s\n", args[0])
	return nil
}
