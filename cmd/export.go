package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/tgrid/internal/db"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a dataset and its buckets to SQLite",
	Long: `Load a JSON event file and write the events, attributes, buckets, binned
events and date groups to a SQLite database. The file is created if needed
and its schema migrated.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "tgrid.db", "SQLite database to write")
}

func runExport(cmd *cobra.Command, args []string) error {
	_, d, err := loadDataset(args[0], log)
	if err != nil {
		return err
	}

	database, err := db.NewWithOptions(exportOut, db.Options{Log: log})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.SaveDataset(cmd.Context(), d); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported dataset %s to %s (%d events, %d buckets)\n",
		d.ID, database.Path(), len(d.Binned), len(d.Buckets))
	return nil
}
