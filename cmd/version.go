package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version of tgrid
const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number of tgrid",
	Long:        "Print the version number of tgrid",
	Annotations: map[string]string{skipSetupAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tgrid version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
