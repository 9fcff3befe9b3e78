package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const flights = `{
	"Flight XYZ": {"Flight Departure": "2024-01-01T06:00:00"},
	"Alice": {
		"Check-in": {"DateTime": "2024-01-01T06:00:00", "Port Origin": "LHR"},
		"Boarding": "2024-01-01T12:00:00",
		"Landing": "2024/01/01 14:00"
	},
	"Bob": {"Check-in": "2024-01-02T03:00:00"}
}`

// resetFlags restores every flag to its default between command runs
func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset(c.PersistentFlags())
		reset(c.Flags())
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// writeFile writes content to a file in a fresh temp dir and returns its path
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeCommand runs rootCmd with args and returns stdout and stderr
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCommandContext(t, context.Background(), args...)
}

func executeCommandContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-level", "error"))

	err := rootCmd.ExecuteContext(ctx)

	rootCmd.SetArgs(nil)
	return stdout.String(), stderr.String(), err
}
