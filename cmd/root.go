package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/tgrid/internal/config"
	"github.com/chris/tgrid/internal/dataset"
	"github.com/chris/tgrid/internal/logger"
)

const skipSetupAnnotation = "tgrid/skip-setup"

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

// flagKeys maps persistent flag names to config keys
var flagKeys = map[string]string{
	"bucket-width":   "bucket_width_hours",
	"reference":      "reference_entity_id",
	"classification": "classification",
	"low":            "initial_range.low",
	"high":           "initial_range.high",
	"log-level":      "log.level",
	"log-env":        "log.environment",
	"log-file":       "log.file",
}

var rootCmd = &cobra.Command{
	Use:   "tgrid",
	Short: "Timeline grid viewer",
	Long: `Bin time-stamped entity events into midnight-aligned buckets and show them
as a grid, one row per entity and one column per bucket.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.SetVersionTemplate("tgrid version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	flags.Int("bucket-width", config.DefaultBucketWidthHours, "Bucket width in hours; must divide 24")
	flags.String("reference", "", "Entity whose events are the truth for classification")
	flags.String("classification", config.ClassificationReference, "Classification policy (reference, none)")
	flags.Float64("low", 0, "Initial low handle, in bucket indices")
	flags.Float64("high", 0, "Initial high handle, in bucket indices")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-env", "development", "Log environment (development, production)")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
}

// setup loads configuration from file, environment and flags, then builds the logger
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipSetupAnnotation] != "" {
		return nil
	}

	v := config.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	log, err = logger.New(cfg.Log.Environment, cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Debug("Configuration loaded",
		zap.String("command", cmd.Name()),
		zap.Int("bucket_width_hours", cfg.BucketWidthHours),
		zap.String("classification", cfg.Classification),
		zap.String("reference", cfg.ReferenceEntityID))
	return nil
}

// loadDataset builds a session from the loaded configuration and loads path into it
func loadDataset(path string, log *zap.Logger) (*dataset.Session, *dataset.Dataset, error) {
	session := dataset.NewSession(dataset.OptionsFromConfig(cfg, log))
	d, err := session.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return session, d, nil
}
