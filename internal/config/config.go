package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultBucketWidthHours = 6
	DefaultServerAddr       = ":8080"

	ClassificationReference = "reference"
	ClassificationNone      = "none"
)

// Config holds every recognized tgrid option
type Config struct {
	BucketWidthHours  int          `mapstructure:"bucket_width_hours"`
	ReferenceEntityID string       `mapstructure:"reference_entity_id"`
	Classification    string       `mapstructure:"classification"`
	Log               LogConfig    `mapstructure:"log"`
	Server            ServerConfig `mapstructure:"server"`
	InitialRange      RangeConfig  `mapstructure:"initial_range"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RangeConfig is an optional initial visible window in bucket indices.
// HasLow/HasHigh are derived from whether the keys were set at all.
type RangeConfig struct {
	Low     float64 `mapstructure:"low"`
	High    float64 `mapstructure:"high"`
	HasLow  bool    `mapstructure:"-"`
	HasHigh bool    `mapstructure:"-"`
}

// New returns a viper instance with defaults and TGRID_* environment lookup applied
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("bucket_width_hours", DefaultBucketWidthHours)
	v.SetDefault("reference_entity_id", "")
	v.SetDefault("classification", ClassificationReference)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
	v.SetDefault("log.file", "")
	v.SetDefault("server.addr", DefaultServerAddr)

	v.SetEnvPrefix("TGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// bound without defaults so IsSet reports only explicit values
	_ = v.BindEnv("initial_range.low")
	_ = v.BindEnv("initial_range.high")

	return v
}

// Load reads configFile (if non-empty) into v and unmarshals the result
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.InitialRange.HasLow = v.IsSet("initial_range.low")
	cfg.InitialRange.HasHigh = v.IsSet("initial_range.high")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option values that can be judged without a dataset
func (c *Config) Validate() error {
	if c.BucketWidthHours <= 0 || 24%c.BucketWidthHours != 0 {
		return fmt.Errorf("bucket_width_hours must divide 24 evenly, got %d", c.BucketWidthHours)
	}

	switch c.Classification {
	case ClassificationReference:
		if c.ReferenceEntityID == "" {
			return errors.New("reference_entity_id is required when classification is \"reference\"")
		}
	case ClassificationNone:
	default:
		return fmt.Errorf("unknown classification %q (want %q or %q)",
			c.Classification, ClassificationReference, ClassificationNone)
	}

	if c.InitialRange.HasLow && c.InitialRange.HasHigh && c.InitialRange.Low > c.InitialRange.High {
		return fmt.Errorf("initial_range.low (%g) is greater than initial_range.high (%g)",
			c.InitialRange.Low, c.InitialRange.High)
	}
	return nil
}
