// Package config loads gclens settings from viper: a .gclens.yaml file,
// GCLENS_* environment variables and any flags bound by the caller.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/jvm"
	"github.com/atikulmunna/gclens/internal/logging"
)

// Keys understood by Load.
const (
	KeyDetectionLines    = "detection.lines"
	KeyFragmentThreshold = "analysis.fragment_threshold"
	KeyWorkers           = "analysis.workers"
	KeyAggregators       = "aggregators"
	KeyLogLevel          = "log.level"
	KeyLogFile           = "log.file"
	KeyStorePath         = "store.path"
	KeyServerPort        = "server.port"
	KeyOutput            = "output"
)

// EnvPrefix prefixes environment overrides, e.g. GCLENS_LOG_LEVEL.
const EnvPrefix = "GCLENS"

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

type Config struct {
	DetectionLines    int
	FragmentThreshold float64
	Workers           int
	Aggregators       []string
	Log               logging.Config
	StorePath         string
	ServerPort        string
	Output            string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDetectionLines, diary.DefaultBudget)
	v.SetDefault(KeyFragmentThreshold, jvm.DefaultFragmentThreshold)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyAggregators, []string{})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyStorePath, "")
	v.SetDefault(KeyServerPort, "8080")
	v.SetDefault(KeyOutput, OutputText)
}

// Bind makes v read GCLENS_* variables for every key.
func Bind(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads a validated Config from v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	cfg := Config{
		DetectionLines:    v.GetInt(KeyDetectionLines),
		FragmentThreshold: v.GetFloat64(KeyFragmentThreshold),
		Workers:           v.GetInt(KeyWorkers),
		Aggregators:       v.GetStringSlice(KeyAggregators),
		Log: logging.Config{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
		},
		StorePath:  v.GetString(KeyStorePath),
		ServerPort: v.GetString(KeyServerPort),
		Output:     strings.ToLower(v.GetString(KeyOutput)),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DetectionLines <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyDetectionLines, c.DetectionLines)
	}
	if c.FragmentThreshold < 0 {
		return fmt.Errorf("%s must not be negative, got %g", KeyFragmentThreshold, c.FragmentThreshold)
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("%s: unknown format %q (want text or json)", KeyOutput, c.Output)
	}
	return nil
}
