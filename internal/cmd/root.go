package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/config"
	"github.com/atikulmunna/gclens/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  = zap.NewNop()
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "gclens",
	Short: "Java GC log analyzer",
	Long: `gclens reads whole Java garbage collection logs (pre-unified or unified
format, any HotSpot collector), detects the collector in use and reports pause
times, heap occupancy, safepoints and the JVM's runtime.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(viper.GetViper()); err != nil {
			return err
		}
		logger = logging.New(cfg.Log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.gclens.yaml)")
	flags.StringP("output", "o", config.OutputText, "output format: text, json")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "also write JSON logs to this rotating file")
	flags.String("store", "", "SQLite database to save analyses in")
	flags.StringSliceP("aggregators", "a", nil, "aggregators to run, as glob patterns (default: all)")
	flags.Int("budget", 0, "lines inspected to detect the log format (default 25)")
	flags.Float64("fragment-threshold", 0, "runtime in seconds below which a log is a fragment (default 18)")

	bind("output", config.KeyOutput)
	bind("log-level", config.KeyLogLevel)
	bind("log-file", config.KeyLogFile)
	bind("store", config.KeyStorePath)
	bind("aggregators", config.KeyAggregators)
	bind("budget", config.KeyDetectionLines)
	bind("fragment-threshold", config.KeyFragmentThreshold)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".gclens")
		viper.SetConfigType("yaml")
	}

	config.Bind(viper.GetViper())
	if err := viper.ReadInConfig(); err != nil {
		var missing viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &missing) {
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
	}
}

func bind(flag, key string) {
	cobra.CheckErr(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)))
}
