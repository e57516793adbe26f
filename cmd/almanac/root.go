package main

import (
	"fmt"
	"strconv"

	"github.com/praetorian-inc/almanac/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	quiet   bool

	// logger is replaced in PersistentPreRunE; commands run directly in
	// tests keep the no-op logger.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "almanac",
	Short: "Almanac - map seeds and seed ranges through translation tables",
	Long: `Almanac maps integer values and inclusive integer ranges through an
ordered pipeline of translation tables.

Each table rewrites the source values its rules cover by a fixed offset and
leaves everything else unchanged. Ranges are split at rule boundaries, so one
input range can fan out into many output ranges.

Defaults can be set with ALMANAC_DATASTORE, ALMANAC_WORKERS, ALMANAC_LOG_LEVEL
and ALMANAC_COLOR. Flags take precedence.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mergeCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads environment defaults and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	env, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyEnvDefaults(cmd.Flags(), env); err != nil {
		return err
	}

	level, err := env.Level()
	if err != nil {
		return err
	}
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.ErrorLevel
	}

	logger, err = newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// newLogger builds a production logger writing to stderr.
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// applyEnvDefaults sets flags the user did not pass from the environment.
func applyEnvDefaults(flags *pflag.FlagSet, env config.Env) error {
	defaults := map[string]string{
		"datastore": env.Datastore,
		"workers":   strconv.Itoa(env.Workers),
		"color":     env.Color,
	}
	for name, value := range defaults {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := f.Value.Set(value); err != nil {
			return fmt.Errorf("applying %s_%s: %w", config.Prefix, name, err)
		}
	}
	return nil
}
