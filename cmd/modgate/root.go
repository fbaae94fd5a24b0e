package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "modgate",
	Short: "Clearance-gated host for sandboxed native modules",
	Long: `Modgate loads WebAssembly modules into a host process and gates every
invocation behind a clearance lattice, a static payload filter, and an
append-only audit journal. Untrusted automation traffic can additionally
be confined to secure containers that expose only virtualized read
operations.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./modgate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// initConfig resolves the config path from the flag and environment.
func initConfig() {
	viper.SetEnvPrefix("MODGATE")
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("CONFIG")
	}
	if cfgFile == "" {
		cfgFile = "modgate.yaml"
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
