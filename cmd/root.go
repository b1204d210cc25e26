package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabprof/internal/config"
	"github.com/KaramelBytes/tabprof/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration; defaults when the config file is unreadable.
	cfg = cfgpkg.Default()
	// Shared logger, rebuilt after the config loads.
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "tabprof",
	Short: "Profile tabular data files: statistics, missing values, outliers, correlations",
	Long: `tabprof loads CSV, Excel, or Parquet files and reports basic info, summary statistics,
missing-value remediation, outliers, and correlations as text, charts, or a full report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabprof/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	logger = logging.New(rootCmd.ErrOrStderr(), level)
}
