// Command ga-report builds Google Analytics 4 deep-dive reports for the
// configured properties, mails weekly digests and serves reports over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ga-report",
	Short: "Google Analytics 4 deep-dive reports",
	Long: `ga-report pulls a fixed set of sections from the GA4 Data API,
scores the property's health and prints recommendations.

  ga-report auth login          authorize read-only analytics access
  ga-report properties          list configured properties
  ga-report report shop         print a 30-day report
  ga-report weekly --dry-run    build the weekly digest without sending
  ga-report serve               start the HTTP API`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "Config file; a missing file uses defaults and environment")
	rootCmd.AddCommand(reportCmd, weeklyCmd, propertiesCmd, authCmd, serveCmd)
}

// loadConfig loads configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, keeping info", "level", cfg.LogLevel)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ga-report:", err)
		os.Exit(1)
	}
}
