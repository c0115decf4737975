package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

var weeklyDryRun bool

var weeklyCmd = &cobra.Command{
	Use:   "weekly [property...]",
	Short: "Run and mail the weekly digest",
	Long: `Runs a report over the weekly window for each named property, or every
configured property, compares it with the previous snapshot, saves a new
snapshot and mails one combined digest. A property that fails with an
authentication or property error is skipped and makes the command exit
non-zero after the rest have run.`,
	RunE: runWeekly,
}

func init() {
	weeklyCmd.Flags().BoolVar(&weeklyDryRun, "dry-run", false, "Print the digest instead of sending it")
}

func runWeekly(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.collector.Weekly(ctx, args)
	if err != nil {
		return err
	}
	if len(res.Reports) > 0 {
		if err := deliver(ctx, a, res.Reports, weeklyDryRun); err != nil {
			return err
		}
	} else {
		logger.Warn("no reports to send")
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("%d of %d properties failed: %w", len(res.Failures), len(res.Failures)+len(res.Reports), err)
	}
	return nil
}
