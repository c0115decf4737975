package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/ga-deep-dive/internal/collector"
	"github.com/ignite/ga-deep-dive/internal/delivery"
	"github.com/ignite/ga-deep-dive/internal/report"
)

var reportFlags struct {
	days   int
	output string
	email  bool
	dryRun bool
}

var reportCmd = &cobra.Command{
	Use:   "report <property>",
	Short: "Print a deep-dive report for one property",
	Long: `Runs every report section for the property (a configured name or a
numeric GA4 property ID), scores it and prints the result. Sections that
fail are marked "(no data: ...)" and do not change the exit status; only
authentication failures and unknown properties do.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.IntVar(&reportFlags.days, "days", 0, "Lookback window in days (default from config)")
	f.StringVarP(&reportFlags.output, "output", "o", "", "Output format: text, json or yaml (default from config)")
	f.BoolVar(&reportFlags.email, "email", false, "Also email the report to the configured recipients")
	f.BoolVar(&reportFlags.dryRun, "dry-run", false, "Print the email instead of sending it")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportFlags.days < 0 {
		return fmt.Errorf("--days must be positive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format := reportFlags.output
	if format == "" {
		format = cfg.Report.Output
	}
	switch format {
	case report.FormatText, report.FormatJSON, report.FormatYAML:
	default:
		return fmt.Errorf("--output %q: want text, json or yaml", format)
	}
	// an unknown property fails before any credentials are read
	if _, err := cfg.ResolveProperty(args[0]); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.collector.Run(ctx, args[0], collector.RunOptions{
		Days:    reportFlags.days,
		Compare: true,
		Save:    true,
	})
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout, r, format); err != nil {
		return err
	}

	if reportFlags.email || reportFlags.dryRun {
		return deliver(ctx, a, []*report.Report{r}, reportFlags.dryRun)
	}
	return nil
}

// deliver mails reports, or prints the message to stderr on a dry run so
// stdout keeps only the report.
func deliver(ctx context.Context, a *app, reports []*report.Report, dryRun bool) error {
	sender, err := delivery.New(ctx, a.cfg.Email, dryRun, &delivery.ConsoleSender{W: os.Stderr})
	if err != nil {
		return err
	}
	return a.collector.Send(ctx, sender, reports)
}
