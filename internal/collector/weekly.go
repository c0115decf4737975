package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/ga-deep-dive/internal/delivery"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
	"github.com/ignite/ga-deep-dive/internal/report"
)

// Failure is a property whose weekly run stopped on a fatal error.
type Failure struct {
	Property string
	Err      error
}

// WeeklyResult holds the reports that rendered and the properties that
// failed.
type WeeklyResult struct {
	Reports  []*report.Report
	Failures []Failure
}

// Err joins the failures, or returns nil when every property ran.
func (w *WeeklyResult) Err() error {
	errs := make([]error, 0, len(w.Failures))
	for _, f := range w.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Property, f.Err))
	}
	return errors.Join(errs...)
}

// Weekly runs a compared, saved report for each named property, or for
// every configured property when names is empty. A fatal error for one
// property does not stop the others; cancellation does.
func (c *Collector) Weekly(ctx context.Context, names []string) (*WeeklyResult, error) {
	if len(names) == 0 {
		for _, p := range c.cfg.PropertyList() {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("no properties configured")
	}

	res := &WeeklyResult{}
	for _, name := range names {
		r, err := c.Run(ctx, name, RunOptions{Days: c.cfg.Report.WeeklyDays, Compare: true, Save: true})
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			logger.Error("weekly report failed", "property", name, "err", err)
			res.Failures = append(res.Failures, Failure{Property: name, Err: err})
			continue
		}
		res.Reports = append(res.Reports, r)
	}
	return res, nil
}

// Send renders reports into one email and hands it to sender.
func (c *Collector) Send(ctx context.Context, sender delivery.Sender, reports []*report.Report) error {
	if len(reports) == 0 {
		return errors.New("nothing to send")
	}
	renderer, err := report.NewEmailRenderer(c.cfg.Email.SubjectTemplate)
	if err != nil {
		return err
	}
	mail, err := renderer.Digest(reports)
	if err != nil {
		return err
	}
	id, err := sender.Send(ctx, &delivery.Message{
		To:      c.cfg.Email.Recipients,
		From:    c.cfg.Email.From,
		Subject: mail.Subject,
		HTML:    mail.HTML,
		Text:    mail.Text,
	})
	if err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	logger.Info("report delivered", "reports", len(reports), "message_id", id)
	return nil
}
