// Package collector runs reports: it resolves the property, runs every
// section extractor in order, scores and annotates the result, and records
// a snapshot for week-over-week comparison.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/health"
	"github.com/ignite/ga-deep-dive/internal/insights"
	"github.com/ignite/ga-deep-dive/internal/pkg/distlock"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
	"github.com/ignite/ga-deep-dive/internal/report"
	"github.com/ignite/ga-deep-dive/internal/sections"
	"github.com/ignite/ga-deep-dive/internal/storage"
	"github.com/ignite/ga-deep-dive/internal/telemetry"
)

// LockFactory returns the run lock for a key, or nil when locking is not
// configured.
type LockFactory func(key string) distlock.DistLock

// Collector holds the collaborators of a run. It is safe for sequential
// use; concurrent runs of the same property are serialized only by the
// snapshot lock.
type Collector struct {
	cfg     *config.Config
	source  sections.Fetcher
	store   storage.SnapshotStore
	lockFor LockFactory
	metrics *telemetry.Metrics
	engine  *insights.Engine
	now     func() time.Time
}

// Option customizes a Collector.
type Option func(*Collector)

// WithStore enables snapshot comparison and saving.
func WithStore(s storage.SnapshotStore) Option {
	return func(c *Collector) { c.store = s }
}

// WithLocks sets the run lock factory.
func WithLocks(f LockFactory) Option {
	return func(c *Collector) { c.lockFor = f }
}

// WithMetrics records run outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector reading from source.
func New(cfg *config.Config, source sections.Fetcher, opts ...Option) *Collector {
	c := &Collector{
		cfg:    cfg,
		source: source,
		engine: insights.New(cfg.Insights),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunOptions control one run.
type RunOptions struct {
	Days    int  // 0 uses the configured default
	Compare bool // attach a comparison with the previous snapshot
	Save    bool // record this run's snapshot
}

// Run produces the report for one property. Only a fatal error
// (authentication, unknown property) or cancellation returns an error;
// failed sections are recorded in the report instead.
func (c *Collector) Run(ctx context.Context, nameOrID string, opts RunOptions) (*report.Report, error) {
	prop, err := c.cfg.ResolveProperty(nameOrID)
	if err != nil {
		c.metrics.Run("fatal")
		return nil, err
	}

	start := c.now()
	in := sections.Input{
		Property: prop,
		Now:      start,
		Settings: sections.SettingsFrom(c.cfg, opts.Days),
		Source:   c.source,
	}
	r := report.New(prop, in.Window(), start)
	logger.Info("report started", "property", prop.ID, "window", in.Window().String(), "run_id", r.RunID)

	for _, ex := range sections.Extractors() {
		if err := ctx.Err(); err != nil {
			c.metrics.Run("fatal")
			return nil, err
		}
		s, err := ex.Extract(ctx, in)
		if domain.IsFatal(err) {
			c.metrics.Section(ex.Name, "fatal")
			c.metrics.Run("fatal")
			return nil, fmt.Errorf("%s: %w", ex.Name, err)
		}
		if err != nil {
			logger.Warn("section unavailable", "property", prop.ID, "section", ex.Name, "err", err)
			c.metrics.Section(ex.Name, "unavailable")
		} else {
			logger.Debug("section fetched", "property", prop.ID, "section", ex.Name, "rows", len(s.Rows))
			c.metrics.Section(ex.Name, "ok")
		}
		r.Add(ex.Name, s, err)
	}

	r.Health = health.Score(r.Summaries())
	for _, s := range r.Health.Scores {
		c.metrics.Score(prop.Name, s.Name, s.Value)
	}
	r.Recommendations = c.engine.Generate(insights.Input{Sections: r.Summaries(), Health: r.Health})

	c.snapshot(ctx, r, opts)

	outcome := "ok"
	if len(r.Unavailable()) > 0 {
		outcome = "degraded"
	}
	c.metrics.Run(outcome)
	logger.Info("report finished", "property", prop.ID, "run_id", r.RunID,
		"unavailable", len(r.Unavailable()), "duration_ms", c.now().Sub(start).Milliseconds())
	return r, nil
}

// snapshot compares with and records snapshots. Failures here never fail
// the run.
func (c *Collector) snapshot(ctx context.Context, r *report.Report, opts RunOptions) {
	if c.store == nil || (!opts.Compare && !opts.Save) {
		return
	}
	if r.Summaries()[domain.SectionCore] == nil {
		logger.Warn("core metrics unavailable, snapshot skipped", "property", r.Property.ID)
		return
	}
	snap := r.Snapshot(c.cfg.Report.TopN)

	if opts.Compare {
		// only a snapshot over the same window length is comparable
		prev, err := c.store.Previous(ctx, r.Property.ID, snap.Days, snap.Date)
		switch {
		case err == nil:
			r.Comparison = domain.Compare(snap.Metrics, prev.Metrics)
			r.ComparedTo = prev.Date
		case errors.Is(err, domain.ErrNotFound):
			logger.Info("no previous snapshot", "property", r.Property.ID, "days", snap.Days, "before", snap.Date)
		default:
			logger.Warn("previous snapshot lookup failed", "property", r.Property.ID, "err", err)
		}
	}

	if opts.Save {
		c.save(ctx, snap)
	}
}

func (c *Collector) save(ctx context.Context, snap *domain.Snapshot) {
	var lock distlock.DistLock
	if c.lockFor != nil {
		lock = c.lockFor(distlock.ForProperty(snap.PropertyID))
	}
	if lock != nil {
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("run lock failed, snapshot skipped", "property", snap.PropertyID, "err", err)
			return
		}
		if !acquired {
			logger.Warn("another run holds the lock, snapshot skipped", "property", snap.PropertyID)
			return
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("run lock release failed", "property", snap.PropertyID, "err", err)
			}
		}()
	}

	if err := c.store.Save(ctx, snap); err != nil {
		logger.Error("snapshot save failed", "property", snap.PropertyID, "err", err)
		return
	}
	logger.Info("snapshot saved", "property", snap.PropertyID, "date", snap.Date, "id", snap.ID)
}

// Latest returns the newest stored snapshot for a property name or ID.
func (c *Collector) Latest(ctx context.Context, nameOrID string) (*domain.Snapshot, error) {
	prop, err := c.cfg.ResolveProperty(nameOrID)
	if err != nil {
		return nil, err
	}
	if c.store == nil {
		return nil, fmt.Errorf("snapshot storage disabled: %w", domain.ErrNotFound)
	}
	return c.store.Latest(ctx, prop.ID)
}
