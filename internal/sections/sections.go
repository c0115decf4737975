// Package sections turns analytics queries into the report's section
// summaries. Each extractor is a plain function in a fixed, ordered table
// and all of them share one Input.
package sections

import (
	"context"
	"time"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
)

// Fetcher is the data source the extractors query.
type Fetcher interface {
	Fetch(ctx context.Context, propertyID string, q ga4.Query) (*ga4.Result, error)
	Realtime(ctx context.Context, propertyID string, q ga4.Query) (*ga4.Result, error)
}

// Settings are the per-run knobs extractors read.
type Settings struct {
	Days             int
	GrowthWindowDays int
	ActivityMode     string // calendar_day or daily_mean
	MonthDays        int
	TopN             int
	MinPageViews     float64
}

// Input is shared by every extractor in a run.
type Input struct {
	Property domain.Property
	Now      time.Time
	Settings Settings
	Source   Fetcher
}

// Window is the reporting window for this run.
func (in Input) Window() Window {
	return Trailing(in.Now, in.Settings.Days)
}

func (in Input) topN(fallback int) int {
	if in.Settings.TopN > 0 {
		return in.Settings.TopN
	}
	return fallback
}

// Extractor produces one section.
type Extractor struct {
	Name    string
	Title   string
	Extract func(ctx context.Context, in Input) (*domain.SectionSummary, error)
}

// Extractors returns the section table in report order.
func Extractors() []Extractor {
	return []Extractor{
		{domain.SectionRealtime, "Real-time", extractRealtime},
		{domain.SectionCore, "Core metrics", extractCore},
		{domain.SectionAcquisition, "Acquisition channels", extractAcquisition},
		{domain.SectionReferrers, "Referrers", extractReferrers},
		{domain.SectionLandingPages, "Landing pages", extractLandingPages},
		{domain.SectionPages, "Pages", extractPages},
		{domain.SectionEvents, "Events", extractEvents},
		{domain.SectionTechnology, "Technology", extractTechnology},
		{domain.SectionGeography, "Geography", extractGeography},
		{domain.SectionTimePatterns, "Time patterns (hour of day)", extractTimePatterns},
		{domain.SectionDayOfWeek, "Day of week", extractDayOfWeek},
		{domain.SectionNewVsReturning, "New vs returning", extractNewVsReturning},
		{domain.SectionLanguages, "Languages", extractLanguages},
		{domain.SectionDailyTrend, "Daily trend", extractDailyTrend},
		{domain.SectionHighBounce, "High-bounce pages", extractHighBounce},
		{domain.SectionUserActivity, "User activity (DAU/WAU/MAU)", extractUserActivity},
	}
}

// Names lists section names in report order.
func Names() []string {
	ex := Extractors()
	out := make([]string, len(ex))
	for i, e := range ex {
		out[i] = e.Name
	}
	return out
}

// Title returns a section's display title, or its name when unknown.
func Title(name string) string {
	for _, e := range Extractors() {
		if e.Name == name {
			return e.Title
		}
	}
	return name
}

// averaged metrics are combined as a session-weighted mean, the rest are summed.
var averaged = map[string]bool{
	"engagementRate":            true,
	"bounceRate":                true,
	"averageSessionDuration":    true,
	"screenPageViewsPerSession": true,
	"sessionsPerUser":           true,
}

// tabulate runs a dimensioned query over the reporting window and shapes
// the response into a summary with computed totals.
func tabulate(ctx context.Context, in Input, name string, q ga4.Query) (*domain.SectionSummary, error) {
	if len(q.Ranges) == 0 {
		q.Ranges = []ga4.DateRange{in.Window().Range("")}
	}
	res, err := in.Source.Fetch(ctx, in.Property.ID, q)
	if err != nil {
		return nil, err
	}
	return &domain.SectionSummary{
		Name:       name,
		Title:      Title(name),
		Dimensions: res.Dimensions,
		Metrics:    res.Metrics,
		Rows:       res.Rows,
		Totals:     totals(res.Rows, res.Metrics),
		Truncated:  res.Truncated,
	}, nil
}

func totals(rows []domain.MetricRow, metrics []string) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	var weight float64
	for _, r := range rows {
		weight += r.Metric("sessions")
	}
	for _, m := range metrics {
		if !averaged[m] {
			for _, r := range rows {
				out[m] += r.Metric(m)
			}
			continue
		}
		var sum float64
		if weight > 0 {
			for _, r := range rows {
				sum += r.Metric(m) * r.Metric("sessions")
			}
			out[m] = sum / weight
		} else if len(rows) > 0 {
			for _, r := range rows {
				sum += r.Metric(m)
			}
			out[m] = sum / float64(len(rows))
		}
	}
	return out
}

// SettingsFrom copies the run settings out of the loaded configuration.
// days overrides the configured default when positive.
func SettingsFrom(cfg *config.Config, days int) Settings {
	if days <= 0 {
		days = cfg.Report.DefaultDays
	}
	return Settings{
		Days:             days,
		GrowthWindowDays: cfg.Report.GrowthWindowDays,
		ActivityMode:     cfg.Report.ActivityMode,
		MonthDays:        cfg.Report.MonthDays,
		TopN:             cfg.Report.TopN,
		MinPageViews:     cfg.Insights.MinPageViews,
	}
}
