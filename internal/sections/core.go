package sections

import (
	"context"
	"errors"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

// CoreMetrics are fetched for the current and previous windows. There are
// more than one request can carry, so the source splits them.
var CoreMetrics = []string{
	"sessions", "totalUsers", "newUsers", "activeUsers",
	"engagedSessions", "engagementRate", "bounceRate", "averageSessionDuration",
	"screenPageViews", "screenPageViewsPerSession", "eventCount", "keyEvents",
	"userEngagementDuration",
}

// Keys on the core summary's Totals besides the plain metric names.
const (
	PreviousPrefix         = "previous."
	TotalGrowthCurrent     = "growth.current_sessions"
	TotalGrowthPrevious    = "growth.previous_sessions"
	TotalEngagementPerSess = "engagementPerSession"
)

const (
	rangeCurrent  = "current"
	rangePrevious = "previous"
	rangeThisWeek = "this_week"
	rangeLastWeek = "last_week"
)

// extractCore fetches totals for the reporting window and the window
// before it, then the sessions of two adjacent growth windows. A failed
// growth query leaves the growth totals out without failing the section.
func extractCore(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	cur := in.Window()
	res, err := in.Source.Fetch(ctx, in.Property.ID, ga4.Query{
		Metrics: CoreMetrics,
		Ranges:  []ga4.DateRange{cur.Range(rangeCurrent), cur.Previous().Range(rangePrevious)},
	})
	if err != nil {
		return nil, err
	}

	s := &domain.SectionSummary{
		Name:       domain.SectionCore,
		Title:      Title(domain.SectionCore),
		Dimensions: res.Dimensions,
		Metrics:    res.Metrics,
		Rows:       res.Rows,
		Totals:     map[string]float64{},
	}
	var sawCurrent bool
	for _, r := range res.Rows {
		prefix := ""
		switch r.Dim(ga4.DateRangeDimension) {
		case rangeCurrent:
			sawCurrent = true
		case rangePrevious:
			prefix = PreviousPrefix
		default:
			continue
		}
		for m, v := range r.Metrics {
			s.Totals[prefix+m] = v
		}
	}
	if !sawCurrent {
		return nil, ga4.ErrEmptyResult
	}
	if sessions := s.Totals["sessions"]; sessions > 0 {
		s.Totals[TotalEngagementPerSess] = s.Totals["userEngagementDuration"] / sessions
	}

	if err := addGrowth(ctx, in, s); err != nil {
		if domain.IsFatal(err) {
			return nil, err
		}
		logger.Warn("growth comparison unavailable", "property", in.Property.ID, "err", err)
	}
	return s, nil
}

func addGrowth(ctx context.Context, in Input, s *domain.SectionSummary) error {
	days := in.Settings.GrowthWindowDays
	if days < 1 {
		days = 7
	}
	thisWeek := Trailing(in.Now, days)
	res, err := in.Source.Fetch(ctx, in.Property.ID, ga4.Query{
		Metrics: []string{"sessions"},
		Ranges:  []ga4.DateRange{thisWeek.Range(rangeThisWeek), thisWeek.Previous().Range(rangeLastWeek)},
	})
	if errors.Is(err, ga4.ErrEmptyResult) {
		// no traffic in either window
		s.Totals[TotalGrowthCurrent] = 0
		s.Totals[TotalGrowthPrevious] = 0
		return nil
	}
	if err != nil {
		return err
	}

	s.Totals[TotalGrowthCurrent] = 0
	s.Totals[TotalGrowthPrevious] = 0
	for _, r := range res.Rows {
		switch r.Dim(ga4.DateRangeDimension) {
		case rangeThisWeek:
			s.Totals[TotalGrowthCurrent] = r.Metric("sessions")
		case rangeLastWeek:
			s.Totals[TotalGrowthPrevious] = r.Metric("sessions")
		}
	}
	return nil
}
