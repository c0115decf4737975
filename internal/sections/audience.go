package sections

import (
	"context"
	"fmt"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
)

// Totals on the user_activity summary.
const (
	TotalDAU        = "dau"
	TotalWAU        = "wau"
	TotalMAU        = "mau"
	TotalStickiness = "stickiness"
)

func extractTechnology(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionTechnology, ga4.Query{
		Dimensions: []string{"deviceCategory", "browser"},
		Metrics:    []string{"sessions", "totalUsers", "engagementRate"},
		Limit:      50,
		OrderBy:    "sessions",
	})
}

func extractGeography(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionGeography, ga4.Query{
		Dimensions: []string{"country"},
		Metrics:    []string{"sessions", "totalUsers", "engagementRate", "userEngagementDuration"},
		Limit:      50,
		OrderBy:    "sessions",
	})
}

func extractNewVsReturning(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionNewVsReturning, ga4.Query{
		Dimensions: []string{"newVsReturning"},
		Metrics:    []string{"sessions", "totalUsers", "engagementRate"},
		OrderBy:    "sessions",
	})
}

func extractLanguages(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionLanguages, ga4.Query{
		Dimensions: []string{"language"},
		Metrics:    []string{"totalUsers", "sessions"},
		Limit:      15,
		OrderBy:    "totalUsers",
	})
}

// extractUserActivity counts unique active users over explicit calendar
// windows ending on the last complete day. The API's rolling
// active1DayUsers/active28DayUsers fields are not used: they are relative
// to each row's date and do not line up with the requested range.
//
// DAU depends on the activity mode: calendar_day takes the last complete
// day, daily_mean averages the per-day counts across the month window.
func extractUserActivity(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	monthDays := in.Settings.MonthDays
	if monthDays < 1 {
		monthDays = 30
	}
	month := Trailing(in.Now, monthDays)

	daily, err := tabulate(ctx, in, domain.SectionUserActivity, ga4.Query{
		Dimensions: []string{"date"},
		Metrics:    []string{"activeUsers"},
		Ranges:     []ga4.DateRange{month.Range("")},
		Limit:      monthDays + 1,
	})
	if err != nil {
		return nil, err
	}
	sortByDimension(daily.Rows, "date")

	windows, err := in.Source.Fetch(ctx, in.Property.ID, ga4.Query{
		Metrics: []string{"activeUsers"},
		Ranges: []ga4.DateRange{
			Trailing(in.Now, 1).Range(TotalDAU),
			Trailing(in.Now, 7).Range(TotalWAU),
			month.Range(TotalMAU),
		},
	})
	if err != nil {
		return nil, err
	}

	// windows with no active users come back without a row
	t := map[string]float64{TotalDAU: 0, TotalWAU: 0}
	for _, r := range windows.Rows {
		t[r.Dim(ga4.DateRangeDimension)] = r.Metric("activeUsers")
	}
	if _, ok := t[TotalMAU]; !ok {
		return nil, fmt.Errorf("%w: no monthly active users returned", domain.ErrDataUnavailable)
	}

	switch in.Settings.ActivityMode {
	case config.ActivityDailyMean:
		if len(daily.Rows) > 0 {
			// days with no activity are missing from the rows and count as zero
			t[TotalDAU] = daily.Sum("activeUsers") / float64(monthDays)
		}
	case "", config.ActivityCalendarDay:
	default:
		return nil, fmt.Errorf("%w: unknown activity mode %q", domain.ErrDataUnavailable, in.Settings.ActivityMode)
	}

	if t[TotalMAU] > 0 {
		t[TotalStickiness] = t[TotalDAU] / t[TotalMAU]
	}
	daily.Totals = t
	return daily, nil
}
