package sections

import (
	"context"
	"sort"
	"strconv"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
)

// RollingMetric is added to every daily_trend row: the mean of sessions
// over that day and up to six days before it.
const RollingMetric = "sessions7dAvg"

func extractTimePatterns(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	s, err := tabulate(ctx, in, domain.SectionTimePatterns, ga4.Query{
		Dimensions: []string{"hour"},
		Metrics:    []string{"sessions", "totalUsers"},
		Limit:      24,
	})
	if err != nil {
		return nil, err
	}
	sortByDimension(s.Rows, "hour")
	return s, nil
}

func extractDayOfWeek(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	s, err := tabulate(ctx, in, domain.SectionDayOfWeek, ga4.Query{
		Dimensions: []string{"dayOfWeek", "dayOfWeekName"},
		Metrics:    []string{"sessions", "totalUsers"},
		Limit:      7,
	})
	if err != nil {
		return nil, err
	}
	sortByDimension(s.Rows, "dayOfWeek")
	return s, nil
}

func extractDailyTrend(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	s, err := tabulate(ctx, in, domain.SectionDailyTrend, ga4.Query{
		Dimensions: []string{"date"},
		Metrics:    []string{"sessions", "totalUsers", "screenPageViews"},
		Limit:      in.Window().Days() + 1,
	})
	if err != nil {
		return nil, err
	}
	sortByDimension(s.Rows, "date")
	s.Rows = withRollingMean(s.Rows, "sessions", RollingMetric, 7)
	s.Metrics = append(s.Metrics, RollingMetric)
	return s, nil
}

// withRollingMean returns copies of rows with a trailing mean of metric
// over up to window rows.
func withRollingMean(rows []domain.MetricRow, metric, name string, window int) []domain.MetricRow {
	out := make([]domain.MetricRow, len(rows))
	var sum float64
	for i, r := range rows {
		sum += r.Metric(metric)
		if i >= window {
			sum -= rows[i-window].Metric(metric)
		}
		n := min(i+1, window)

		m := make(map[string]float64, len(r.Metrics)+1)
		for k, v := range r.Metrics {
			m[k] = v
		}
		m[name] = sum / float64(n)
		out[i] = domain.MetricRow{Dimensions: r.Dimensions, Metrics: m}
	}
	return out
}

// sortByDimension orders rows by a dimension, numerically when every value
// parses as an integer. YYYYMMDD dates sort correctly either way.
func sortByDimension(rows []domain.MetricRow, dim string) {
	numeric := true
	for _, r := range rows {
		if _, err := strconv.Atoi(r.Dim(dim)); err != nil {
			numeric = false
			break
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Dim(dim), rows[j].Dim(dim)
		if numeric {
			ai, _ := strconv.Atoi(a)
			bi, _ := strconv.Atoi(b)
			return ai < bi
		}
		return a < b
	})
}
