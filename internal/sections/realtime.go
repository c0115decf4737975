package sections

import (
	"context"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
)

// TotalActiveNow is the realtime total of active users in the last 30 minutes.
const TotalActiveNow = "activeUsers"

func extractRealtime(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	total, err := in.Source.Realtime(ctx, in.Property.ID, ga4.Query{Metrics: []string{"activeUsers"}})
	if err != nil {
		return nil, err
	}
	var active float64
	for _, r := range total.Rows {
		active += r.Metric("activeUsers")
	}

	s := &domain.SectionSummary{
		Name:       domain.SectionRealtime,
		Title:      Title(domain.SectionRealtime),
		Dimensions: []string{"unifiedScreenName"},
		Metrics:    []string{"activeUsers"},
		Totals:     map[string]float64{TotalActiveNow: active},
	}
	if active == 0 {
		return s, nil
	}

	screens, err := in.Source.Realtime(ctx, in.Property.ID, ga4.Query{
		Dimensions: []string{"unifiedScreenName"},
		Metrics:    []string{"activeUsers"},
		Limit:      in.topN(10),
		OrderBy:    "activeUsers",
	})
	if err != nil {
		return nil, err
	}
	s.Rows = screens.Rows
	s.Truncated = screens.Truncated
	return s, nil
}
