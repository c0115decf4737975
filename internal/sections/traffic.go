package sections

import (
	"context"
	"sort"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/ga4"
)

// HighBounceRate is the listing threshold for the high-bounce section.
const HighBounceRate = 0.6

func extractAcquisition(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionAcquisition, ga4.Query{
		Dimensions: []string{"sessionDefaultChannelGroup"},
		Metrics:    []string{"sessions", "totalUsers", "newUsers", "engagementRate", "bounceRate", "keyEvents"},
		Limit:      20,
		OrderBy:    "sessions",
	})
}

func extractReferrers(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionReferrers, ga4.Query{
		Dimensions: []string{"sessionSource", "sessionMedium"},
		Metrics:    []string{"sessions", "totalUsers", "engagementRate"},
		Limit:      in.topN(10) * 2,
		OrderBy:    "sessions",
	})
}

func extractLandingPages(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionLandingPages, ga4.Query{
		Dimensions: []string{"landingPage"},
		Metrics:    []string{"sessions", "engagementRate", "bounceRate", "keyEvents"},
		Limit:      in.topN(10),
		OrderBy:    "sessions",
	})
}

func extractPages(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionPages, ga4.Query{
		Dimensions: []string{"pagePath"},
		Metrics:    []string{"screenPageViews", "totalUsers", "engagementRate", "bounceRate", "averageSessionDuration"},
		Limit:      50,
		OrderBy:    "screenPageViews",
	})
}

func extractEvents(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	return tabulate(ctx, in, domain.SectionEvents, ga4.Query{
		Dimensions: []string{"eventName"},
		Metrics:    []string{"eventCount", "totalUsers", "keyEvents"},
		Limit:      25,
		OrderBy:    "eventCount",
	})
}

// extractHighBounce lists pages with bounce rate ≥ HighBounceRate and at
// least MinPageViews views, worst first. No such page is a valid, empty
// section.
func extractHighBounce(ctx context.Context, in Input) (*domain.SectionSummary, error) {
	s, err := tabulate(ctx, in, domain.SectionHighBounce, ga4.Query{
		Dimensions: []string{"pagePath"},
		Metrics:    []string{"screenPageViews", "bounceRate", "engagementRate"},
		Limit:      200,
		OrderBy:    "screenPageViews",
	})
	if err != nil {
		return nil, err
	}

	minViews := in.Settings.MinPageViews
	kept := make([]domain.MetricRow, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Metric("bounceRate") >= HighBounceRate && r.Metric("screenPageViews") >= minViews {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		bi, bj := kept[i].Metric("bounceRate"), kept[j].Metric("bounceRate")
		if bi != bj {
			return bi > bj
		}
		return kept[i].Metric("screenPageViews") > kept[j].Metric("screenPageViews")
	})
	if n := in.topN(10); len(kept) > n {
		kept = kept[:n]
	}
	s.Rows = kept
	s.Totals = totals(kept, s.Metrics)
	return s, nil
}
