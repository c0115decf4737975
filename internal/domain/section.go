package domain

// Section names in report order.
const (
	SectionRealtime       = "realtime"
	SectionCore           = "core"
	SectionAcquisition    = "acquisition"
	SectionReferrers      = "referrers"
	SectionLandingPages   = "landing_pages"
	SectionPages          = "pages"
	SectionEvents         = "events"
	SectionTechnology     = "technology"
	SectionGeography      = "geography"
	SectionTimePatterns   = "time_patterns"
	SectionDayOfWeek      = "day_of_week"
	SectionNewVsReturning = "new_vs_returning"
	SectionLanguages      = "languages"
	SectionDailyTrend     = "daily_trend"
	SectionHighBounce     = "high_bounce_pages"
	SectionUserActivity   = "user_activity"
)

// SectionSummary is a named set of rows plus pre-aggregated totals. It is
// produced by one extractor and only read afterwards.
type SectionSummary struct {
	Name       string             `json:"name" yaml:"name"`
	Title      string             `json:"title" yaml:"title"`
	Dimensions []string           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Metrics    []string           `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Rows       []MetricRow        `json:"rows" yaml:"rows"`
	Totals     map[string]float64 `json:"totals,omitempty" yaml:"totals,omitempty"`
	Truncated  bool               `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// Total returns a pre-aggregated total and whether it is present.
func (s *SectionSummary) Total(name string) (float64, bool) {
	if s == nil || s.Totals == nil {
		return 0, false
	}
	v, ok := s.Totals[name]
	return v, ok
}

// Sum adds metric over all rows.
func (s *SectionSummary) Sum(metric string) float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, r := range s.Rows {
		total += r.Metric(metric)
	}
	return total
}

// MaxShare returns the row with the largest share of metric and that share.
// ok is false when there are no rows or the total is zero.
func (s *SectionSummary) MaxShare(metric string) (row MetricRow, share float64, ok bool) {
	total := s.Sum(metric)
	if total <= 0 {
		return MetricRow{}, 0, false
	}
	best := -1.0
	for _, r := range s.Rows {
		if v := r.Metric(metric); v > best {
			best = v
			row = r
		}
	}
	return row, best / total, true
}
