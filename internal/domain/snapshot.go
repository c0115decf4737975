package domain

import "time"

// SnapshotMetrics are the core totals compared week over week.
var SnapshotMetrics = []string{
	"sessions", "totalUsers", "newUsers", "engagementRate",
	"bounceRate", "averageSessionDuration", "screenPageViews",
}

// Snapshot is the persisted summary of one run.
type Snapshot struct {
	ID          string             `json:"id" yaml:"id"`
	PropertyID  string             `json:"property_id" yaml:"property_id"`
	Property    string             `json:"property" yaml:"property"`
	Date        string             `json:"date" yaml:"date"` // YYYY-MM-DD
	Days        int                `json:"days" yaml:"days"`
	Metrics     map[string]float64 `json:"metrics" yaml:"metrics"`
	TopPages    []NamedValue       `json:"top_pages,omitempty" yaml:"top_pages,omitempty"`
	TopSources  []NamedValue       `json:"top_sources,omitempty" yaml:"top_sources,omitempty"`
	Overall     *int               `json:"overall,omitempty" yaml:"overall,omitempty"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
}

// NamedValue is a label with a count, used for top pages and sources.
type NamedValue struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// MetricChange is one week-over-week comparison line.
type MetricChange struct {
	Metric    string  `json:"metric" yaml:"metric"`
	Current   float64 `json:"current" yaml:"current"`
	Previous  float64 `json:"previous" yaml:"previous"`
	Change    float64 `json:"change" yaml:"change"`
	PctChange float64 `json:"pct_change" yaml:"pct_change"`
}

// Compare computes changes for SnapshotMetrics. A zero previous value
// yields 100% when the current value is positive and 0% otherwise.
func Compare(current, previous map[string]float64) []MetricChange {
	out := make([]MetricChange, 0, len(SnapshotMetrics))
	for _, m := range SnapshotMetrics {
		cur, prev := current[m], previous[m]
		var pct float64
		switch {
		case prev > 0:
			pct = (cur - prev) / prev * 100
		case cur > 0:
			pct = 100
		}
		out = append(out, MetricChange{
			Metric:    m,
			Current:   cur,
			Previous:  prev,
			Change:    cur - prev,
			PctChange: pct,
		})
	}
	return out
}
