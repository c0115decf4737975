package domain

import "strings"

// MetricRow is one row of an analytics response: dimension values keyed by
// dimension name and numeric metric values keyed by metric name. Rows are
// not modified after they are fetched.
type MetricRow struct {
	Dimensions map[string]string  `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Metrics    map[string]float64 `json:"metrics" yaml:"metrics"`
}

// Dim returns a dimension value or "".
func (r MetricRow) Dim(name string) string {
	return r.Dimensions[name]
}

// Metric returns a metric value or 0.
func (r MetricRow) Metric(name string) float64 {
	return r.Metrics[name]
}

// keySep cannot appear in GA4 dimension values.
const keySep = "\x1f"

// Key joins the values of dims in order. Rows with the same key describe
// the same dimension tuple.
func (r MetricRow) Key(dims []string) string {
	vals := make([]string, len(dims))
	for i, d := range dims {
		vals[i] = r.Dimensions[d]
	}
	return strings.Join(vals, keySep)
}
