package ga4

import (
	"fmt"
	"slices"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

// API limits per request.
const (
	MaxMetrics    = 10
	MaxDimensions = 9
	RowCap        = 10000
)

// DateRangeDimension is appended by the API when a request carries more
// than one date range; its values are the range names.
const DateRangeDimension = "dateRange"

// DateRange is an inclusive range. Start and End are YYYY-MM-DD or the
// API's relative forms ("7daysAgo", "yesterday", "today").
type DateRange struct {
	Name  string `json:"name,omitempty"`
	Start string `json:"startDate"`
	End   string `json:"endDate"`
}

// Query describes one logical report request. It may exceed MaxMetrics;
// Source splits it.
type Query struct {
	Dimensions []string
	Metrics    []string
	Ranges     []DateRange
	Limit      int
	OrderBy    string // metric name; empty keeps API order
	Ascending  bool
}

// RowLimit clamps Limit to (0, RowCap].
func (q Query) RowLimit() int {
	if q.Limit <= 0 || q.Limit > RowCap {
		return RowCap
	}
	return q.Limit
}

// ResultDimensions lists the dimensions present on returned rows.
func (q Query) ResultDimensions() []string {
	if len(q.Ranges) > 1 && !slices.Contains(q.Dimensions, DateRangeDimension) {
		return append(slices.Clone(q.Dimensions), DateRangeDimension)
	}
	return q.Dimensions
}

func (q Query) validate() error {
	if len(q.Dimensions) > MaxDimensions {
		return fmt.Errorf("%w: %d dimensions exceeds the limit of %d", domain.ErrDataUnavailable, len(q.Dimensions), MaxDimensions)
	}
	if len(q.Metrics) == 0 {
		return fmt.Errorf("%w: query has no metrics", domain.ErrDataUnavailable)
	}
	return nil
}

// Result is the normalized response of one (possibly merged) query.
type Result struct {
	Dimensions []string           `json:"dimensions"`
	Metrics    []string           `json:"metrics"`
	Rows       []domain.MetricRow `json:"rows"`
	RowCount   int                `json:"row_count"`
	Truncated  bool               `json:"truncated"`
}

// PlanBatches splits metrics into request-sized groups, preserving order
// and dropping duplicates. When orderBy is set it is carried in every
// group so each sub-request ranks rows the same way.
func PlanBatches(metrics []string, orderBy string, size int) [][]string {
	if size < 1 {
		size = MaxMetrics
	}
	uniq := dedupe(metrics)
	if orderBy != "" && !slices.Contains(uniq, orderBy) {
		uniq = append(uniq, orderBy)
	}
	if len(uniq) <= size {
		return [][]string{uniq}
	}

	if orderBy == "" || size == 1 {
		return chunk(uniq, size)
	}
	rest := slices.DeleteFunc(slices.Clone(uniq), func(m string) bool { return m == orderBy })
	var batches [][]string
	for _, c := range chunk(rest, size-1) {
		batches = append(batches, append([]string{orderBy}, c...))
	}
	return batches
}

// MergeRows combines the row sets of sub-requests. Rows with the same
// dimension tuple are combined; the output keeps first-seen order and
// every row carries every metric, zero when a sub-request lacked the row.
func MergeRows(dims, metrics []string, parts ...[]domain.MetricRow) []domain.MetricRow {
	index := map[string]int{}
	var out []domain.MetricRow
	for _, rows := range parts {
		for _, r := range rows {
			key := r.Key(dims)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				d := make(map[string]string, len(dims))
				for _, name := range dims {
					d[name] = r.Dim(name)
				}
				out = append(out, domain.MetricRow{Dimensions: d, Metrics: make(map[string]float64, len(metrics))})
			}
			for name, v := range r.Metrics {
				out[i].Metrics[name] = v
			}
		}
	}
	for i := range out {
		for _, m := range metrics {
			if _, ok := out[i].Metrics[m]; !ok {
				out[i].Metrics[m] = 0
			}
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func chunk(in []string, size int) [][]string {
	var out [][]string
	for len(in) > size {
		out = append(out, in[:size:size])
		in = in[size:]
	}
	if len(in) > 0 {
		out = append(out, in)
	}
	return out
}
