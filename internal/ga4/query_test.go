package ga4

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

func metricNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("m%02d", i+1)
	}
	return out
}

func TestPlanBatches_FifteenMetrics(t *testing.T) {
	batches := PlanBatches(metricNames(15), "", MaxMetrics)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 5)
	assert.Equal(t, "m01", batches[0][0])
	assert.Equal(t, "m11", batches[1][0])
}

func TestPlanBatches_FitsInOne(t *testing.T) {
	batches := PlanBatches([]string{"sessions", "totalUsers", "sessions", ""}, "sessions", MaxMetrics)
	assert.Equal(t, [][]string{{"sessions", "totalUsers"}}, batches)
}

func TestPlanBatches_OrderByInEveryBatch(t *testing.T) {
	metrics := metricNames(12)
	batches := PlanBatches(metrics, "m12", MaxMetrics)

	require.Len(t, batches, 2)
	seen := map[string]int{}
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), MaxMetrics)
		assert.Equal(t, "m12", b[0])
		for _, m := range b {
			seen[m]++
		}
	}
	for _, m := range metrics[:11] {
		assert.Equal(t, 1, seen[m], m)
	}
	assert.Equal(t, 2, seen["m12"])
}

func TestPlanBatches_FifteenMetricsWithOrderBy(t *testing.T) {
	batches := PlanBatches(metricNames(15), "m01", MaxMetrics)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 6)
	assert.Equal(t, "m01", batches[0][0])
	assert.Equal(t, []string{"m01", "m11", "m12", "m13", "m14", "m15"}, batches[1])
}

func TestPlanBatches_AddsMissingOrderBy(t *testing.T) {
	batches := PlanBatches([]string{"totalUsers"}, "sessions", MaxMetrics)
	assert.Equal(t, [][]string{{"totalUsers", "sessions"}}, batches)
}

func row(dims map[string]string, metrics map[string]float64) domain.MetricRow {
	return domain.MetricRow{Dimensions: dims, Metrics: metrics}
}

func TestMergeRows_UnionByKey(t *testing.T) {
	dims := []string{"country"}
	metrics := []string{"sessions", "totalUsers", "bounceRate"}

	first := []domain.MetricRow{
		row(map[string]string{"country": "BR"}, map[string]float64{"sessions": 10, "totalUsers": 8}),
		row(map[string]string{"country": "US"}, map[string]float64{"sessions": 5, "totalUsers": 4}),
	}
	second := []domain.MetricRow{
		row(map[string]string{"country": "US"}, map[string]float64{"bounceRate": 0.4}),
		row(map[string]string{"country": "PT"}, map[string]float64{"bounceRate": 0.9}),
	}

	merged := MergeRows(dims, metrics, first, second)

	require.Len(t, merged, 3)
	assert.Equal(t, "BR", merged[0].Dim("country"))
	assert.Equal(t, map[string]float64{"sessions": 10, "totalUsers": 8, "bounceRate": 0}, merged[0].Metrics)
	assert.Equal(t, map[string]float64{"sessions": 5, "totalUsers": 4, "bounceRate": 0.4}, merged[1].Metrics)
	assert.Equal(t, "PT", merged[2].Dim("country"))
	assert.Equal(t, map[string]float64{"sessions": 0, "totalUsers": 0, "bounceRate": 0.9}, merged[2].Metrics)

	// inputs are left untouched
	assert.NotContains(t, first[1].Metrics, "bounceRate")
}

func TestMergeRows_NoDimensions(t *testing.T) {
	merged := MergeRows(nil, []string{"a", "b"},
		[]domain.MetricRow{row(nil, map[string]float64{"a": 1})},
		[]domain.MetricRow{row(nil, map[string]float64{"b": 2})},
	)
	require.Len(t, merged, 1)
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, merged[0].Metrics)
}

func TestQuery_RowLimitAndDimensions(t *testing.T) {
	assert.Equal(t, RowCap, Query{}.RowLimit())
	assert.Equal(t, RowCap, Query{Limit: RowCap + 1}.RowLimit())
	assert.Equal(t, 25, Query{Limit: 25}.RowLimit())

	q := Query{Dimensions: []string{"date"}, Ranges: []DateRange{{Name: "a"}, {Name: "b"}}}
	assert.Equal(t, []string{"date", DateRangeDimension}, q.ResultDimensions())
	assert.Equal(t, []string{"date"}, q.Dimensions)
}
