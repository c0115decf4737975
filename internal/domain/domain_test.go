package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeFor(t *testing.T) {
	cases := map[int]string{100: "A", 80: "A", 79: "B", 60: "B", 59: "C", 40: "C", 39: "D", 20: "D", 19: "F", 0: "F"}
	for v, want := range cases {
		assert.Equal(t, want, GradeFor(v), "value %d", v)
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(fmt.Errorf("token: %w", ErrAuthentication)))
	assert.True(t, IsFatal(fmt.Errorf("resolve: %w", ErrInvalidProperty)))
	assert.False(t, IsFatal(fmt.Errorf("%w: %w", ErrDataUnavailable, ErrRateLimited)))
	assert.False(t, IsFatal(errors.New("other")))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityWarning.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityPositive.Rank())
}

func TestMetricRowKey(t *testing.T) {
	a := MetricRow{Dimensions: map[string]string{"country": "BR", "city": "Recife"}}
	b := MetricRow{Dimensions: map[string]string{"city": "Recife", "country": "BR"}}
	c := MetricRow{Dimensions: map[string]string{"country": "BRR", "city": "ecife"}}

	dims := []string{"country", "city"}
	assert.Equal(t, a.Key(dims), b.Key(dims))
	assert.NotEqual(t, a.Key(dims), c.Key(dims))
	assert.Equal(t, "", MetricRow{}.Key(nil))
}

func TestSectionMaxShare(t *testing.T) {
	s := &SectionSummary{Rows: []MetricRow{
		{Dimensions: map[string]string{"ch": "Organic"}, Metrics: map[string]float64{"sessions": 75}},
		{Dimensions: map[string]string{"ch": "Direct"}, Metrics: map[string]float64{"sessions": 25}},
	}}

	row, share, ok := s.MaxShare("sessions")
	require.True(t, ok)
	assert.Equal(t, "Organic", row.Dim("ch"))
	assert.InDelta(t, 0.75, share, 1e-9)

	_, _, ok = (&SectionSummary{}).MaxShare("sessions")
	assert.False(t, ok)

	var nilSummary *SectionSummary
	_, ok = nilSummary.Total("sessions")
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	changes := Compare(
		map[string]float64{"sessions": 150, "totalUsers": 10},
		map[string]float64{"sessions": 100},
	)
	require.Len(t, changes, len(SnapshotMetrics))

	byMetric := map[string]MetricChange{}
	for _, c := range changes {
		byMetric[c.Metric] = c
	}
	assert.InDelta(t, 50, byMetric["sessions"].PctChange, 1e-9)
	assert.Equal(t, 50.0, byMetric["sessions"].Change)
	assert.Equal(t, 100.0, byMetric["totalUsers"].PctChange)
	assert.Equal(t, 0.0, byMetric["newUsers"].PctChange)
}

func TestPropertyLabel(t *testing.T) {
	assert.Equal(t, "solvr (523300499)", Property{Name: "solvr", ID: "523300499"}.Label())
	assert.Equal(t, "42", Property{Name: "42", ID: "42"}.Label())
}
