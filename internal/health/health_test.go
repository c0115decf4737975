package health

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/sections"
)

func channels(shares ...float64) *domain.SectionSummary {
	s := &domain.SectionSummary{Name: domain.SectionAcquisition}
	for i, v := range shares {
		s.Rows = append(s.Rows, domain.MetricRow{
			Dimensions: map[string]string{"sessionDefaultChannelGroup": string(rune('A' + i))},
			Metrics:    map[string]float64{"sessions": v},
		})
	}
	return s
}

func fullSummaries() map[string]*domain.SectionSummary {
	return map[string]*domain.SectionSummary{
		domain.SectionCore: {Name: domain.SectionCore, Totals: map[string]float64{
			"engagementRate":                0.60,
			sections.TotalEngagementPerSess: 60,
			"screenPageViewsPerSession":     2,
			sections.TotalGrowthCurrent:     110,
			sections.TotalGrowthPrevious:    100,
		}},
		domain.SectionAcquisition: channels(50, 50),
		domain.SectionUserActivity: {Name: domain.SectionUserActivity, Totals: map[string]float64{
			sections.TotalDAU: 20, sections.TotalMAU: 200,
		}},
		domain.SectionTechnology: {Name: domain.SectionTechnology, Rows: []domain.MetricRow{
			{Dimensions: map[string]string{"deviceCategory": "desktop"}, Metrics: map[string]float64{"sessions": 75}},
			{Dimensions: map[string]string{"deviceCategory": "mobile"}, Metrics: map[string]float64{"sessions": 20}},
			{Dimensions: map[string]string{"deviceCategory": "tablet"}, Metrics: map[string]float64{"sessions": 5}},
		}},
		domain.SectionGeography: {Name: domain.SectionGeography, Rows: []domain.MetricRow{
			{Dimensions: map[string]string{"country": "United States"}, Metrics: map[string]float64{"sessions": 80}},
			{Dimensions: map[string]string{"country": "Canada"}, Metrics: map[string]float64{"sessions": 20}},
		}},
	}
}

func value(t *testing.T, card Card, name string) int {
	t.Helper()
	s, ok := card.Get(name)
	require.True(t, ok, "score %s missing", name)
	return s.Value
}

func TestScore_AllScores(t *testing.T) {
	card := Score(fullSummaries())

	assert.Empty(t, card.Skipped)
	assert.Equal(t, 80, value(t, card, domain.ScoreEngagement))
	assert.Equal(t, 50, value(t, card, domain.ScoreTrafficDiversity))
	assert.Equal(t, 50, value(t, card, domain.ScoreRetention))
	assert.Equal(t, 50, value(t, card, domain.ScoreMobileReady))
	assert.Equal(t, 50, value(t, card, domain.ScoreContent))
	assert.Equal(t, 60, value(t, card, domain.ScoreGrowth))
	assert.Equal(t, 20, value(t, card, domain.ScoreGeoDiversity))

	require.NotNil(t, card.Overall)
	// (80+50+50+50+50+60+20)/7 = 51.43
	assert.Equal(t, 51, *card.Overall)
	assert.Equal(t, "C", card.Grade)

	s, _ := card.Get(domain.ScoreEngagement)
	assert.Equal(t, "A", s.Grade)
	assert.Equal(t, "Engagement", s.Label)
}

func TestScore_RetentionFromKnownSets(t *testing.T) {
	card := Score(map[string]*domain.SectionSummary{
		domain.SectionUserActivity: {Totals: map[string]float64{sections.TotalDAU: 20, sections.TotalMAU: 200}},
	})
	s, ok := card.Get(domain.ScoreRetention)
	require.True(t, ok)
	assert.Equal(t, 50, s.Value)
	assert.Contains(t, s.Detail, "10.0%")
}

func TestScore_RetentionZeroDailyUsers(t *testing.T) {
	card := Score(map[string]*domain.SectionSummary{
		domain.SectionUserActivity: {Totals: map[string]float64{sections.TotalDAU: 0, sections.TotalMAU: 200}},
	})
	s, ok := card.Get(domain.ScoreRetention)
	require.True(t, ok)
	assert.Equal(t, 0, s.Value)
	assert.Empty(t, card.Skipped)
	require.NotNil(t, card.Overall)
	assert.Equal(t, 0, *card.Overall)
}

func TestScore_TrafficDiversity(t *testing.T) {
	single := Score(map[string]*domain.SectionSummary{domain.SectionAcquisition: channels(1000)})
	even := Score(map[string]*domain.SectionSummary{domain.SectionAcquisition: channels(20, 20, 20, 20, 20)})

	assert.Equal(t, 0, value(t, single, domain.ScoreTrafficDiversity))
	assert.Equal(t, 80, value(t, even, domain.ScoreTrafficDiversity))
	assert.Greater(t, value(t, even, domain.ScoreTrafficDiversity), value(t, single, domain.ScoreTrafficDiversity))
}

func TestScore_Growth(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev float64
		want      int
	}{
		{"identical periods", 500, 500, 50},
		{"both empty", 0, 0, 50},
		{"from nothing", 40, 0, 100},
		{"halved", 50, 100, 0},
		{"collapse clamps", 0, 100, 0},
		{"tripled clamps", 300, 100, 100},
		{"down a quarter", 75, 100, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := Score(map[string]*domain.SectionSummary{
				domain.SectionCore: {Totals: map[string]float64{
					sections.TotalGrowthCurrent: tt.cur, sections.TotalGrowthPrevious: tt.prev,
				}},
			})
			assert.Equal(t, tt.want, value(t, card, domain.ScoreGrowth))
		})
	}
}

func TestScore_SkippedSectionExcludedFromOverall(t *testing.T) {
	all := fullSummaries()
	withoutGeo := fullSummaries()
	delete(withoutGeo, domain.SectionGeography)

	full := Score(all)
	partial := Score(withoutGeo)

	assert.Equal(t, []string{domain.ScoreGeoDiversity}, partial.Skipped)
	assert.Len(t, partial.Scores, len(full.Scores)-1)

	var sum int
	for _, s := range full.Scores {
		if s.Name != domain.ScoreGeoDiversity {
			sum += s.Value
		}
	}
	// (80+50+50+50+50+60)/6 = 56.67
	want := int(math.Round(float64(sum) / 6))
	require.NotNil(t, partial.Overall)
	assert.Equal(t, want, *partial.Overall)
	assert.Equal(t, 57, *partial.Overall)
}

func TestScore_NothingAvailable(t *testing.T) {
	card := Score(map[string]*domain.SectionSummary{domain.SectionCore: nil})
	assert.Empty(t, card.Scores)
	assert.Nil(t, card.Overall)
	assert.Len(t, card.Skipped, len(scorers))
}

func TestScore_ValuesStayInRange(t *testing.T) {
	inputs := []map[string]*domain.SectionSummary{
		{
			domain.SectionCore: {Totals: map[string]float64{
				"engagementRate": 7, sections.TotalEngagementPerSess: 1e9,
				"screenPageViewsPerSession": 250,
				sections.TotalGrowthCurrent: 1e7, sections.TotalGrowthPrevious: 1,
			}},
			// DAU above MAU happens when windows are counted differently
			domain.SectionUserActivity: {Totals: map[string]float64{sections.TotalDAU: 900, sections.TotalMAU: 10}},
			domain.SectionTechnology: {Rows: []domain.MetricRow{
				{Dimensions: map[string]string{"deviceCategory": "Mobile"}, Metrics: map[string]float64{"sessions": 10}},
			}},
		},
		{
			domain.SectionCore: {Totals: map[string]float64{
				"engagementRate": -3, sections.TotalEngagementPerSess: math.NaN(),
				"screenPageViewsPerSession": math.Inf(1),
				sections.TotalGrowthCurrent: 0, sections.TotalGrowthPrevious: 1e6,
			}},
			domain.SectionUserActivity: {Totals: map[string]float64{sections.TotalDAU: -5, sections.TotalMAU: 10}},
		},
	}
	for _, in := range inputs {
		card := Score(in)
		require.NotEmpty(t, card.Scores)
		for _, s := range card.Scores {
			assert.GreaterOrEqual(t, s.Value, 0, s.Name)
			assert.LessOrEqual(t, s.Value, 100, s.Name)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0, Normalize(math.NaN()))
	assert.Equal(t, 0, Normalize(math.Inf(-1)))
	assert.Equal(t, 0, Normalize(math.Inf(1)))
	assert.Equal(t, 100, Normalize(140))
	assert.Equal(t, 0, Normalize(-2))
	assert.Equal(t, 43, Normalize(42.5))
	assert.Equal(t, 42, Normalize(42.49))
}

func TestContent_FallsBackToViewsOverSessions(t *testing.T) {
	card := Score(map[string]*domain.SectionSummary{
		domain.SectionCore: {Totals: map[string]float64{"screenPageViews": 300, "sessions": 100}},
	})
	assert.Equal(t, 75, value(t, card, domain.ScoreContent))
}
