// Package health reduces section summaries to the named 0-100 health
// scores and their overall mean.
package health

import (
	"fmt"
	"math"
	"strings"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/sections"
)

// Reference scales: values at or above these earn full marks.
const (
	fullEngagementRate     = 0.60
	fullEngagementSeconds  = 120.0
	fullMobileShare        = 0.50
	fullPagesPerSession    = 4.0
	retentionMultiplier    = 500.0
	engagementRateWeight   = 60.0
	engagementSecondWeight = 40.0
)

// Card is the scorer's output. Skipped lists scores whose inputs were
// unavailable; they do not count towards Overall.
type Card struct {
	Scores  []domain.HealthScore `json:"scores" yaml:"scores"`
	Skipped []string             `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Overall *int                 `json:"overall,omitempty" yaml:"overall,omitempty"`
	Grade   string               `json:"grade,omitempty" yaml:"grade,omitempty"`
}

// Get returns a score by name.
func (c Card) Get(name string) (domain.HealthScore, bool) {
	for _, s := range c.Scores {
		if s.Name == name {
			return s, true
		}
	}
	return domain.HealthScore{}, false
}

type scorer struct {
	name  string
	label string
	fn    func(map[string]*domain.SectionSummary) (float64, string, bool)
}

var scorers = []scorer{
	{domain.ScoreEngagement, "Engagement", engagement},
	{domain.ScoreTrafficDiversity, "Traffic Diversity", trafficDiversity},
	{domain.ScoreRetention, "Retention", retention},
	{domain.ScoreMobileReady, "Mobile Ready", mobileReady},
	{domain.ScoreContent, "Content", content},
	{domain.ScoreGrowth, "Growth", growth},
	{domain.ScoreGeoDiversity, "Geo Diversity", geoDiversity},
}

// Score computes every score whose inputs are present. Missing sections
// (nil entries or absent keys) skip the scores that need them.
func Score(summaries map[string]*domain.SectionSummary) Card {
	var card Card
	var sum int
	for _, s := range scorers {
		v, detail, ok := s.fn(summaries)
		if !ok {
			card.Skipped = append(card.Skipped, s.name)
			continue
		}
		n := Normalize(v)
		card.Scores = append(card.Scores, domain.HealthScore{
			Name:   s.name,
			Label:  s.label,
			Value:  n,
			Grade:  domain.GradeFor(n),
			Detail: detail,
		})
		sum += n
	}
	if len(card.Scores) > 0 {
		overall := int(math.Round(float64(sum) / float64(len(card.Scores))))
		card.Overall = &overall
		card.Grade = domain.GradeFor(overall)
	}
	return card
}

// Normalize clamps v to [0,100] and rounds half away from zero. NaN and
// infinities score 0.
func Normalize(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// GrowthChange is the fractional change in sessions between the two growth
// windows carried on the core summary. ok is false when either is missing.
func GrowthChange(core *domain.SectionSummary) (change float64, ok bool) {
	cur, ok1 := core.Total(sections.TotalGrowthCurrent)
	prev, ok2 := core.Total(sections.TotalGrowthPrevious)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case prev > 0:
		return (cur - prev) / prev, true
	case cur > 0:
		return 0.5, true // from nothing to something scores the maximum
	}
	return 0, true
}

func engagement(s map[string]*domain.SectionSummary) (float64, string, bool) {
	core := s[domain.SectionCore]
	rate, ok := core.Total("engagementRate")
	if !ok {
		return 0, "", false
	}
	perSession, _ := core.Total(sections.TotalEngagementPerSess)
	v := engagementRateWeight*math.Min(rate/fullEngagementRate, 1) +
		engagementSecondWeight*math.Min(perSession/fullEngagementSeconds, 1)
	return v, fmt.Sprintf("engagement rate %.1f%%, %.0fs engaged per session", rate*100, perSession), true
}

func trafficDiversity(s map[string]*domain.SectionSummary) (float64, string, bool) {
	row, share, ok := s[domain.SectionAcquisition].MaxShare("sessions")
	if !ok {
		return 0, "", false
	}
	top := row.Dim("sessionDefaultChannelGroup")
	return (1 - share) * 100, fmt.Sprintf("largest channel %s at %.1f%% of sessions", top, share*100), true
}

// retention uses the unique-user windows counted by the user_activity
// section, never the API's relative rolling fields.
func retention(s map[string]*domain.SectionSummary) (float64, string, bool) {
	ua := s[domain.SectionUserActivity]
	dau, ok1 := ua.Total(sections.TotalDAU)
	mau, ok2 := ua.Total(sections.TotalMAU)
	if !ok1 || !ok2 || mau <= 0 {
		return 0, "", false
	}
	ratio := dau / mau
	return math.Min(100, ratio*retentionMultiplier), fmt.Sprintf("DAU/MAU %.0f/%.0f = %.1f%%", dau, mau, ratio*100), true
}

func mobileReady(s map[string]*domain.SectionSummary) (float64, string, bool) {
	tech := s[domain.SectionTechnology]
	total := tech.Sum("sessions")
	if total <= 0 {
		return 0, "", false
	}
	var mobile float64
	for _, r := range tech.Rows {
		switch strings.ToLower(r.Dim("deviceCategory")) {
		case "mobile", "tablet":
			mobile += r.Metric("sessions")
		}
	}
	share := mobile / total
	return math.Min(100, share/fullMobileShare*100), fmt.Sprintf("%.1f%% of sessions on mobile or tablet", share*100), true
}

func content(s map[string]*domain.SectionSummary) (float64, string, bool) {
	core := s[domain.SectionCore]
	pps, ok := core.Total("screenPageViewsPerSession")
	if !ok {
		views, ok1 := core.Total("screenPageViews")
		sessions, ok2 := core.Total("sessions")
		if !ok1 || !ok2 || sessions <= 0 {
			return 0, "", false
		}
		pps = views / sessions
	}
	return math.Min(pps/fullPagesPerSession, 1) * 100, fmt.Sprintf("%.2f pages per session", pps), true
}

// growth maps a 0% change to the midpoint 50; +50% or more is 100 and
// -50% or less is 0.
func growth(s map[string]*domain.SectionSummary) (float64, string, bool) {
	change, ok := GrowthChange(s[domain.SectionCore])
	if !ok {
		return 0, "", false
	}
	return 50 + change*100, fmt.Sprintf("sessions %+.1f%% week over week", change*100), true
}

func geoDiversity(s map[string]*domain.SectionSummary) (float64, string, bool) {
	row, share, ok := s[domain.SectionGeography].MaxShare("sessions")
	if !ok {
		return 0, "", false
	}
	return (1 - share) * 100, fmt.Sprintf("top country %s at %.1f%% of sessions", row.Dim("country"), share*100), true
}
