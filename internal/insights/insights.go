// Package insights turns section summaries and health scores into an
// ordered list of recommendations using a fixed table of rules.
package insights

import (
	"fmt"
	"sort"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/health"
	"github.com/ignite/ga-deep-dive/internal/sections"
)

// Rule names.
const (
	RuleChannelConcentration = "channel_concentration"
	RuleHighBounce           = "high_bounce_page"
	RuleGrowthDecline        = "growth_decline"
	RuleLowRetention         = "low_retention"
	RuleLowMobile            = "low_mobile_ready"
	RuleLowEngagement        = "low_engagement"
	RuleNoKeyEvents          = "no_key_events"
	RuleStrongGrowth         = "strong_growth"
	RuleLocalization         = "localization"
	RulePeakHour             = "peak_hour"
)

const (
	lowScore        = 40
	declineCritical = -0.25
	declineWarning  = -0.10
	strongGrowth    = 0.20
	maxBouncePages  = 3
)

// Input is everything the rules read.
type Input struct {
	Sections map[string]*domain.SectionSummary
	Health   health.Card
}

type rule func(th config.InsightsConfig, in Input) []domain.Recommendation

// Engine evaluates the rule table with fixed thresholds.
type Engine struct {
	th    config.InsightsConfig
	rules []rule
}

// New creates an Engine.
func New(th config.InsightsConfig) *Engine {
	return &Engine{
		th: th,
		rules: []rule{
			channelConcentration,
			highBounce,
			growthDecline,
			lowScoreRule(domain.ScoreRetention, RuleLowRetention,
				"Retention score is %d (%s). Give visitors a reason to come back, for example a newsletter or regular new content."),
			lowScoreRule(domain.ScoreMobileReady, RuleLowMobile,
				"Mobile readiness score is %d (%s). Check the mobile layout and page speed."),
			lowScoreRule(domain.ScoreEngagement, RuleLowEngagement,
				"Engagement score is %d (%s). Review landing page content and calls to action."),
			noKeyEvents,
			strongGrowthRule,
			localization,
			peakHour,
		},
	}
}

// Generate runs every rule and orders the matches by severity, then by
// magnitude descending. Rules with no matching data produce nothing.
func (e *Engine) Generate(in Input) []domain.Recommendation {
	var out []domain.Recommendation
	for _, r := range e.rules {
		out = append(out, r(e.th, in)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Magnitude > out[j].Magnitude
	})
	return out
}

func channelConcentration(th config.InsightsConfig, in Input) []domain.Recommendation {
	row, share, ok := in.Sections[domain.SectionAcquisition].MaxShare("sessions")
	if !ok || share <= th.ChannelConcentration {
		return nil
	}
	channel := row.Dim("sessionDefaultChannelGroup")
	return []domain.Recommendation{{
		Rule:     RuleChannelConcentration,
		Severity: domain.SeverityCritical,
		Message: fmt.Sprintf("%s drives %.0f%% of sessions. Diversify acquisition so one channel change cannot sink traffic.",
			channel, share*100),
		Source:    domain.SectionAcquisition,
		Magnitude: share,
	}}
}

func highBounce(th config.InsightsConfig, in Input) []domain.Recommendation {
	src := domain.SectionHighBounce
	pages := in.Sections[src]
	if pages == nil {
		src = domain.SectionPages
		pages = in.Sections[src]
	}
	if pages == nil {
		return nil
	}

	var hits []domain.MetricRow
	for _, r := range pages.Rows {
		if r.Metric("bounceRate") >= th.HighBounceRate && r.Metric("screenPageViews") >= th.MinPageViews {
			hits = append(hits, r)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Metric("bounceRate") > hits[j].Metric("bounceRate")
	})
	if len(hits) > maxBouncePages {
		hits = hits[:maxBouncePages]
	}

	out := make([]domain.Recommendation, 0, len(hits))
	for _, r := range hits {
		out = append(out, domain.Recommendation{
			Rule:     RuleHighBounce,
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("%s bounces %.0f%% of %.0f views. Fix the page content or the traffic sent to it.",
				r.Dim("pagePath"), r.Metric("bounceRate")*100, r.Metric("screenPageViews")),
			Source:    src,
			Magnitude: r.Metric("bounceRate"),
		})
	}
	return out
}

func growthDecline(_ config.InsightsConfig, in Input) []domain.Recommendation {
	change, ok := health.GrowthChange(in.Sections[domain.SectionCore])
	if !ok || change > declineWarning {
		return nil
	}
	sev := domain.SeverityWarning
	if change <= declineCritical {
		sev = domain.SeverityCritical
	}
	return []domain.Recommendation{{
		Rule:      RuleGrowthDecline,
		Severity:  sev,
		Message:   fmt.Sprintf("Sessions are down %.0f%% week over week. Check recent releases, campaigns and tracking.", -change*100),
		Source:    domain.ScoreGrowth,
		Magnitude: -change,
	}}
}

func lowScoreRule(score, name, format string) rule {
	return func(_ config.InsightsConfig, in Input) []domain.Recommendation {
		s, ok := in.Health.Get(score)
		if !ok || s.Value >= lowScore {
			return nil
		}
		return []domain.Recommendation{{
			Rule:      name,
			Severity:  domain.SeverityWarning,
			Message:   fmt.Sprintf(format, s.Value, detailOr(s, score)),
			Source:    score,
			Magnitude: float64(lowScore-s.Value) / lowScore,
		}}
	}
}

func detailOr(s domain.HealthScore, fallback string) string {
	if s.Detail != "" {
		return s.Detail
	}
	return fallback
}

func noKeyEvents(_ config.InsightsConfig, in Input) []domain.Recommendation {
	core := in.Sections[domain.SectionCore]
	keyEvents, ok := core.Total("keyEvents")
	if !ok || keyEvents > 0 {
		return nil
	}
	return []domain.Recommendation{{
		Rule:      RuleNoKeyEvents,
		Severity:  domain.SeverityWarning,
		Message:   "No key events were recorded. Mark sign-ups, purchases or other goals as key events so conversions can be measured.",
		Source:    domain.SectionCore,
		Magnitude: 1,
	}}
}

func strongGrowthRule(_ config.InsightsConfig, in Input) []domain.Recommendation {
	change, ok := health.GrowthChange(in.Sections[domain.SectionCore])
	if !ok || change < strongGrowth {
		return nil
	}
	msg := fmt.Sprintf("Sessions are up %.0f%% week over week. Find the source of the lift and double down on it.", change*100)
	// GrowthChange caps a start from zero, which is no percentage at all
	if prev, _ := in.Sections[domain.SectionCore].Total(sections.TotalGrowthPrevious); prev == 0 {
		cur, _ := in.Sections[domain.SectionCore].Total(sections.TotalGrowthCurrent)
		msg = fmt.Sprintf("Sessions went from none last week to %.0f this week. Find the source of the traffic and double down on it.", cur)
	}
	return []domain.Recommendation{{
		Rule:      RuleStrongGrowth,
		Severity:  domain.SeverityPositive,
		Message:   msg,
		Source:    domain.ScoreGrowth,
		Magnitude: change,
	}}
}

// localization picks the country with the most engaged seconds per
// session among those with a meaningful sample, skipping the country with
// the most sessions.
func localization(th config.InsightsConfig, in Input) []domain.Recommendation {
	geo := in.Sections[domain.SectionGeography]
	top, _, ok := geo.MaxShare("sessions")
	if !ok {
		return nil
	}
	topCountry := top.Dim("country")

	var best domain.MetricRow
	bestPerSession := 0.0
	for _, r := range geo.Rows {
		sessions := r.Metric("sessions")
		if r.Dim("country") == topCountry || sessions < th.MinCountrySessions || sessions <= 0 {
			continue
		}
		if v := r.Metric("userEngagementDuration") / sessions; v > bestPerSession {
			best, bestPerSession = r, v
		}
	}
	if bestPerSession <= 0 {
		return nil
	}

	msg := fmt.Sprintf("Visitors from %s are the most engaged at %.0fs per session.", best.Dim("country"), bestPerSession)
	if topSessions := top.Metric("sessions"); topSessions > 0 {
		if topPerSession := top.Metric("userEngagementDuration") / topSessions; topPerSession > 0 {
			msg += fmt.Sprintf(" That is %.1fx %s.", bestPerSession/topPerSession, topCountry)
		}
	}
	msg += " Consider localized content for them."
	return []domain.Recommendation{{
		Rule:      RuleLocalization,
		Severity:  domain.SeverityPositive,
		Message:   msg,
		Source:    domain.SectionGeography,
		Magnitude: bestPerSession,
	}}
}

func peakHour(_ config.InsightsConfig, in Input) []domain.Recommendation {
	row, share, ok := in.Sections[domain.SectionTimePatterns].MaxShare("sessions")
	if !ok {
		return nil
	}
	return []domain.Recommendation{{
		Rule:     RulePeakHour,
		Severity: domain.SeverityPositive,
		Message: fmt.Sprintf("Traffic peaks at %s:00 with %.0f%% of sessions. Schedule publishing and campaigns just before it.",
			row.Dim("hour"), share*100),
		Source:    domain.SectionTimePatterns,
		Magnitude: share,
	}}
}
