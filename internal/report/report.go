// Package report assembles one run's sections, health card and
// recommendations into a Report and renders it as text, JSON, YAML or an
// HTML email body.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/health"
	"github.com/ignite/ga-deep-dive/internal/sections"
)

// Entry is one section slot. Exactly one of Summary and Unavailable is set.
type Entry struct {
	Name        string                 `json:"name" yaml:"name"`
	Title       string                 `json:"title" yaml:"title"`
	Summary     *domain.SectionSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Unavailable string                 `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// Report is the full output of one run.
type Report struct {
	RunID           string                  `json:"run_id" yaml:"run_id"`
	Property        domain.Property         `json:"property" yaml:"property"`
	Window          sections.Window         `json:"window" yaml:"window"`
	Days            int                     `json:"days" yaml:"days"`
	GeneratedAt     time.Time               `json:"generated_at" yaml:"generated_at"`
	Sections        []Entry                 `json:"sections" yaml:"sections"`
	Health          health.Card             `json:"health" yaml:"health"`
	Recommendations []domain.Recommendation `json:"recommendations" yaml:"recommendations"`
	Comparison      []domain.MetricChange   `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	ComparedTo      string                  `json:"compared_to,omitempty" yaml:"compared_to,omitempty"`
}

// New starts an empty report for property over window.
func New(property domain.Property, window sections.Window, now time.Time) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		Property:    property,
		Window:      window,
		Days:        window.Days(),
		GeneratedAt: now.UTC(),
	}
}

// Add records a section outcome. A nil summary with a nil error is
// recorded as having no data.
func (r *Report) Add(name string, s *domain.SectionSummary, err error) {
	e := Entry{Name: name, Title: sections.Title(name), Summary: s}
	switch {
	case err != nil:
		e.Summary = nil
		e.Unavailable = err.Error()
	case s == nil:
		e.Unavailable = "no data returned"
	}
	r.Sections = append(r.Sections, e)
}

// Entry returns the slot for a section name.
func (r *Report) Entry(name string) (Entry, bool) {
	for _, e := range r.Sections {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Summaries maps section name to summary for every available section.
func (r *Report) Summaries() map[string]*domain.SectionSummary {
	out := make(map[string]*domain.SectionSummary, len(r.Sections))
	for _, e := range r.Sections {
		if e.Summary != nil {
			out[e.Name] = e.Summary
		}
	}
	return out
}

// Unavailable lists the names of sections that could not be fetched.
func (r *Report) Unavailable() []string {
	var out []string
	for _, e := range r.Sections {
		if e.Summary == nil {
			out = append(out, e.Name)
		}
	}
	return out
}

// Snapshot extracts the persisted summary of this run.
func (r *Report) Snapshot(topN int) *domain.Snapshot {
	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		PropertyID:  r.Property.ID,
		Property:    r.Property.Name,
		Date:        r.Window.End.Format("2006-01-02"),
		Days:        r.Days,
		Metrics:     map[string]float64{},
		Overall:     r.Health.Overall,
		GeneratedAt: r.GeneratedAt,
	}
	summaries := r.Summaries()
	if core := summaries[domain.SectionCore]; core != nil {
		for _, m := range domain.SnapshotMetrics {
			if v, ok := core.Total(m); ok {
				snap.Metrics[m] = v
			}
		}
	}
	snap.TopPages = top(summaries[domain.SectionPages], "pagePath", "screenPageViews", topN)
	snap.TopSources = top(summaries[domain.SectionReferrers], "sessionSource", "sessions", topN)
	return snap
}

// top takes the first n rows; sections arrive ordered by metric already.
func top(s *domain.SectionSummary, dim, metric string, n int) []domain.NamedValue {
	if s == nil {
		return nil
	}
	var out []domain.NamedValue
	for _, row := range s.Rows {
		if len(out) == n {
			break
		}
		name := row.Dim(dim)
		if medium := row.Dim("sessionMedium"); dim == "sessionSource" && medium != "" {
			name += " / " + medium
		}
		out = append(out, domain.NamedValue{Name: name, Value: row.Metric(metric)})
	}
	return out
}
