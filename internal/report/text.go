package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/sections"
)

var percentMetrics = map[string]bool{
	"engagementRate":         true,
	"bounceRate":             true,
	sections.TotalStickiness: true,
}

var secondMetrics = map[string]bool{
	"averageSessionDuration":        true,
	"userEngagementDuration":        true,
	sections.TotalEngagementPerSess: true,
}

var ratioMetrics = map[string]bool{
	"screenPageViewsPerSession": true,
	"sessionsPerUser":           true,
	sections.RollingMetric:      true,
}

// FormatMetric renders a metric value for people: rates as percentages,
// durations in seconds, counts with thousands separators.
func FormatMetric(name string, v float64) string {
	switch {
	case percentMetrics[name]:
		return fmt.Sprintf("%.1f%%", v*100)
	case secondMetrics[name]:
		return fmt.Sprintf("%.0fs", v)
	case ratioMetrics[name]:
		return fmt.Sprintf("%.2f", v)
	}
	return humanize.Comma(int64(math.Round(v)))
}

func pct(change float64) string {
	return fmt.Sprintf("%+.1f%%", change)
}

// RenderText writes the plain-text report. Sections always appear in
// report order; a section that failed or was never collected is marked
// instead of omitted.
func RenderText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "GA4 Deep Dive: %s\n", r.Property.Label())
	fmt.Fprintf(bw, "Period: %s (%d days)\n", r.Window, r.Days)
	fmt.Fprintf(bw, "Generated: %s  Run: %s\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"), r.RunID)

	for _, name := range sections.Names() {
		e, ok := r.Entry(name)
		if !ok {
			e = Entry{Name: name, Title: sections.Title(name), Unavailable: "not collected"}
		}
		writeSection(bw, e)
	}

	writeHealth(bw, r)
	writeRecommendations(bw, r.Recommendations)
	if len(r.Comparison) > 0 {
		writeComparison(bw, r)
	}
	return bw.Flush()
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

func writeSection(w io.Writer, e Entry) {
	heading(w, e.Title)
	if e.Summary == nil {
		fmt.Fprintf(w, "(no data: %s)\n", e.Unavailable)
		return
	}
	s := e.Summary

	switch e.Name {
	case domain.SectionRealtime:
		fmt.Fprintf(w, "Active users (last 30 minutes): %s\n", FormatMetric("activeUsers", s.Totals[sections.TotalActiveNow]))
	case domain.SectionCore:
		writeCore(w, s)
		return
	case domain.SectionUserActivity:
		fmt.Fprintf(w, "DAU %s  WAU %s  MAU %s  stickiness %s\n",
			FormatMetric(sections.TotalDAU, s.Totals[sections.TotalDAU]),
			FormatMetric(sections.TotalWAU, s.Totals[sections.TotalWAU]),
			FormatMetric(sections.TotalMAU, s.Totals[sections.TotalMAU]),
			FormatMetric(sections.TotalStickiness, s.Totals[sections.TotalStickiness]))
		return
	}

	if len(s.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	writeTable(w, s)
}

func writeCore(w io.Writer, s *domain.SectionSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Metric\tCurrent\tPrevious\tChange")
	for _, m := range sections.CoreMetrics {
		cur, ok := s.Total(m)
		if !ok {
			continue
		}
		prev, hasPrev := s.Total(sections.PreviousPrefix + m)
		if !hasPrev {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\n", m, FormatMetric(m, cur))
			continue
		}
		change := "-"
		if prev != 0 {
			change = pct((cur - prev) / prev * 100)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m, FormatMetric(m, cur), FormatMetric(m, prev), change)
	}
	if v, ok := s.Total(sections.TotalEngagementPerSess); ok {
		fmt.Fprintf(tw, "%s\t%s\t\t\n", sections.TotalEngagementPerSess, FormatMetric(sections.TotalEngagementPerSess, v))
	}
	tw.Flush()

	cur, ok1 := s.Total(sections.TotalGrowthCurrent)
	prev, ok2 := s.Total(sections.TotalGrowthPrevious)
	if ok1 && ok2 {
		line := fmt.Sprintf("Week over week sessions: %s vs %s", FormatMetric("sessions", cur), FormatMetric("sessions", prev))
		if prev > 0 {
			line += " (" + pct((cur-prev)/prev*100) + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func writeTable(w io.Writer, s *domain.SectionSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cols := make([]string, 0, len(s.Dimensions)+len(s.Metrics))
	cols = append(cols, s.Dimensions...)
	cols = append(cols, s.Metrics...)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))

	for _, row := range s.Rows {
		vals := make([]string, 0, len(cols))
		for _, d := range s.Dimensions {
			vals = append(vals, row.Dim(d))
		}
		for _, m := range s.Metrics {
			vals = append(vals, FormatMetric(m, row.Metric(m)))
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	tw.Flush()
	if s.Truncated {
		fmt.Fprintln(w, "(truncated)")
	}
}

func writeHealth(w io.Writer, r *Report) {
	heading(w, "Health scores")
	if len(r.Health.Scores) == 0 {
		fmt.Fprintln(w, "(no data: no score inputs available)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range r.Health.Scores {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Label, s.Value, s.Grade, s.Detail)
	}
	tw.Flush()
	if len(r.Health.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped (no data): %s\n", strings.Join(r.Health.Skipped, ", "))
	}
	if r.Health.Overall != nil {
		fmt.Fprintf(w, "Overall: %d (%s)\n", *r.Health.Overall, r.Health.Grade)
	}
}

func writeRecommendations(w io.Writer, recs []domain.Recommendation) {
	heading(w, "Recommendations")
	if len(recs) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for i, rec := range recs {
		fmt.Fprintf(w, "%d. [%s] %s\n", i+1, strings.ToUpper(string(rec.Severity)), rec.Message)
	}
}

func writeComparison(w io.Writer, r *Report) {
	heading(w, "Compared with "+r.ComparedTo)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Metric\tCurrent\tPrevious\tChange")
	for _, c := range r.Comparison {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Metric, FormatMetric(c.Metric, c.Current), FormatMetric(c.Metric, c.Previous), pct(c.PctChange))
	}
	tw.Flush()
}
