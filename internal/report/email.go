package report

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/ga-deep-dive/internal/sections"
)

// Email is a rendered message ready for delivery.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// EmailRenderer renders subjects and HTML bodies with Liquid templates.
type EmailRenderer struct {
	engine  *liquid.Engine
	subject *liquid.Template
	body    *liquid.Template
}

// NewEmailRenderer compiles the subject template and the built-in body.
func NewEmailRenderer(subjectTemplate string) (*EmailRenderer, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("metric", func(v float64, name string) string {
		return FormatMetric(name, v)
	})
	engine.RegisterFilter("signed", func(v float64) string {
		return pct(v)
	})

	subject, err := engine.ParseString(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	body, err := engine.ParseString(digestHTML)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &EmailRenderer{engine: engine, subject: subject, body: body}, nil
}

// Render builds the email for one report.
func (e *EmailRenderer) Render(r *Report) (*Email, error) {
	return e.render(r.Property.Label(), r.Window, []*Report{r})
}

// Digest builds one email covering several reports, as sent by the weekly run.
func (e *EmailRenderer) Digest(reports []*Report) (*Email, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("digest: no reports")
	}
	if len(reports) == 1 {
		return e.Render(reports[0])
	}
	names := make([]string, len(reports))
	for i, r := range reports {
		names[i] = r.Property.Name
	}
	return e.render(fmt.Sprintf("weekly digest (%s)", strings.Join(names, ", ")), reports[0].Window, reports)
}

func (e *EmailRenderer) render(title string, w sections.Window, reports []*Report) (*Email, error) {
	bindings := map[string]any{
		"property":   title,
		"start_date": w.Start.Format("2006-01-02"),
		"end_date":   w.End.Format("2006-01-02"),
		"reports":    reportBindings(reports),
	}
	subject, err := e.subject.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	html, err := e.body.RenderString(bindings)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}

	var text strings.Builder
	for i, r := range reports {
		if i > 0 {
			text.WriteString("\n\n")
		}
		if err := RenderText(&text, r); err != nil {
			return nil, err
		}
	}
	return &Email{Subject: strings.TrimSpace(subject), HTML: html, Text: text.String()}, nil
}

// reportBindings flattens reports into plain maps for the template.
func reportBindings(reports []*Report) []map[string]any {
	out := make([]map[string]any, 0, len(reports))
	for _, r := range reports {
		scores := make([]map[string]any, 0, len(r.Health.Scores))
		for _, s := range r.Health.Scores {
			scores = append(scores, map[string]any{
				"label": s.Label, "value": s.Value, "grade": s.Grade, "detail": s.Detail,
			})
		}
		recs := make([]map[string]any, 0, len(r.Recommendations))
		for _, rec := range r.Recommendations {
			recs = append(recs, map[string]any{"severity": string(rec.Severity), "message": rec.Message})
		}
		changes := make([]map[string]any, 0, len(r.Comparison))
		for _, c := range r.Comparison {
			changes = append(changes, map[string]any{
				"metric": c.Metric, "current": c.Current, "previous": c.Previous, "pct": c.PctChange,
			})
		}
		b := map[string]any{
			"property":        r.Property.Label(),
			"period":          r.Window.String(),
			"run_id":          r.RunID,
			"scores":          scores,
			"recommendations": recs,
			"comparison":      changes,
			"compared_to":     r.ComparedTo,
			"unavailable":     r.Unavailable(),
		}
		if r.Health.Overall != nil {
			b["overall"] = *r.Health.Overall
			b["grade"] = r.Health.Grade
		}
		out = append(out, b)
	}
	return out
}

const digestHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
{% for r in reports %}
<h2>{{ r.property | escape }}</h2>
<p>{{ r.period }}{% if r.overall %} &middot; overall health <strong>{{ r.overall }} ({{ r.grade }})</strong>{% endif %}</p>
{% if r.scores.size > 0 %}
<table cellpadding="4" style="border-collapse: collapse;">
<tr><th align="left">Score</th><th>Value</th><th>Grade</th><th align="left">Detail</th></tr>
{% for s in r.scores %}<tr><td>{{ s.label }}</td><td align="center">{{ s.value }}</td><td align="center">{{ s.grade }}</td><td>{{ s.detail | escape }}</td></tr>
{% endfor %}</table>
{% endif %}
{% if r.recommendations.size > 0 %}
<h3>Recommendations</h3>
<ul>
{% for rec in r.recommendations %}<li><strong>{{ rec.severity | upcase }}</strong> {{ rec.message | escape }}</li>
{% endfor %}</ul>
{% endif %}
{% if r.comparison.size > 0 %}
<h3>Compared with {{ r.compared_to }}</h3>
<table cellpadding="4">
{% for c in r.comparison %}<tr><td>{{ c.metric }}</td><td>{{ c.current | metric: c.metric }}</td><td>{{ c.previous | metric: c.metric }}</td><td>{{ c.pct | signed }}</td></tr>
{% endfor %}</table>
{% endif %}
{% if r.unavailable.size > 0 %}
<p style="color: #888;">No data for: {{ r.unavailable | join: ", " }}</p>
{% endif %}
<p style="color: #aaa; font-size: 11px;">Run {{ r.run_id }}</p>
{% endfor %}
</body>
</html>
`
