package domain

// Score names.
const (
	ScoreEngagement       = "engagement"
	ScoreTrafficDiversity = "traffic_diversity"
	ScoreRetention        = "retention"
	ScoreMobileReady      = "mobile_ready"
	ScoreContent          = "content"
	ScoreGrowth           = "growth"
	ScoreGeoDiversity     = "geo_diversity"
)

// HealthScore is one normalized 0-100 score with its grade.
type HealthScore struct {
	Name   string `json:"name" yaml:"name"`
	Label  string `json:"label" yaml:"label"`
	Value  int    `json:"value" yaml:"value"`
	Grade  string `json:"grade" yaml:"grade"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Grade bands, lower bound inclusive.
var gradeBands = []struct {
	min   int
	grade string
}{
	{80, "A"},
	{60, "B"},
	{40, "C"},
	{20, "D"},
}

// GradeFor maps a 0-100 value to A/B/C/D/F.
func GradeFor(v int) string {
	for _, b := range gradeBands {
		if v >= b.min {
			return b.grade
		}
	}
	return "F"
}
