package domain

// Severity orders recommendations; lower rank sorts first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityPositive Severity = "positive"
)

// Rank returns 0 for critical, 1 for warning, 2 for positive.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityPositive:
		return 2
	}
	return 3
}

// Recommendation is one rule outcome. Source names the section or score
// that triggered it; Magnitude sizes the anomaly for ordering.
type Recommendation struct {
	Rule      string   `json:"rule" yaml:"rule"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Message   string   `json:"message" yaml:"message"`
	Source    string   `json:"source" yaml:"source"`
	Magnitude float64  `json:"magnitude" yaml:"magnitude"`
}
