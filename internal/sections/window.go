package sections

import (
	"time"

	"github.com/ignite/ga-deep-dive/internal/ga4"
)

const dateLayout = "2006-01-02"

// Window is an inclusive run of whole days.
type Window struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// LastCompleteDay is the calendar day before now, in now's location.
func LastCompleteDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
}

// Trailing returns the days-long window ending on the last complete day.
func Trailing(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	end := LastCompleteDay(now)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Days is the number of days covered.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24+0.5) + 1
}

// Previous is the equal-length window immediately before w.
func (w Window) Previous() Window {
	n := w.Days()
	end := w.Start.AddDate(0, 0, -1)
	return Window{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Range converts w to a named API date range.
func (w Window) Range(name string) ga4.DateRange {
	return ga4.DateRange{Name: name, Start: w.Start.Format(dateLayout), End: w.End.Format(dateLayout)}
}

func (w Window) String() string {
	return w.Start.Format(dateLayout) + " to " + w.End.Format(dateLayout)
}
