package domain

import "errors"

// Error kinds. Callers test with errors.Is; concrete errors wrap one or
// more of these.
var (
	// ErrAuthentication aborts the run: no report can be produced.
	ErrAuthentication = errors.New("authentication failed")
	// ErrInvalidProperty aborts the run: the property name or ID is unknown.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrDataUnavailable is per section; the section is marked absent.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrRateLimited is reported alongside ErrDataUnavailable once retries are exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound is returned by snapshot stores when nothing matches.
	ErrNotFound = errors.New("not found")
)

// IsFatal reports whether err must stop the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrInvalidProperty)
}
