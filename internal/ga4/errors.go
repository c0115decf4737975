package ga4

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

// ErrEmptyResult is returned when a query succeeds with no rows.
var ErrEmptyResult = fmt.Errorf("%w: empty result", domain.ErrDataUnavailable)

// APIError is a non-200 response. It unwraps to the matching error kinds.
type APIError struct {
	StatusCode int
	Status     string // API status, e.g. PERMISSION_DENIED
	Message    string
	kinds      []error
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("analytics API error (status %d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("analytics API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error { return e.kinds }

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		e.Message = eb.Error.Message
		e.Status = eb.Error.Status
	} else {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 300 {
			e.Message = e.Message[:300]
		}
	}
	e.kinds = classifyStatus(statusCode, e.Status, e.Message)
	return e
}

func classifyStatus(code int, status, message string) []error {
	switch {
	case code == http.StatusUnauthorized, status == "UNAUTHENTICATED":
		return []error{domain.ErrAuthentication}
	case code == http.StatusForbidden:
		return []error{domain.ErrAuthentication}
	case code == http.StatusNotFound:
		return []error{domain.ErrInvalidProperty}
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "property"):
		return []error{domain.ErrInvalidProperty}
	case code == http.StatusTooManyRequests, status == "RESOURCE_EXHAUSTED":
		return []error{domain.ErrDataUnavailable, domain.ErrRateLimited}
	}
	return []error{domain.ErrDataUnavailable}
}

// classifyTransport maps an error from the HTTP layer to an error kind.
// Token refresh failures surface here because the OAuth transport runs
// inside the client.
func classifyTransport(err error) error {
	if errors.Is(err, domain.ErrAuthentication) {
		return err
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
}
