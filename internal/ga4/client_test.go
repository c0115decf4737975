package ga4

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/pkg/httpretry"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, &http.Client{Timeout: 5 * time.Second}, nil)
}

const countryResponse = `{
  "dimensionHeaders": [{"name": "country"}],
  "metricHeaders": [{"name": "sessions", "type": "TYPE_INTEGER"}, {"name": "engagementRate", "type": "TYPE_FLOAT"}],
  "rows": [
    {"dimensionValues": [{"value": "Brazil"}], "metricValues": [{"value": "120"}, {"value": "0.61"}]},
    {"dimensionValues": [{"value": "United States"}], "metricValues": [{"value": "80"}, {"value": "0.42"}]}
  ],
  "rowCount": 37
}`

func TestRunReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/properties/523300499:runReport", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{map[string]any{"name": "country"}}, body["dimensions"])
		assert.Equal(t, float64(2), body["limit"])
		assert.Equal(t, []any{map[string]any{"startDate": "30daysAgo", "endDate": "yesterday", "name": "current"}}, body["dateRanges"])
		orderBys := body["orderBys"].([]any)
		require.Len(t, orderBys, 1)
		assert.Equal(t, true, orderBys[0].(map[string]any)["desc"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, countryResponse)
	}))
	defer server.Close()

	res, err := newTestClient(server).RunReport(context.Background(), "523300499", Query{
		Dimensions: []string{"country"},
		Metrics:    []string{"sessions", "engagementRate"},
		Ranges:     []DateRange{{Name: "current", Start: "30daysAgo", End: "yesterday"}},
		Limit:      2,
		OrderBy:    "sessions",
	})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Brazil", res.Rows[0].Dim("country"))
	assert.Equal(t, 120.0, res.Rows[0].Metric("sessions"))
	assert.InDelta(t, 0.42, res.Rows[1].Metric("engagementRate"), 1e-9)
	assert.Equal(t, 37, res.RowCount)
	assert.True(t, res.Truncated)
}

func TestRunReport_RejectsOversizedRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()
	client := newTestClient(server)
	ranges := []DateRange{{Start: "7daysAgo", End: "today"}}

	_, err := client.RunReport(context.Background(), "1", Query{Metrics: metricNames(11), Ranges: ranges})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = client.RunReport(context.Background(), "1", Query{Dimensions: metricNames(10), Metrics: []string{"sessions"}, Ranges: ranges})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	_, err = client.RunReport(context.Background(), "1", Query{Metrics: []string{"sessions"}})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRunReport_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   []error
		not    []error
	}{
		{"unauthenticated", 401, `{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`,
			[]error{domain.ErrAuthentication}, []error{domain.ErrDataUnavailable}},
		{"permission denied", 403, `{"error":{"code":403,"message":"User does not have sufficient permissions for this property.","status":"PERMISSION_DENIED"}}`,
			[]error{domain.ErrAuthentication}, nil},
		{"not found", 404, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`,
			[]error{domain.ErrInvalidProperty}, nil},
		{"bad property", 400, `{"error":{"code":400,"message":"Invalid property ID: properties/abc","status":"INVALID_ARGUMENT"}}`,
			[]error{domain.ErrInvalidProperty}, nil},
		{"bad metric", 400, `{"error":{"code":400,"message":"Field foo is not a valid metric.","status":"INVALID_ARGUMENT"}}`,
			[]error{domain.ErrDataUnavailable}, []error{domain.ErrInvalidProperty}},
		{"rate limited", 429, `{"error":{"code":429,"message":"Exhausted concurrent requests quota.","status":"RESOURCE_EXHAUSTED"}}`,
			[]error{domain.ErrDataUnavailable, domain.ErrRateLimited}, []error{domain.ErrAuthentication}},
		{"server error", 500, `oops`,
			[]error{domain.ErrDataUnavailable}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			_, err := newTestClient(server).RunReport(context.Background(), "1", Query{
				Metrics: []string{"sessions"},
				Ranges:  []DateRange{{Start: "7daysAgo", End: "today"}},
			})
			require.Error(t, err)
			for _, kind := range tc.want {
				assert.ErrorIs(t, err, kind)
			}
			for _, kind := range tc.not {
				assert.NotErrorIs(t, err, kind)
			}

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
		})
	}
}

func TestRunReport_RateLimitRetriedThenExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	doer := httpretry.NewRetryClient(server.Client(), 2, httpretry.WithBaseDelay(time.Millisecond))
	client := NewClient(server.URL, doer, nil)

	_, err := client.RunReport(context.Background(), "1", Query{
		Metrics: []string{"sessions"},
		Ranges:  []DateRange{{Start: "7daysAgo", End: "today"}},
	})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

type failingTransport struct{ err error }

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) { return nil, f.err }

func TestRunReport_TokenRefreshFailure(t *testing.T) {
	client := NewClient("http://analytics.invalid", &http.Client{
		Transport: failingTransport{err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}},
	}, nil)

	_, err := client.RunReport(context.Background(), "1", Query{
		Metrics: []string{"sessions"},
		Ranges:  []DateRange{{Start: "7daysAgo", End: "today"}},
	})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestRunReport_NetworkFailure(t *testing.T) {
	client := NewClient("http://analytics.invalid", &http.Client{
		Transport: failingTransport{err: errors.New("connection reset")},
	}, nil)

	_, err := client.RunReport(context.Background(), "1", Query{
		Metrics: []string{"sessions"},
		Ranges:  []DateRange{{Start: "7daysAgo", End: "today"}},
	})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.False(t, domain.IsFatal(err))
}

func TestRunRealtimeReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/properties/42:runRealtimeReport", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "dateRanges")

		fmt.Fprint(w, `{"metricHeaders":[{"name":"activeUsers"}],"rows":[{"metricValues":[{"value":"7"}]}],"rowCount":1}`)
	}))
	defer server.Close()

	res, err := newTestClient(server).RunRealtimeReport(context.Background(), "42", Query{Metrics: []string{"activeUsers"}})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 7.0, res.Rows[0].Metric("activeUsers"))
	assert.False(t, res.Truncated)
}
