// Package ga4 is the data source for reports: a client for the Analytics
// Data API v1beta, request splitting for the per-request metric cap, and
// an optional Redis response cache.
package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/pkg/httpretry"
	"github.com/ignite/ga-deep-dive/internal/telemetry"
)

// Runner issues single requests that already respect the API caps.
type Runner interface {
	RunReport(ctx context.Context, propertyID string, q Query) (*Result, error)
	RunRealtimeReport(ctx context.Context, propertyID string, q Query) (*Result, error)
}

// Client is an Analytics Data API client. Authorization is carried by the
// HTTP client's transport.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
	metrics    *telemetry.Metrics
}

// NewClient creates a client against baseURL (scheme and host only).
func NewClient(baseURL string, httpClient httpretry.HTTPDoer, metrics *telemetry.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    metrics,
	}
}

type nameRef struct {
	Name string `json:"name"`
}

type orderBy struct {
	Metric struct {
		MetricName string `json:"metricName"`
	} `json:"metric"`
	Desc bool `json:"desc"`
}

type reportRequest struct {
	DateRanges []DateRange `json:"dateRanges,omitempty"`
	Dimensions []nameRef   `json:"dimensions,omitempty"`
	Metrics    []nameRef   `json:"metrics"`
	Limit      int         `json:"limit,omitempty"`
	OrderBys   []orderBy   `json:"orderBys,omitempty"`
}

type reportResponse struct {
	DimensionHeaders []nameRef `json:"dimensionHeaders"`
	MetricHeaders    []nameRef `json:"metricHeaders"`
	Rows             []struct {
		DimensionValues []struct {
			Value string `json:"value"`
		} `json:"dimensionValues"`
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
	RowCount int `json:"rowCount"`
}

// RunReport calls properties/{id}:runReport.
func (c *Client) RunReport(ctx context.Context, propertyID string, q Query) (*Result, error) {
	if len(q.Metrics) > MaxMetrics {
		return nil, fmt.Errorf("%w: %d metrics exceeds the limit of %d", domain.ErrDataUnavailable, len(q.Metrics), MaxMetrics)
	}
	if len(q.Ranges) == 0 {
		return nil, fmt.Errorf("%w: runReport needs a date range", domain.ErrDataUnavailable)
	}
	return c.run(ctx, "runReport", propertyID, q, q.Ranges)
}

// RunRealtimeReport calls properties/{id}:runRealtimeReport; q.Ranges is ignored.
func (c *Client) RunRealtimeReport(ctx context.Context, propertyID string, q Query) (*Result, error) {
	if len(q.Metrics) > MaxMetrics {
		return nil, fmt.Errorf("%w: %d metrics exceeds the limit of %d", domain.ErrDataUnavailable, len(q.Metrics), MaxMetrics)
	}
	return c.run(ctx, "runRealtimeReport", propertyID, q, nil)
}

func (c *Client) run(ctx context.Context, method, propertyID string, q Query, ranges []DateRange) (*Result, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	req := reportRequest{
		DateRanges: ranges,
		Limit:      q.RowLimit(),
	}
	for _, d := range q.Dimensions {
		req.Dimensions = append(req.Dimensions, nameRef{Name: d})
	}
	for _, m := range q.Metrics {
		req.Metrics = append(req.Metrics, nameRef{Name: m})
	}
	if q.OrderBy != "" {
		var ob orderBy
		ob.Metric.MetricName = q.OrderBy
		ob.Desc = !q.Ascending
		req.OrderBys = []orderBy{ob}
	}

	start := time.Now()
	body, err := c.doRequest(ctx, fmt.Sprintf("/v1beta/properties/%s:%s", propertyID, method), req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveAPI(method, outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	var resp reportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response: %w", domain.ErrDataUnavailable, method, err)
	}
	return resp.toResult(), nil
}

func (c *Client) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrDataUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func (r *reportResponse) toResult() *Result {
	res := &Result{RowCount: r.RowCount}
	for _, h := range r.DimensionHeaders {
		res.Dimensions = append(res.Dimensions, h.Name)
	}
	for _, h := range r.MetricHeaders {
		res.Metrics = append(res.Metrics, h.Name)
	}

	res.Rows = make([]domain.MetricRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		mr := domain.MetricRow{
			Dimensions: make(map[string]string, len(res.Dimensions)),
			Metrics:    make(map[string]float64, len(res.Metrics)),
		}
		for i, dv := range row.DimensionValues {
			if i < len(res.Dimensions) {
				mr.Dimensions[res.Dimensions[i]] = dv.Value
			}
		}
		for i, mv := range row.MetricValues {
			if i < len(res.Metrics) {
				v, err := strconv.ParseFloat(mv.Value, 64)
				if err != nil {
					v = 0
				}
				mr.Metrics[res.Metrics[i]] = v
			}
		}
		res.Rows = append(res.Rows, mr)
	}
	if res.RowCount < len(res.Rows) {
		res.RowCount = len(res.Rows)
	}
	res.Truncated = res.RowCount > len(res.Rows)
	return res
}
