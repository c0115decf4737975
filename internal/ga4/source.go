package ga4

import (
	"context"
	"fmt"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

// Source answers logical queries of any metric count by splitting them
// into sequential sub-requests and merging the rows.
type Source struct {
	runner Runner
}

// NewSource wraps a Runner.
func NewSource(r Runner) *Source {
	return &Source{runner: r}
}

// Fetch runs q for a property. An empty result is ErrEmptyResult; every
// failure wraps one of the domain error kinds.
func (s *Source) Fetch(ctx context.Context, propertyID string, q Query) (*Result, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	batches := PlanBatches(q.Metrics, q.OrderBy, MaxMetrics)
	dims := q.ResultDimensions()
	parts := make([][]domain.MetricRow, 0, len(batches))
	merged := &Result{Dimensions: dims, Metrics: dedupe(q.Metrics)}

	for i, batch := range batches {
		sub := q
		sub.Metrics = batch
		res, err := s.runner.RunReport(ctx, propertyID, sub)
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		parts = append(parts, res.Rows)
		if res.Truncated {
			merged.Truncated = true
		}
		if res.RowCount > merged.RowCount {
			merged.RowCount = res.RowCount
		}
	}
	if len(batches) > 1 {
		logger.Debug("merged split query", "property", propertyID, "batches", len(batches), "metrics", len(merged.Metrics))
	}

	merged.Rows = MergeRows(dims, merged.Metrics, parts...)
	if len(merged.Rows) == 0 {
		return nil, ErrEmptyResult
	}
	return merged, nil
}

// Realtime runs a realtime query; it must fit in one request. No rows
// means nobody is active, so an empty result is not an error here.
func (s *Source) Realtime(ctx context.Context, propertyID string, q Query) (*Result, error) {
	return s.runner.RunRealtimeReport(ctx, propertyID, q)
}
