package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ga-deep-dive/internal/collector"
	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/pkg/httputil"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
	"github.com/ignite/ga-deep-dive/internal/report"
)

// maxDays bounds the ?days= parameter; GA4 keeps 14 months of event data
// on standard properties.
const maxDays = 425

// Reporter runs reports and reads stored snapshots.
type Reporter interface {
	Run(ctx context.Context, nameOrID string, opts collector.RunOptions) (*report.Report, error)
	Latest(ctx context.Context, nameOrID string) (*domain.Snapshot, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg      *config.Config
	reporter Reporter
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, reporter Reporter) *Handlers {
	return &Handlers{cfg: cfg, reporter: reporter}
}

// ListProperties returns the configured properties.
//
//	GET /api/properties
func (h *Handlers) ListProperties(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"properties": h.cfg.PropertyList()})
}

// GetReport runs a report on demand. The run is neither compared nor
// saved unless ?compare=true.
//
//	GET /api/properties/{property}/report?days=30&format=json
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := collector.RunOptions{}
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 || days > maxDays {
			httputil.BadRequest(w, "days must be between 1 and "+strconv.Itoa(maxDays))
			return
		}
		opts.Days = days
	}
	opts.Compare = q.Get("compare") == "true"

	format := q.Get("format")
	if format == "" {
		format = report.FormatJSON
	}
	switch format {
	case report.FormatJSON, report.FormatText, report.FormatYAML:
	default:
		httputil.BadRequest(w, "unsupported format "+strconv.Quote(format))
		return
	}

	rep, err := h.reporter.Run(r.Context(), chi.URLParam(r, "property"), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case report.FormatJSON:
		httputil.OK(w, rep)
	default:
		var buf bytes.Buffer
		if err := report.Write(&buf, rep, format); err != nil {
			httputil.InternalError(w, err)
			return
		}
		if format == report.FormatYAML {
			w.Header().Set("Content-Type", "application/yaml")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(buf.Bytes())
			return
		}
		httputil.Text(w, http.StatusOK, buf.String())
	}
}

// GetLatestSnapshot returns the newest stored snapshot.
//
//	GET /api/properties/{property}/snapshots/latest
func (h *Handlers) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reporter.Latest(r.Context(), chi.URLParam(r, "property"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, snap)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidProperty):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrAuthentication):
		logger.Error("analytics authentication failed", "err", err)
		httputil.Error(w, http.StatusBadGateway, "upstream_auth", "analytics authentication failed; run ga-report auth login")
	case errors.Is(err, context.DeadlineExceeded):
		httputil.Error(w, http.StatusGatewayTimeout, "timeout", "report timed out")
	default:
		httputil.InternalError(w, err)
	}
}
