package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xhit/go-str2duration/v2"

	"github.com/chrissnell/hydrograph/internal/hydrograph"
	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/internal/ticks"
	"github.com/chrissnell/hydrograph/internal/timeseries"
	"github.com/chrissnell/hydrograph/pkg/config"
	"github.com/chrissnell/hydrograph/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// apiError carries the HTTP status and error code for a request problem
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func badRequest(code string, format string, args ...any) error {
	return &apiError{status: http.StatusBadRequest, code: code, message: fmt.Sprintf(format, args...)}
}

func notFound(code string, format string, args ...any) error {
	return &apiError{status: http.StatusNotFound, code: code, message: fmt.Sprintf(format, args...)}
}

// GetTicks handles requests for a bare tick plan
func (h *Handlers) GetTicks(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	start, err := requiredMillis(q, "start")
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	end, err := requiredMillis(q, "end")
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	zone := q.Get("tz")
	if zone == "" {
		zone = "UTC"
	}

	plan, err := ticks.Generate(start, end, zone)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.write(w, req, transformTicks(plan, start, end))
}

// GetSites lists the configured sites
func (h *Handlers) GetSites(w http.ResponseWriter, req *http.Request) {
	sites := make([]SiteResponse, 0, len(h.controller.Sites))
	for i := range h.controller.Sites {
		sites = append(sites, transformSite(&h.controller.Sites[i]))
	}
	h.write(w, req, sites)
}

type coverageSource interface {
	Coverage(ctx context.Context, siteID string) ([]storage.Coverage, error)
}

// GetSite describes one site and, when the store can tell, the series it holds
func (h *Handlers) GetSite(w http.ResponseWriter, req *http.Request) {
	siteID := mux.Vars(req)["site"]
	site, ok := h.controller.site(siteID)
	if !ok {
		h.writeError(w, req, notFound("unknown_site", "site %s is not configured", siteID))
		return
	}

	resp := transformSite(site)
	if src, ok := h.controller.Source.(coverageSource); ok {
		coverage, err := src.Coverage(req.Context(), site.ID)
		if err != nil {
			h.writeError(w, req, fmt.Errorf("could not get coverage for %s: %w", site.ID, err))
			return
		}
		resp.Coverage = coverage
	}

	h.write(w, req, resp)
}

// GetSeries handles requests for a chart of one site/parameter series
func (h *Handlers) GetSeries(w http.ResponseWriter, req *http.Request) {
	plan, err := h.plan(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}
	h.write(w, req, transformPlan(plan))
}

// GetNearest handles cursor lookups: the reading in the window closest to t
func (h *Handlers) GetNearest(w http.ResponseWriter, req *http.Request) {
	t, err := requiredMillis(req.URL.Query(), "t")
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	plan, err := h.plan(req)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	p, err := plan.Nearest(t)
	if err != nil {
		h.writeError(w, req, fmt.Errorf("no readings for %s/%s in window: %w", plan.Series.SiteID, plan.Series.ParameterCode, err))
		return
	}

	h.write(w, req, transformNearest(plan, p, h.controller.Builder.Classification(p)))
}

// GetQualifiers lists the qualifier codes that mask readings
func (h *Handlers) GetQualifiers(w http.ResponseWriter, req *http.Request) {
	vocab := h.controller.Builder.Vocabulary
	codes := vocab.Codes()

	resp := make([]QualifierResponse, 0, len(codes))
	for _, code := range codes {
		reason, _ := vocab.Reason(code)
		resp = append(resp, QualifierResponse{Code: code, Reason: reason})
	}
	h.write(w, req, resp)
}

// GetHealth reports storage health; 503 when any backend is unhealthy
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{
		Status:  storage.StatusHealthy,
		Storage: h.controller.Health.GetAllHealth(),
	}

	status := http.StatusOK
	for _, health := range resp.Storage {
		if health.Status != storage.StatusHealthy {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
	}

	if err := h.formatter.WriteResponse(w, req, status, resp); err != nil {
		log.Errorf("error writing health response: %v", err)
	}
}

// GetRequests lists the most recently served requests
func (h *Handlers) GetRequests(w http.ResponseWriter, req *http.Request) {
	entries := h.controller.RequestLog.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	h.write(w, req, RequestsResponse{Requests: entries})
}

// NotFound answers unknown paths with an error body
func (h *Handlers) NotFound(w http.ResponseWriter, req *http.Request) {
	h.writeError(w, req, notFound("not_found", "no such endpoint: %s", req.URL.Path))
}

// plan resolves the site, parameter and window of a series request, fetches
// the readings and builds the chart plan
func (h *Handlers) plan(req *http.Request) (*hydrograph.Plan, error) {
	vars := mux.Vars(req)

	site, ok := h.controller.site(vars["site"])
	if !ok {
		return nil, notFound("unknown_site", "site %s is not configured", vars["site"])
	}

	code := vars["parameter"]
	var unit string
	if len(site.Parameters) > 0 {
		param, ok := site.Parameter(code)
		if !ok {
			return nil, notFound("unknown_parameter", "parameter %s is not configured for site %s", code, site.ID)
		}
		unit = param.Unit
	}

	start, end, err := h.window(req.URL.Query())
	if err != nil {
		return nil, err
	}

	points, err := h.controller.Source.FetchSeries(req.Context(), site.ID, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s/%s: %w", site.ID, code, err)
	}

	series := hydrograph.Series{
		SiteID:        site.ID,
		ParameterCode: code,
		Unit:          unit,
		Points:        points,
	}
	return h.controller.Builder.Build(series, start, end, siteZone(site))
}

// window returns the requested [start, end] in epoch millis. Either start
// and end are both given, or the window is period (default from config)
// long and ends at end (default now).
func (h *Handlers) window(q url.Values) (int64, int64, error) {
	if q.Has("start") {
		if q.Has("period") {
			return 0, 0, badRequest("invalid_window", "period cannot be combined with start")
		}
		start, err := requiredMillis(q, "start")
		if err != nil {
			return 0, 0, err
		}
		end, err := requiredMillis(q, "end")
		if err != nil {
			return 0, 0, err
		}
		if end <= start {
			return 0, 0, fmt.Errorf("%w: start=%d end=%d", ticks.ErrInvalidRange, start, end)
		}
		return start, end, nil
	}

	period := h.controller.DefaultPeriod
	if p := q.Get("period"); p != "" {
		d, err := str2duration.ParseDuration(p)
		if err != nil || d <= 0 {
			return 0, 0, badRequest("invalid_period", "period %q is not a positive duration such as 7d or 12h", p)
		}
		period = d
	}

	end := h.controller.now().UnixMilli()
	if q.Has("end") {
		var err error
		if end, err = requiredMillis(q, "end"); err != nil {
			return 0, 0, err
		}
	}

	return end - period.Milliseconds(), end, nil
}

func requiredMillis(q url.Values, name string) (int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, badRequest("missing_parameter", "%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid_parameter", "%s must be epoch milliseconds, got %q", name, raw)
	}
	return v, nil
}

func siteZone(site *config.SiteData) string {
	if site.TimeZone == "" {
		return "UTC"
	}
	return site.TimeZone
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, http.StatusOK, data); err != nil {
		log.Errorf("error writing response: %v", err)
	}
}

// writeError maps err to a status and error code and writes the error body.
// Server-side failures are logged and their details withheld from the client.
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "internal server error"

	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		status, code, message = apiErr.status, apiErr.code, apiErr.message
	case errors.Is(err, ticks.ErrInvalidRange):
		status, code, message = http.StatusBadRequest, "invalid_range", err.Error()
	case errors.Is(err, ticks.ErrUnknownZone):
		status, code, message = http.StatusBadRequest, "unknown_zone", err.Error()
	case errors.Is(err, storage.ErrSeriesNotFound):
		status, code, message = http.StatusNotFound, "series_not_found", err.Error()
	case errors.Is(err, timeseries.ErrNoPoints):
		status, code, message = http.StatusNotFound, "no_points", err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorw("request failed",
			"request_id", log.RequestID(req.Context()),
			"path", req.URL.Path,
			"error", err,
		)
	}

	if werr := h.formatter.WriteError(w, req, status, code, message); werr != nil {
		log.Errorf("error writing error response: %v", werr)
	}
}
