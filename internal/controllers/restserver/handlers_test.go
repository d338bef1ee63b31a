package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/internal/timeseries"
	"github.com/chrissnell/hydrograph/pkg/config"
	"github.com/chrissnell/hydrograph/pkg/responseformat"
)

const (
	testSite  = "05587450"
	discharge = "00060"
	gage      = "00065"
)

var (
	base = time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	hour = time.Hour.Milliseconds()
)

func testConfig() *config.ConfigData {
	return &config.ConfigData{
		Sites: []config.SiteData{{
			ID:       testSite,
			Name:     "Mississippi River at Grafton, IL",
			TimeZone: "America/Chicago",
			Parameters: []config.ParameterData{
				{Code: discharge, Name: "Discharge", Unit: "ft3/s"},
				{Code: gage, Name: "Gage height", Unit: "ft"},
			},
		}},
		Chart: config.ChartData{
			MaskQualifiers: map[string]string{"SNW": "Snow affected"},
		},
	}
}

// hourly readings with an ice-affected stretch at hours 40-49
func testSeries() []timeseries.TimePoint {
	points := make([]timeseries.TimePoint, 96)
	for i := range points {
		q := []string{"A"}
		if i >= 40 && i < 50 {
			q = []string{"A", "ICE"}
		}
		points[i] = timeseries.TimePoint{Time: base + int64(i)*hour, Value: timeseries.Float(100 + float64(i)), Qualifiers: q}
	}
	return points
}

func newTestController(t *testing.T, source storage.SeriesSource) *Controller {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl, err := NewController(ctx, &sync.WaitGroup{}, testConfig(), config.RESTServerData{}, source, nil, log.Named("restserver"))
	require.NoError(t, err)
	ctrl.now = func() time.Time { return time.UnixMilli(base + 96*hour) }
	return ctrl
}

func newTestStore(t *testing.T) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SaveSeries(context.Background(), testSite, discharge, testSeries()))
	return store
}

func get(t *testing.T, ctrl *Controller, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[responseformat.ErrorBody](t, rec)
	assert.Equal(t, code, body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestGetTicks(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	start := time.Date(2018, 3, 8, 14, 7, 30, 0, chicago)
	end := start.Add(7 * 24 * time.Hour)

	rec := get(t, ctrl, fmt.Sprintf("/ticks?start=%d&end=%d&tz=America/Chicago", start.UnixMilli(), end.UnixMilli()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(log.RequestIDHeader))

	resp := decode[TicksResponse](t, rec)
	assert.Equal(t, "America/Chicago", resp.TimeZone)
	require.Len(t, resp.Ticks, 7)
	assert.Equal(t, []string{"Mar 09", "Mar 10", "Mar 11", "Mar 12", "Mar 13", "Mar 14", "Mar 15"}, resp.Labels)
}

func TestGetTicksErrors(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"missing start", "/ticks?end=1000", "missing_parameter"},
		{"bad end", "/ticks?start=0&end=soon", "invalid_parameter"},
		{"empty window", "/ticks?start=1000&end=1000", "invalid_range"},
		{"reversed window", "/ticks?start=2000&end=1000", "invalid_range"},
		{"window too short", "/ticks?start=0&end=60000", "invalid_range"},
		{"unknown zone", "/ticks?start=0&end=86400000&tz=Mars/Olympus_Mons", "unknown_zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, get(t, ctrl, tt.target), http.StatusBadRequest, tt.code)
		})
	}
}

func TestGetSites(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	rec := get(t, ctrl, "/sites")
	require.Equal(t, http.StatusOK, rec.Code)

	sites := decode[[]SiteResponse](t, rec)
	require.Len(t, sites, 1)
	assert.Equal(t, testSite, sites[0].ID)
	assert.Equal(t, "America/Chicago", sites[0].TimeZone)
	assert.Len(t, sites[0].Parameters, 2)
	assert.Empty(t, sites[0].Coverage)
}

func TestGetSite(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	rec := get(t, ctrl, "/sites/"+testSite)
	require.Equal(t, http.StatusOK, rec.Code)

	site := decode[SiteResponse](t, rec)
	require.Len(t, site.Coverage, 1)
	assert.Equal(t, discharge, site.Coverage[0].ParameterCode)
	assert.Equal(t, int64(96), site.Coverage[0].Count)

	assertError(t, get(t, ctrl, "/sites/nowhere"), http.StatusNotFound, "unknown_site")
}

func TestGetSeries(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s?start=%d&end=%d", testSite, discharge, base, base+95*hour))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SeriesResponse](t, rec)
	assert.Equal(t, testSite, resp.Site)
	assert.Equal(t, "ft3/s", resp.Unit)
	assert.Equal(t, "America/Chicago", resp.TimeZone)

	require.Len(t, resp.Segments, 3)
	assert.False(t, resp.Segments[0].IsMasked)
	assert.Equal(t, "Approved", resp.Segments[0].Label)
	assert.True(t, resp.Segments[1].IsMasked)
	assert.Equal(t, "Ice affected", resp.Segments[1].Label)
	assert.Equal(t, "mask-0", resp.Segments[1].StyleClass)
	assert.False(t, resp.Segments[2].IsMasked)

	assert.GreaterOrEqual(t, len(resp.Ticks.Ticks), 4)
	assert.LessOrEqual(t, len(resp.Ticks.Ticks), 7)
	assert.Len(t, resp.Ticks.Labels, len(resp.Ticks.Ticks))

	require.NotNil(t, resp.Domain)
	assert.Less(t, resp.Domain.Min, 100.0)
	assert.Greater(t, resp.Domain.Max, 195.0)
	assert.Equal(t, 96, resp.Summary.Count)
}

func TestGetSeriesPeriod(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))
	now := base + 96*hour

	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s?period=2d", testSite, discharge))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SeriesResponse](t, rec)
	assert.Equal(t, now, resp.End)
	assert.Equal(t, now-48*hour, resp.Start)
	assert.Equal(t, 48, resp.Summary.Count)

	// Default period comes from config, 7 days
	resp = decode[SeriesResponse](t, get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s", testSite, discharge)))
	assert.Equal(t, now-7*24*hour, resp.Start)

	// end anchors the period
	resp = decode[SeriesResponse](t, get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s?period=1d&end=%d", testSite, discharge, base+24*hour)))
	assert.Equal(t, base, resp.Start)
	assert.Equal(t, 25, resp.Summary.Count)
}

func TestGetSeriesErrors(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))
	series := fmt.Sprintf("/sites/%s/series/", testSite)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown site", "/sites/nowhere/series/00060", http.StatusNotFound, "unknown_site"},
		{"unknown parameter", series + "99999", http.StatusNotFound, "unknown_parameter"},
		{"no data", series + gage, http.StatusNotFound, "series_not_found"},
		{"bad period", series + discharge + "?period=fortnight", http.StatusBadRequest, "invalid_period"},
		{"negative period", series + discharge + "?period=-2d", http.StatusBadRequest, "invalid_period"},
		{"start without end", series + discharge + "?start=0", http.StatusBadRequest, "missing_parameter"},
		{"start with period", series + discharge + "?start=0&end=1&period=1d", http.StatusBadRequest, "invalid_window"},
		{"reversed", fmt.Sprintf("%s%s?start=%d&end=%d", series, discharge, base+hour, base), http.StatusBadRequest, "invalid_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, get(t, ctrl, tt.target), tt.status, tt.code)
		})
	}
}

func TestGetSeriesEmptyWindow(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	far := base + 1000*hour
	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s?start=%d&end=%d", testSite, discharge, far, far+24*hour))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[SeriesResponse](t, rec)
	assert.Empty(t, resp.Segments)
	assert.Nil(t, resp.Domain)
	assert.NotEmpty(t, resp.Ticks.Ticks)
}

func TestGetNearest(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))
	window := fmt.Sprintf("start=%d&end=%d", base, base+95*hour)

	// 20 minutes past hour 42 is nearest hour 42
	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s/nearest?t=%d&%s", testSite, discharge, base+42*hour+20*60*1000, window))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[NearestResponse](t, rec)
	assert.Equal(t, base+42*hour, resp.Time)
	require.NotNil(t, resp.Value)
	assert.Equal(t, 142.0, *resp.Value)
	assert.True(t, resp.IsMasked)
	assert.Equal(t, "Ice affected", resp.Status)
	assert.Equal(t, []string{"A", "ICE"}, resp.Qualifiers)
	assert.Equal(t, "Mar 02, 2018 12:00 PM CST", resp.Label)

	// Before the first reading clamps to it
	resp = decode[NearestResponse](t, get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s/nearest?t=0&%s", testSite, discharge, window)))
	assert.Equal(t, base, resp.Time)
	assert.Equal(t, "Approved", resp.Status)
}

func TestGetNearestErrors(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))
	nearest := fmt.Sprintf("/sites/%s/series/%s/nearest", testSite, discharge)

	assertError(t, get(t, ctrl, nearest), http.StatusBadRequest, "missing_parameter")

	far := base + 1000*hour
	rec := get(t, ctrl, fmt.Sprintf("%s?t=%d&start=%d&end=%d", nearest, far, far, far+hour))
	assertError(t, rec, http.StatusNotFound, "no_points")
}

type failingSource struct{}

func (failingSource) FetchSeries(context.Context, string, string, int64, int64) ([]timeseries.TimePoint, error) {
	return nil, errors.New("connection refused: password=hunter2")
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ctrl := newTestController(t, failingSource{})

	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s", testSite, discharge))
	assertError(t, rec, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, rec.Body.String(), "hunter2")

	// No coverage without a store that reports it
	site := decode[SiteResponse](t, get(t, ctrl, "/sites/"+testSite))
	assert.Empty(t, site.Coverage)
}

func TestMsgPackResponse(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	rec := get(t, ctrl, fmt.Sprintf("/sites/%s/series/%s?period=1d&format=msgpack", testSite, discharge))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, responseformat.ContentTypeMsgPack, rec.Header().Get("Content-Type"))

	var resp map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testSite, resp["site"])
	assert.Contains(t, resp, "segments")
}

func TestGetQualifiers(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	qualifiers := decode[[]QualifierResponse](t, get(t, ctrl, "/qualifiers"))
	reasons := map[string]string{}
	for _, q := range qualifiers {
		reasons[q.Code] = q.Reason
	}
	assert.Equal(t, "Ice affected", reasons["ICE"])
	assert.Equal(t, "Snow affected", reasons["SNW"])
}

func TestGetHealth(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	rec := get(t, ctrl, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	ctrl.Health.UpdateHealth("timescaledb", &storage.HealthData{LastCheck: time.Now(), Status: storage.StatusUnhealthy})
	rec = get(t, ctrl, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, storage.StatusUnhealthy, decode[HealthResponse](t, rec).Status)
}

func TestGetRequests(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))

	get(t, ctrl, "/sites")
	get(t, ctrl, "/sites/nowhere")

	resp := decode[RequestsResponse](t, get(t, ctrl, "/requests"))
	require.Len(t, resp.Requests, 2)
	paths := []string{resp.Requests[0].Path, resp.Requests[1].Path}
	assert.ElementsMatch(t, []string{"/sites", "/sites/nowhere"}, paths)
}

func TestNotFound(t *testing.T) {
	ctrl := newTestController(t, newTestStore(t))
	assertError(t, get(t, ctrl, "/weather/latest"), http.StatusNotFound, "not_found")
}

func TestNewControllerRequiresSource(t *testing.T) {
	_, err := NewController(context.Background(), &sync.WaitGroup{}, testConfig(), config.RESTServerData{}, nil, nil, log.Named("restserver"))
	assert.Error(t, err)
}
