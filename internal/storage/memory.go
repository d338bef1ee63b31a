package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/chrissnell/hydrograph/internal/timeseries"
)

type seriesKey struct {
	site      string
	parameter string
}

// MemoryStore is an ObservationStore held entirely in memory
type MemoryStore struct {
	mu     sync.RWMutex
	series map[seriesKey][]timeseries.TimePoint
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[seriesKey][]timeseries.TimePoint)}
}

// SaveSeries merges points into the stored series. A point at an existing
// time replaces the stored one.
func (m *MemoryStore) SaveSeries(_ context.Context, siteID, parameterCode string, points []timeseries.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := seriesKey{siteID, parameterCode}
	byTime := lo.SliceToMap(m.series[key], func(p timeseries.TimePoint) (int64, timeseries.TimePoint) {
		return p.Time, p
	})
	for _, p := range points {
		byTime[p.Time] = p
	}

	merged := lo.Values(byTime)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time < merged[j].Time })
	m.series[key] = merged
	return nil
}

// FetchSeries returns a copy of the stored points in [start, end]
func (m *MemoryStore) FetchSeries(_ context.Context, siteID, parameterCode string, start, end int64) ([]timeseries.TimePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	points, ok := m.series[seriesKey{siteID, parameterCode}]
	if !ok {
		return nil, ErrSeriesNotFound
	}
	return slices.Clone(timeseries.Window(points, start, end)), nil
}

// Coverage describes each stored series of siteID
func (m *MemoryStore) Coverage(_ context.Context, siteID string) ([]Coverage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Coverage
	for key, points := range m.series {
		if key.site != siteID || len(points) == 0 {
			continue
		}
		out = append(out, Coverage{
			SiteID:        key.site,
			ParameterCode: key.parameter,
			Count:         int64(len(points)),
			First:         time.UnixMilli(points[0].Time).UTC(),
			Last:          time.UnixMilli(points[len(points)-1].Time).UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParameterCode < out[j].ParameterCode })
	return out, nil
}

// CheckHealth always reports healthy
func (m *MemoryStore) CheckHealth(context.Context) *HealthData {
	return &HealthData{LastCheck: time.Now(), Status: StatusHealthy, Message: "in-memory store"}
}
