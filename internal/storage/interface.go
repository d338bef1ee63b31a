// Package storage defines the interfaces shared by observation storage
// backends and the bookkeeping they report through.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/hydrograph/internal/timeseries"
)

// ErrSeriesNotFound is returned when a site has no observations for a parameter
var ErrSeriesNotFound = errors.New("series not found")

// SeriesSource fetches the points of one site/parameter series whose times
// fall in [start, end], in milliseconds, ordered by time
type SeriesSource interface {
	FetchSeries(ctx context.Context, siteID, parameterCode string, start, end int64) ([]timeseries.TimePoint, error)
}

// ObservationStore is a SeriesSource that can also accept new observations
// and describe what it holds
type ObservationStore interface {
	SeriesSource
	SaveSeries(ctx context.Context, siteID, parameterCode string, points []timeseries.TimePoint) error
	Coverage(ctx context.Context, siteID string) ([]Coverage, error)
}

// Coverage summarizes the stored observations of one series
type Coverage struct {
	SiteID        string    `json:"site_id" gorm:"column:site_id"`
	ParameterCode string    `json:"parameter_code" gorm:"column:parameter_code"`
	Count         int64     `json:"count" gorm:"column:count"`
	First         time.Time `json:"first" gorm:"column:first"`
	Last          time.Time `json:"last" gorm:"column:last"`
}
