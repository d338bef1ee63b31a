// Package hydrograph assembles everything the dashboard needs to draw one
// chart: segments, axis ticks and the value domain for a time window.
package hydrograph

import (
	"fmt"
	"time"

	"github.com/chrissnell/hydrograph/internal/qualifier"
	"github.com/chrissnell/hydrograph/internal/ticks"
	"github.com/chrissnell/hydrograph/internal/timeseries"
)

// DefaultDomainPadding is the fraction of the value span added above and
// below the data
const DefaultDomainPadding = 0.2

// Series is a named run of readings for one site and parameter
type Series struct {
	SiteID        string
	ParameterCode string
	Unit          string
	Points        []timeseries.TimePoint
}

// Builder turns series into chart plans. A Builder holds only read-only
// configuration and is safe for concurrent use.
type Builder struct {
	Vocabulary    *qualifier.Vocabulary
	GapThreshold  time.Duration
	DomainPadding float64
}

// NewBuilder returns a Builder with the standard vocabulary and thresholds
func NewBuilder() *Builder {
	return &Builder{
		Vocabulary:    qualifier.Default(),
		GapThreshold:  timeseries.DefaultGapThreshold,
		DomainPadding: DefaultDomainPadding,
	}
}

// Plan is a drawable chart for one time window
type Plan struct {
	Series   Series
	Start    int64
	End      int64
	Segments []timeseries.Segment
	Ticks    *ticks.Plan
	// Domain is nil when the window holds no numeric values
	Domain  *timeseries.Extent
	Summary timeseries.Summary

	points []timeseries.TimePoint
}

// Build plans the chart for series over [start, end] (epoch millis) in the
// named time zone
func (b *Builder) Build(series Series, start, end int64, zone string) (*Plan, error) {
	tickPlan, err := ticks.Generate(start, end, zone)
	if err != nil {
		return nil, fmt.Errorf("could not plan ticks for %s/%s: %w", series.SiteID, series.ParameterCode, err)
	}

	points := timeseries.Window(series.Points, start, end)

	p := &Plan{
		Series:   series,
		Start:    start,
		End:      end,
		Segments: timeseries.BuildSegments(points, b.Vocabulary, b.GapThreshold),
		Ticks:    tickPlan,
		Summary:  timeseries.Summarize(points),
		points:   points,
	}
	if extent, ok := timeseries.ExtentOf(points); ok {
		padded := extent.Padded(b.DomainPadding)
		p.Domain = &padded
	}

	return p, nil
}

// Points returns the readings inside the plan's window
func (p *Plan) Points() []timeseries.TimePoint {
	return p.points
}

// Nearest returns the reading in the window closest to t, for cursor
// tooltips
func (p *Plan) Nearest(t int64) (timeseries.TimePoint, error) {
	return timeseries.Nearest(p.points, t)
}

// Classification returns how a reading is drawn under the builder's
// vocabulary
func (b *Builder) Classification(p timeseries.TimePoint) timeseries.Classification {
	return timeseries.Classify(p, b.Vocabulary)
}
