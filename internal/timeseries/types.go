// Package timeseries turns qualified sensor readings into drawable chart
// segments and answers nearest-point cursor queries.
package timeseries

import (
	"errors"
	"time"
)

// DefaultGapThreshold is the longest interval between two unmasked readings
// that is still drawn as a continuous line
const DefaultGapThreshold = 48 * time.Hour

// ErrNoPoints is returned when a lookup is made against an empty series
var ErrNoPoints = errors.New("timeseries: no points")

// TimePoint is a single sensor reading. Time is epoch milliseconds (UTC) and
// a nil Value means the sensor reported no number for that time.
type TimePoint struct {
	Time       int64    `json:"time"`
	Value      *float64 `json:"value"`
	Qualifiers []string `json:"qualifiers,omitempty"`
}

// Point is the drawable part of a reading
type Point struct {
	Time  int64    `json:"time"`
	Value *float64 `json:"value"`
}

// Segment is a run of consecutive points that share one classification
type Segment struct {
	IsMasked   bool    `json:"isMasked"`
	Label      string  `json:"label"`
	StyleClass string  `json:"class"`
	Points     []Point `json:"points"`
}

// Start returns the time of the first point in the segment
func (s Segment) Start() int64 {
	return s.Points[0].Time
}

// End returns the time of the last point in the segment
func (s Segment) End() int64 {
	return s.Points[len(s.Points)-1].Time
}

// Float returns a pointer to v, for building TimePoint values
func Float(v float64) *float64 {
	return &v
}

func (p TimePoint) point() Point {
	return Point{Time: p.Time, Value: p.Value}
}
