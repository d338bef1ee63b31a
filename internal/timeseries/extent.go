package timeseries

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Extent is the value range of a series
type Extent struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary holds simple statistics over the non-null values of a series
type Summary struct {
	Count int     `json:"count"`
	Nulls int     `json:"nulls"`
	Mean  float64 `json:"mean"`
	Extent
}

// Values returns the non-null, finite values of a series in time order
func Values(points []TimePoint) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Value == nil || math.IsNaN(*p.Value) || math.IsInf(*p.Value, 0) {
			continue
		}
		values = append(values, *p.Value)
	}
	return values
}

// ExtentOf returns the min/max over the non-null values of a series. The
// second return is false when there are no values.
func ExtentOf(points []TimePoint) (Extent, bool) {
	values := Values(points)
	if len(values) == 0 {
		return Extent{}, false
	}
	return Extent{Min: floats.Min(values), Max: floats.Max(values)}, true
}

// Summarize computes count, null count, mean and extent of a series
func Summarize(points []TimePoint) Summary {
	values := Values(points)
	s := Summary{
		Count: len(values),
		Nulls: len(points) - len(values),
	}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	s.Extent = Extent{Min: floats.Min(values), Max: floats.Max(values)}
	return s
}

// Padded widens the extent by fraction of its span on each side. A
// zero-width extent is widened by fraction of its magnitude, or by one unit
// when the value is zero, so the chart always has a usable domain.
func (e Extent) Padded(fraction float64) Extent {
	if fraction <= 0 {
		return e
	}
	span := e.Max - e.Min
	if span == 0 {
		span = math.Abs(e.Min)
		if span == 0 {
			span = 1 / fraction
		}
	}
	pad := span * fraction
	return Extent{Min: e.Min - pad, Max: e.Max + pad}
}
