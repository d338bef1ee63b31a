package timeseries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtentOf(t *testing.T) {
	points := []TimePoint{
		{Time: 1, Value: Float(4.5)},
		{Time: 2},
		{Time: 3, Value: Float(-1)},
		{Time: 4, Value: Float(math.NaN())},
		{Time: 5, Value: Float(12)},
	}

	e, ok := ExtentOf(points)
	assert.True(t, ok)
	assert.Equal(t, Extent{Min: -1, Max: 12}, e)

	_, ok = ExtentOf([]TimePoint{{Time: 1}})
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]TimePoint{
		{Time: 1, Value: Float(2)},
		{Time: 2},
		{Time: 3, Value: Float(4)},
	})

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.Nulls)
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.Equal(t, Extent{Min: 2, Max: 4}, s.Extent)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
}

func TestExtentPadded(t *testing.T) {
	tests := []struct {
		name     string
		extent   Extent
		fraction float64
		expected Extent
	}{
		{"regular", Extent{Min: 10, Max: 20}, 0.1, Extent{Min: 9, Max: 21}},
		{"flat", Extent{Min: 50, Max: 50}, 0.2, Extent{Min: 40, Max: 60}},
		{"flat zero", Extent{Min: 0, Max: 0}, 0.25, Extent{Min: -1, Max: 1}},
		{"no padding", Extent{Min: 1, Max: 2}, 0, Extent{Min: 1, Max: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.extent.Padded(tt.fraction)
			assert.InDelta(t, tt.expected.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.expected.Max, got.Max, 1e-9)
		})
	}
}
