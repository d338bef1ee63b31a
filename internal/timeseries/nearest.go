package timeseries

import "sort"

// NearestIndex returns the index of the point closest in time to t, or -1
// for an empty series. Points must be sorted by time. When t is exactly
// between two points the earlier one wins.
func NearestIndex(points []TimePoint, t int64) int {
	if len(points) == 0 {
		return -1
	}

	idx := sort.Search(len(points), func(i int) bool {
		return points[i].Time >= t
	})

	switch idx {
	case 0:
		return 0
	case len(points):
		return len(points) - 1
	}

	before, after := points[idx-1], points[idx]
	if t-before.Time <= after.Time-t {
		return idx - 1
	}
	return idx
}

// Nearest returns the point closest in time to t
func Nearest(points []TimePoint, t int64) (TimePoint, error) {
	idx := NearestIndex(points, t)
	if idx < 0 {
		return TimePoint{}, ErrNoPoints
	}
	return points[idx], nil
}

// Window returns the sub-slice of points whose times fall within
// [start, end]. The result shares the backing array with points.
func Window(points []TimePoint, start, end int64) []TimePoint {
	first := sort.Search(len(points), func(i int) bool {
		return points[i].Time >= start
	})
	last := sort.Search(len(points), func(i int) bool {
		return points[i].Time > end
	})
	if first >= last {
		return nil
	}
	return points[first:last:last]
}
