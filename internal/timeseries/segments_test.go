package timeseries

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/chrissnell/hydrograph/internal/qualifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2018, 3, 8, 20, 8, 0, 0, time.UTC).UnixMilli()

func at(d time.Duration) int64 {
	return base + d.Milliseconds()
}

func reading(d time.Duration, value float64, qualifiers ...string) TimePoint {
	return TimePoint{Time: at(d), Value: Float(value), Qualifiers: qualifiers}
}

func times(s Segment) []int64 {
	out := make([]int64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

func TestClassify(t *testing.T) {
	v := qualifier.Default()

	tests := []struct {
		name       string
		qualifiers []string
		expected   Classification
	}{
		{"no qualifiers", nil, Classification{Label: LabelProvisional, StyleClass: ClassProvisional}},
		{"provisional", []string{"P"}, Classification{Label: LabelProvisional, StyleClass: ClassProvisional}},
		{"approved", []string{"A"}, Classification{Label: LabelApproved, StyleClass: ClassApproved}},
		{"approved estimated", []string{"A", "e"}, Classification{Label: LabelEstimated, StyleClass: ClassEstimated}},
		{"estimated without approval", []string{"P", "E"}, Classification{Label: LabelProvisional, StyleClass: ClassProvisional}},
		{"ice", []string{"P", "ICE"}, Classification{IsMasked: true, Label: "Ice affected"}},
		{"two masks", []string{"ICE", "EQP", "A"}, Classification{IsMasked: true, Label: "Equipment malfunction, Ice affected"}},
		{"unknown code", []string{"A", "ZZZ"}, Classification{Label: LabelApproved, StyleClass: ClassApproved}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(TimePoint{Qualifiers: tt.qualifiers}, v))
		})
	}
}

func TestBuildSegmentsEmpty(t *testing.T) {
	segments := BuildSegments(nil, qualifier.Default(), DefaultGapThreshold)
	require.NotNil(t, segments)
	assert.Empty(t, segments)
}

func TestBuildSegmentsSinglePoint(t *testing.T) {
	segments := BuildSegments([]TimePoint{reading(0, 1.5, "A")}, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 1)
	assert.Equal(t, LabelApproved, segments[0].Label)
	assert.Equal(t, []int64{at(0)}, times(segments[0]))
}

func TestBuildSegmentsMaskedRun(t *testing.T) {
	points := []TimePoint{
		reading(0, 10),
		{Time: at(15 * time.Minute), Qualifiers: []string{"ICE"}},
		{Time: at(30 * time.Minute), Qualifiers: []string{"ICE"}},
		reading(45*time.Minute, 12),
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 3)

	assert.False(t, segments[0].IsMasked)
	assert.Equal(t, LabelProvisional, segments[0].Label)
	assert.Equal(t, []int64{at(0)}, times(segments[0]))

	// The masked region starts at the last unmasked reading and runs to the
	// first reading after the ice. The closing masked segment takes that
	// reading (t45) and the unmasked run restarts at it, rather than the
	// unmasked run restarting at the last iced reading (t30).
	assert.True(t, segments[1].IsMasked)
	assert.Equal(t, "Ice affected", segments[1].Label)
	assert.Equal(t, "mask-0", segments[1].StyleClass)
	assert.Equal(t, []int64{at(0), at(15 * time.Minute), at(30 * time.Minute), at(45 * time.Minute)}, times(segments[1]))
	require.NotNil(t, segments[1].Points[0].Value, "the shared boundary point keeps its value")
	assert.Equal(t, 10.0, *segments[1].Points[0].Value)

	assert.False(t, segments[2].IsMasked)
	assert.Equal(t, []int64{at(45 * time.Minute)}, times(segments[2]))

	assert.Equal(t, segments[0].End(), segments[1].Start())
	assert.Equal(t, segments[1].End(), segments[2].Start())
}

func TestBuildSegmentsMaskReasonSharesUnmaskedLabel(t *testing.T) {
	v := qualifier.Default().With(map[string]string{"PRV": "Provisional"})
	points := []TimePoint{
		{Time: at(0), Qualifiers: []string{"PRV"}},
		reading(15*time.Minute, 2),
		reading(30*time.Minute, 3),
	}

	segments := BuildSegments(points, v, DefaultGapThreshold)
	require.Len(t, segments, 2)

	assert.True(t, segments[0].IsMasked)
	assert.Equal(t, "Provisional", segments[0].Label)
	assert.Equal(t, "mask-0", segments[0].StyleClass)
	assert.Equal(t, []int64{at(0), at(15 * time.Minute)}, times(segments[0]))

	assert.False(t, segments[1].IsMasked)
	assert.Equal(t, LabelProvisional, segments[1].Label)
	assert.Equal(t, ClassProvisional, segments[1].StyleClass)
	assert.Equal(t, []int64{at(15 * time.Minute), at(30 * time.Minute)}, times(segments[1]))
}

func TestBuildSegmentsGap(t *testing.T) {
	points := []TimePoint{
		reading(0, 1, "A"),
		reading(time.Hour, 2, "A"),
		reading(time.Hour+49*time.Hour, 3, "A"),
		reading(time.Hour+50*time.Hour, 4, "A"),
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 2)
	assert.Equal(t, []int64{at(0), at(time.Hour)}, times(segments[0]))
	assert.Equal(t, []int64{at(50 * time.Hour), at(51 * time.Hour)}, times(segments[1]))
	assert.Less(t, segments[0].End(), segments[1].Start(), "gap-separated segments share no point")
}

func TestBuildSegmentsGapAtThreshold(t *testing.T) {
	points := []TimePoint{
		reading(0, 1, "A"),
		reading(48*time.Hour, 2, "A"),
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 1, "a gap equal to the threshold does not break the line")
}

func TestBuildSegmentsGapIgnoredWhenMasked(t *testing.T) {
	points := []TimePoint{
		{Time: at(0), Qualifiers: []string{"ICE"}},
		{Time: at(72 * time.Hour), Qualifiers: []string{"ICE"}},
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 1)
	assert.Len(t, segments[0].Points, 2)
}

func TestBuildSegmentsApprovalChange(t *testing.T) {
	points := []TimePoint{
		reading(0, 1, "A"),
		reading(15*time.Minute, 2, "A"),
		reading(30*time.Minute, 3, "P"),
		reading(45*time.Minute, 4, "A", "E"),
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 3)

	assert.Equal(t, LabelApproved, segments[0].Label)
	assert.Equal(t, ClassApproved, segments[0].StyleClass)
	assert.Equal(t, []int64{at(0), at(15 * time.Minute)}, times(segments[0]))

	assert.Equal(t, LabelProvisional, segments[1].Label)
	assert.Equal(t, []int64{at(15 * time.Minute), at(30 * time.Minute)}, times(segments[1]))

	assert.Equal(t, LabelEstimated, segments[2].Label)
	assert.Equal(t, []int64{at(30 * time.Minute), at(45 * time.Minute)}, times(segments[2]))
}

// Chains of different masks are not covered by observed behaviour; each
// change attributes the connecting reading to the closing segment.
func TestBuildSegmentsMaskedChain(t *testing.T) {
	points := []TimePoint{
		{Time: at(0), Qualifiers: []string{"ICE"}},
		{Time: at(time.Hour), Qualifiers: []string{"ICE"}},
		{Time: at(2 * time.Hour), Qualifiers: []string{"FLD"}},
		{Time: at(3 * time.Hour), Qualifiers: []string{"FLD", "ICE"}},
	}

	segments := BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	require.Len(t, segments, 3)

	assert.Equal(t, "Ice affected", segments[0].Label)
	assert.Equal(t, []int64{at(0), at(time.Hour), at(2 * time.Hour)}, times(segments[0]))
	assert.Equal(t, "Flood", segments[1].Label)
	assert.Equal(t, []int64{at(2 * time.Hour), at(3 * time.Hour)}, times(segments[1]))
	assert.Equal(t, "Flood, Ice affected", segments[2].Label)
	assert.Equal(t, []int64{at(3 * time.Hour)}, times(segments[2]))

	assert.Equal(t, []string{"mask-0", "mask-1", "mask-2"},
		[]string{segments[0].StyleClass, segments[1].StyleClass, segments[2].StyleClass})
}

func TestBuildSegmentsStyleCycling(t *testing.T) {
	v := qualifier.Default()

	var points []TimePoint
	for i, code := range v.Codes() {
		points = append(points, TimePoint{Time: at(time.Duration(i) * time.Minute), Qualifiers: []string{code}})
	}
	points = append(points,
		TimePoint{Time: at(20 * time.Minute), Qualifiers: []string{"ICE", "FLD"}},
		TimePoint{Time: at(21 * time.Minute), Qualifiers: []string{v.Codes()[0]}},
	)

	segments := BuildSegments(points, v, DefaultGapThreshold)
	require.Len(t, segments, 16)
	for i := 0; i < qualifier.PaletteSize; i++ {
		assert.Equal(t, fmt.Sprintf("mask-%d", i), segments[i].StyleClass)
	}
	assert.Equal(t, "mask-0", segments[14].StyleClass, "the 15th distinct label reuses the first style")
	assert.Equal(t, segments[0].StyleClass, segments[15].StyleClass, "a repeated label keeps its style")

	again := BuildSegments(points, v, DefaultGapThreshold)
	assert.Equal(t, segments, again)
}

func TestBuildSegmentsDoesNotMutateInput(t *testing.T) {
	points := []TimePoint{
		reading(0, 1, "A"),
		reading(time.Minute, 2, "ICE"),
		reading(2*time.Minute, 3, "A"),
	}
	snapshot := append([]TimePoint(nil), points...)

	BuildSegments(points, qualifier.Default(), DefaultGapThreshold)
	assert.Equal(t, snapshot, points)
}

func TestBuildSegmentsProperties(t *testing.T) {
	v := qualifier.Default()
	rng := rand.New(rand.NewSource(42))
	qualifierSets := [][]string{{"A"}, {"P"}, {"A", "E"}, {"ICE"}, {"EQP"}, {"ICE", "EQP"}, nil}

	for run := 0; run < 50; run++ {
		var points []TimePoint
		ts := base
		for i := 0; i < 200; i++ {
			step := time.Duration(rng.Intn(90)+1) * time.Minute
			if rng.Intn(40) == 0 {
				step = 72 * time.Hour
			}
			ts += step.Milliseconds()
			points = append(points, TimePoint{
				Time:       ts,
				Value:      Float(rng.Float64() * 100),
				Qualifiers: qualifierSets[rng.Intn(len(qualifierSets))],
			})
		}

		segments := BuildSegments(points, v, DefaultGapThreshold)
		require.NotEmpty(t, segments)
		assert.Equal(t, points[0].Time, segments[0].Start())
		assert.Equal(t, points[len(points)-1].Time, segments[len(segments)-1].End())

		seen := make(map[int64]bool)
		for i, s := range segments {
			require.NotEmpty(t, s.Points)
			for j := 1; j < len(s.Points); j++ {
				assert.Less(t, s.Points[j-1].Time, s.Points[j].Time)
			}
			for _, p := range s.Points {
				seen[p.Time] = true
			}
			if i == 0 {
				continue
			}
			prev := segments[i-1]
			if prev.End() != s.Start() {
				// Only a gap between unmasked segments may break continuity
				assert.False(t, prev.IsMasked)
				assert.False(t, s.IsMasked)
				assert.Greater(t, s.Start()-prev.End(), DefaultGapThreshold.Milliseconds())
			}
		}
		for _, p := range points {
			assert.True(t, seen[p.Time], "point %d dropped", p.Time)
		}
	}
}

func TestBuildSegmentsHomogeneous(t *testing.T) {
	v := qualifier.Default()
	points := []TimePoint{
		reading(0, 1, "A"),
		reading(time.Minute, 2, "ICE"),
		reading(2*time.Minute, 3, "ICE", "A"),
		reading(3*time.Minute, 4, "P"),
		reading(4*time.Minute, 5, "P"),
	}

	byTime := make(map[int64]Classification)
	for _, p := range points {
		byTime[p.Time] = Classify(p, v)
	}

	for _, s := range BuildSegments(points, v, DefaultGapThreshold) {
		// The first point of an unmasked->masked segment and the last point
		// of a masked segment are shared boundary points.
		interior := s.Points
		if s.IsMasked {
			interior = interior[1 : len(interior)-1]
		} else if len(interior) > 1 {
			interior = interior[1:]
		}
		for _, p := range interior {
			c := byTime[p.Time]
			assert.Equal(t, s.IsMasked, c.IsMasked)
			assert.Equal(t, s.Label, c.Label)
		}
	}
}
