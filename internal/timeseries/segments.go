package timeseries

import (
	"strings"
	"time"

	"github.com/chrissnell/hydrograph/internal/qualifier"
)

// Labels and style classes for readings that are not masked
const (
	LabelApproved    = "Approved"
	LabelEstimated   = "Estimated"
	LabelProvisional = "Provisional"

	ClassApproved    = "approved"
	ClassEstimated   = "estimated"
	ClassProvisional = "provisional"
)

// Classification describes how a single reading is drawn
type Classification struct {
	IsMasked bool
	Label    string
	// StyleClass is empty for masked readings until BuildSegments assigns a
	// palette style for the series.
	StyleClass string
}

// Classify determines whether a reading is masked and, if not, its approval
// status. Masked labels are the matched reasons, sorted and comma-joined.
func Classify(p TimePoint, v *qualifier.Vocabulary) Classification {
	if reasons := v.MaskReasons(p.Qualifiers); len(reasons) > 0 {
		return Classification{
			IsMasked: true,
			Label:    strings.Join(reasons, ", "),
		}
	}

	switch {
	case !v.IsApproved(p.Qualifiers):
		return Classification{Label: LabelProvisional, StyleClass: ClassProvisional}
	case v.IsEstimated(p.Qualifiers):
		return Classification{Label: LabelEstimated, StyleClass: ClassEstimated}
	default:
		return Classification{Label: LabelApproved, StyleClass: ClassApproved}
	}
}

// BuildSegments splits an ascending series into drawable segments.
//
// A gap longer than gapThreshold between two unmasked readings breaks the
// line without sharing a point. When a masked run ends, the next reading is
// appended to it so the masked region reaches the following one. When an
// unmasked run ends, its last reading is repeated at the start of the next
// segment so the line stays connected across the style change.
func BuildSegments(points []TimePoint, v *qualifier.Vocabulary, gapThreshold time.Duration) []Segment {
	segments := []Segment{}
	if len(points) == 0 {
		return segments
	}

	classes := classifySeries(points, v)
	gap := gapThreshold.Milliseconds()

	current := newSegment(classes[0], points[0])
	for i := 1; i < len(points); i++ {
		p, c := points[i], classes[i]
		prev := points[i-1]

		switch {
		case !current.IsMasked && !c.IsMasked && p.Time-prev.Time > gap:
			segments = append(segments, current)
			current = newSegment(c, p)

		case current.IsMasked && (!c.IsMasked || c.Label != current.Label):
			current.Points = append(current.Points, p.point())
			segments = append(segments, current)
			current = newSegment(c, p)

		case !current.IsMasked && (c.IsMasked || c.Label != current.Label):
			last := current.Points[len(current.Points)-1]
			segments = append(segments, current)
			current = Segment{
				IsMasked:   c.IsMasked,
				Label:      c.Label,
				StyleClass: c.StyleClass,
				Points:     []Point{last, p.point()},
			}

		default:
			current.Points = append(current.Points, p.point())
		}
	}

	return append(segments, current)
}

// classifySeries classifies every reading and assigns mask styles in order
// of first appearance of each masked label.
func classifySeries(points []TimePoint, v *qualifier.Vocabulary) []Classification {
	classes := make([]Classification, len(points))
	styles := make(map[string]string)

	for i, p := range points {
		c := Classify(p, v)
		if c.IsMasked {
			style, ok := styles[c.Label]
			if !ok {
				style = v.Style(len(styles))
				styles[c.Label] = style
			}
			c.StyleClass = style
		}
		classes[i] = c
	}

	return classes
}

func newSegment(c Classification, p TimePoint) Segment {
	return Segment{
		IsMasked:   c.IsMasked,
		Label:      c.Label,
		StyleClass: c.StyleClass,
		Points:     []Point{p.point()},
	}
}
