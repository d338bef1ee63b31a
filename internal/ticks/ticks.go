// Package ticks builds time-axis tick plans for hydrograph charts. A plan
// holds between MinTicks and MaxTicks timestamps that fall on comparable
// calendar boundaries in the site's time zone, plus the layout used to
// label them.
package ticks

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinTicks is the fewest ticks a plan will hold
	MinTicks = 4
	// MaxTicks is the most ticks a plan will hold
	MaxTicks = 7
)

var (
	// ErrInvalidRange is returned when the end of the window is not after its start
	ErrInvalidRange = errors.New("ticks: end must be after start")
	// ErrUnknownZone is returned when the time zone cannot be loaded
	ErrUnknownZone = errors.New("ticks: unknown time zone")
	// ErrWindowTooShort is returned when fewer than MinTicks local minute
	// boundaries fall inside the window. It wraps ErrInvalidRange.
	ErrWindowTooShort = fmt.Errorf("%w: window must hold %d minute boundaries", ErrInvalidRange, MinTicks)
)

// subDaySteps are the fallback sub-day steps, finest first, tried when
// the quarter-window step lands fewer than MinTicks ticks
var subDaySteps = []struct {
	tier Tier
	unit time.Duration
	mult int
}{
	{Minute, time.Minute, 1},
	{Minute, time.Minute, 2},
	{Minute, time.Minute, 5},
	{Minute, time.Minute, 10},
	{Minute, time.Minute, 15},
	{Minute, time.Minute, 30},
	{Hour, time.Hour, 1},
	{Hour, time.Hour, 2},
	{Hour, time.Hour, 3},
	{Hour, time.Hour, 6},
	{Hour, time.Hour, 12},
}

// Plan is a set of axis ticks and the way to label them
type Plan struct {
	Ticks      []int64
	Tier       Tier
	Multiplier int
	layout     string
	loc        *time.Location
}

// Format labels a timestamp (epoch millis) the same way as the plan's ticks
func (p *Plan) Format(ms int64) string {
	return time.UnixMilli(ms).In(p.loc).Format(p.layout)
}

// Labels returns the formatted label of every tick
func (p *Plan) Labels() []string {
	labels := make([]string, len(p.Ticks))
	for i, t := range p.Ticks {
		labels[i] = p.Format(t)
	}
	return labels
}

// Location returns the time zone the plan was built for
func (p *Plan) Location() *time.Location {
	return p.loc
}

// Generate builds a tick plan for the window [startMillis, endMillis] in the
// named IANA time zone. The window must hold at least MinTicks local minute
// boundaries (roughly four minutes); shorter windows return ErrWindowTooShort.
func Generate(startMillis, endMillis int64, zone string) (*Plan, error) {
	if endMillis <= startMillis {
		return nil, fmt.Errorf("%w: start=%d end=%d", ErrInvalidRange, startMillis, endMillis)
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownZone, zone, err)
	}

	return GenerateIn(time.UnixMilli(startMillis), time.UnixMilli(endMillis), loc)
}

// GenerateIn is Generate for callers that already hold a location
func GenerateIn(start, end time.Time, loc *time.Location) (*Plan, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: start=%v end=%v", ErrInvalidRange, start, end)
	}
	start, end = start.In(loc), end.In(loc)
	span := end.Sub(start)

	if ceilLocal(start, time.Minute, loc).Add((MinTicks - 1) * time.Minute).After(end) {
		return nil, fmt.Errorf("%w: start=%v end=%v", ErrWindowTooShort, start, end)
	}

	if span < 4*day {
		if p := subDayPlan(start, end, loc); p != nil {
			return p, nil
		}
	}

	var fallback *Plan
	for _, c := range calendarCandidates {
		ticks := c.generate(start, end, MaxTicks+1)
		projected := ceilDiv(span, c.step)

		if projected >= MinTicks && projected <= MaxTicks && min(len(ticks), MaxTicks) >= MinTicks {
			return c.plan(ticks, loc), nil
		}

		// The coarsest calendar tier that still yields enough ticks is kept
		// for windows that fall between two tiers.
		if c.tier != Year && len(ticks) >= MinTicks {
			fallback = c.plan(ticks, loc)
		}
	}

	if fallback != nil && span <= MaxTicks*nominalYear {
		return fallback, nil
	}

	return evenPlan(start, end, loc), nil
}

// subDayPlan divides short windows into quarters rounded up to a whole
// minute (or hour, for windows of 16 hours or more), starting from the
// first such boundary at or after start. When that lands too few ticks the
// finest step from subDaySteps that lands MinTicks..MaxTicks is used.
func subDayPlan(start, end time.Time, loc *time.Location) *Plan {
	span := end.Sub(start)

	tier, unit := Minute, time.Minute
	if span >= 16*time.Hour {
		tier, unit = Hour, time.Hour
	}

	step := ceilDuration(span/4, unit)
	if ticks := stepTicks(ceilLocal(start, unit, loc), end, step, MaxTicks); len(ticks) >= MinTicks {
		return subDay(ticks, tier, int(step/unit), loc)
	}

	for _, s := range subDaySteps {
		step := time.Duration(s.mult) * s.unit
		ticks := stepTicks(ceilLocal(start, s.unit, loc), end, step, MaxTicks+1)
		if len(ticks) >= MinTicks && len(ticks) <= MaxTicks {
			return subDay(ticks, s.tier, s.mult, loc)
		}
	}
	return nil
}

// stepTicks returns up to limit ticks from first, step apart, not after end
func stepTicks(first, end time.Time, step time.Duration, limit int) []int64 {
	var ticks []int64
	for t := first; !t.After(end) && len(ticks) < limit; t = t.Add(step) {
		ticks = append(ticks, t.UnixMilli())
	}
	return ticks
}

func subDay(ticks []int64, tier Tier, mult int, loc *time.Location) *Plan {
	return &Plan{
		Ticks:      ticks,
		Tier:       tier,
		Multiplier: mult,
		layout:     tier.layout(),
		loc:        loc,
	}
}

// evenPlan spreads MaxTicks ticks over the window at a raw interval
// rounded down to whole minutes. Only reached for windows far longer than
// MaxTicks minutes.
func evenPlan(start, end time.Time, loc *time.Location) *Plan {
	first := ceilLocal(start, time.Minute, loc)
	step := (end.Sub(first) / (MaxTicks - 1)).Truncate(time.Minute)

	ticks := make([]int64, MaxTicks)
	for i := range ticks {
		ticks[i] = first.Add(time.Duration(i) * step).UnixMilli()
	}

	layout := Minute.layout()
	switch {
	case step >= 28*day:
		layout = layoutMonth
	case step >= day:
		layout = layoutDay
	}

	return &Plan{
		Ticks:      ticks,
		Tier:       Even,
		Multiplier: 1,
		layout:     layout,
		loc:        loc,
	}
}

// ceilLocal returns the first local unit boundary (minute or hour) at or
// after t
func ceilLocal(t time.Time, unit time.Duration, loc *time.Location) time.Time {
	t = t.In(loc)
	minute := t.Minute()
	if unit >= time.Hour {
		minute = 0
	}
	b := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, loc)
	for b.Before(t) {
		b = b.Add(unit)
	}
	return b
}

func ceilDuration(d, unit time.Duration) time.Duration {
	if d <= unit {
		return unit
	}
	if r := d % unit; r != 0 {
		d += unit - r
	}
	return d
}

func ceilDiv(a, b time.Duration) int64 {
	q := int64(a / b)
	if a%b != 0 {
		q++
	}
	return q
}
