package ticks

import "time"

// Tier is the calendar granularity a plan's ticks are aligned to
type Tier int

const (
	Minute Tier = iota
	Hour
	Day
	Week
	Month
	Year
	// Even ticks are spaced by a raw interval and not calendar aligned
	Even
)

const (
	day          = 24 * time.Hour
	nominalYear  = 31556952 * time.Second // 365.2425 days
	nominalMonth = nominalYear / 12

	layoutTime  = "Jan 02 03:04 PM"
	layoutDay   = "Jan 02"
	layoutMonth = "Jan 2006"
	layoutYear  = "2006"
)

func (t Tier) String() string {
	switch t {
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	case Even:
		return "even"
	}
	return "unknown"
}

func (t Tier) layout() string {
	switch t {
	case Day, Week:
		return layoutDay
	case Month:
		return layoutMonth
	case Year:
		return layoutYear
	}
	return layoutTime
}

// floor returns the tier boundary at or before t, in t's location
func (t Tier) floor(at time.Time) time.Time {
	loc := at.Location()
	switch t {
	case Month:
		return time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
	case Year:
		return time.Date(at.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
}

// advance moves a boundary forward by n tier units using calendar
// arithmetic, so local midnights stay local midnights across DST changes
func (t Tier) advance(at time.Time, n int) time.Time {
	loc := at.Location()
	switch t {
	case Week:
		return time.Date(at.Year(), at.Month(), at.Day()+7*n, 0, 0, 0, 0, loc)
	case Month:
		return time.Date(at.Year(), at.Month()+time.Month(n), 1, 0, 0, 0, 0, loc)
	case Year:
		return time.Date(at.Year()+n, time.January, 1, 0, 0, 0, 0, loc)
	}
	return time.Date(at.Year(), at.Month(), at.Day()+n, 0, 0, 0, 0, loc)
}

// candidate is one (tier, multiplier) step, with a nominal duration used to
// project how many ticks it would produce
type candidate struct {
	tier Tier
	mult int
	step time.Duration
}

// calendarCandidates is ordered by increasing step
var calendarCandidates = []candidate{
	{Day, 1, day},
	{Day, 2, 2 * day},
	{Day, 4, 4 * day},
	{Week, 1, 7 * day},
	{Week, 2, 14 * day},
	{Month, 1, nominalMonth},
	{Month, 2, 2 * nominalMonth},
	{Month, 4, 4 * nominalMonth},
	{Month, 6, 6 * nominalMonth},
	{Year, 1, nominalYear},
}

// generate returns up to limit tick times, starting at the first boundary
// at or after start and stepping by the candidate's multiplier
func (c candidate) generate(start, end time.Time, limit int) []int64 {
	first := c.tier.floor(start)
	if first.Before(start) {
		first = c.tier.advance(first, 1)
	}

	var ticks []int64
	for i := 0; len(ticks) < limit; i++ {
		t := c.tier.advance(first, i*c.mult)
		if t.After(end) {
			break
		}
		ticks = append(ticks, t.UnixMilli())
	}
	return ticks
}

func (c candidate) plan(ticks []int64, loc *time.Location) *Plan {
	if len(ticks) > MaxTicks {
		ticks = ticks[:MaxTicks]
	}
	return &Plan{
		Ticks:      ticks,
		Tier:       c.tier,
		Multiplier: c.mult,
		layout:     c.tier.layout(),
		loc:        loc,
	}
}
