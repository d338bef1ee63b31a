package restserver

import (
	"time"

	"github.com/chrissnell/hydrograph/internal/hydrograph"
	"github.com/chrissnell/hydrograph/internal/ticks"
	"github.com/chrissnell/hydrograph/internal/timeseries"
	"github.com/chrissnell/hydrograph/pkg/config"
)

// tooltipLayout labels a single reading at full resolution
const tooltipLayout = "Jan 02, 2006 03:04 PM MST"

func transformTicks(plan *ticks.Plan, start, end int64) TicksResponse {
	return TicksResponse{
		Start:      start,
		End:        end,
		TimeZone:   plan.Location().String(),
		Tier:       plan.Tier.String(),
		Multiplier: plan.Multiplier,
		Ticks:      plan.Ticks,
		Labels:     plan.Labels(),
	}
}

func transformSite(site *config.SiteData) SiteResponse {
	resp := SiteResponse{
		ID:         site.ID,
		Name:       site.Name,
		TimeZone:   site.TimeZone,
		Latitude:   site.Latitude,
		Longitude:  site.Longitude,
		Parameters: make([]ParameterResponse, 0, len(site.Parameters)),
	}
	for _, p := range site.Parameters {
		resp.Parameters = append(resp.Parameters, ParameterResponse{Code: p.Code, Name: p.Name, Unit: p.Unit})
	}
	return resp
}

func transformPlan(plan *hydrograph.Plan) SeriesResponse {
	return SeriesResponse{
		Site:      plan.Series.SiteID,
		Parameter: plan.Series.ParameterCode,
		Unit:      plan.Series.Unit,
		Start:     plan.Start,
		End:       plan.End,
		TimeZone:  plan.Ticks.Location().String(),
		Segments:  plan.Segments,
		Ticks:     transformTicks(plan.Ticks, plan.Start, plan.End),
		Domain:    plan.Domain,
		Summary:   plan.Summary,
	}
}

func transformNearest(plan *hydrograph.Plan, p timeseries.TimePoint, c timeseries.Classification) NearestResponse {
	qualifiers := p.Qualifiers
	if qualifiers == nil {
		qualifiers = []string{}
	}
	return NearestResponse{
		Site:       plan.Series.SiteID,
		Parameter:  plan.Series.ParameterCode,
		Time:       p.Time,
		Label:      time.UnixMilli(p.Time).In(plan.Ticks.Location()).Format(tooltipLayout),
		Value:      p.Value,
		Unit:       plan.Series.Unit,
		Qualifiers: qualifiers,
		Status:     c.Label,
		IsMasked:   c.IsMasked,
	}
}
