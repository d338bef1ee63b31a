package restserver

import (
	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/internal/timeseries"
)

// TicksResponse is a tick plan for a time window
type TicksResponse struct {
	Start      int64    `json:"start"`
	End        int64    `json:"end"`
	TimeZone   string   `json:"tz"`
	Tier       string   `json:"tier"`
	Multiplier int      `json:"multiplier"`
	Ticks      []int64  `json:"ticks"`
	Labels     []string `json:"labels"`
}

// ParameterResponse describes one parameter measured at a site
type ParameterResponse struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// SiteResponse describes a configured site
type SiteResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	TimeZone   string              `json:"tz"`
	Latitude   float64             `json:"latitude,omitempty"`
	Longitude  float64             `json:"longitude,omitempty"`
	Parameters []ParameterResponse `json:"parameters"`
	Coverage   []storage.Coverage  `json:"coverage,omitempty"`
}

// SeriesResponse is everything needed to draw one chart
type SeriesResponse struct {
	Site      string               `json:"site"`
	Parameter string               `json:"parameter"`
	Unit      string               `json:"unit,omitempty"`
	Start     int64                `json:"start"`
	End       int64                `json:"end"`
	TimeZone  string               `json:"tz"`
	Segments  []timeseries.Segment `json:"segments"`
	Ticks     TicksResponse        `json:"ticks"`
	Domain    *timeseries.Extent   `json:"domain"`
	Summary   timeseries.Summary   `json:"summary"`
}

// NearestResponse is the reading closest to the cursor
type NearestResponse struct {
	Site       string   `json:"site"`
	Parameter  string   `json:"parameter"`
	Time       int64    `json:"time"`
	Label      string   `json:"label"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	Qualifiers []string `json:"qualifiers"`
	Status     string   `json:"status"`
	IsMasked   bool     `json:"isMasked"`
}

// QualifierResponse describes one masking qualifier code
type QualifierResponse struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// HealthResponse reports the health of the storage backends
type HealthResponse struct {
	Status  string                        `json:"status"`
	Storage map[string]storage.HealthData `json:"storage"`
}

// RequestsResponse lists recently served requests
type RequestsResponse struct {
	Requests []log.HTTPLogEntry `json:"requests"`
}
