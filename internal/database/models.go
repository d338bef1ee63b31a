package database

import (
	"time"

	"github.com/jackc/pgtype"
	"github.com/lib/pq"

	"github.com/chrissnell/hydrograph/internal/timeseries"
)

// Observation is one row of the observations hypertable
type Observation struct {
	SiteID        string         `gorm:"column:site_id;primaryKey"`
	ParameterCode string         `gorm:"column:parameter_code;primaryKey"`
	Time          time.Time      `gorm:"column:time;primaryKey"`
	Value         pgtype.Float8  `gorm:"column:value"`
	Qualifiers    pq.StringArray `gorm:"column:qualifiers;type:text[]"`
}

// TableName specifies the table name for Observation
func (Observation) TableName() string {
	return "observations"
}

// ObservationColumns lists the table columns in COPY order
var ObservationColumns = []string{"time", "site_id", "parameter_code", "value", "qualifiers"}

// TimePoint converts the row into a chart point. A NULL value becomes a
// point with no value.
func (o Observation) TimePoint() timeseries.TimePoint {
	p := timeseries.TimePoint{
		Time:       o.Time.UnixMilli(),
		Qualifiers: []string(o.Qualifiers),
	}
	if o.Value.Status == pgtype.Present {
		p.Value = timeseries.Float(o.Value.Float)
	}
	return p
}

// CopyRow returns the row's values in ObservationColumns order
func (o Observation) CopyRow() []any {
	var value any
	if o.Value.Status == pgtype.Present {
		value = o.Value.Float
	}
	qualifiers := []string(o.Qualifiers)
	if qualifiers == nil {
		qualifiers = []string{}
	}
	return []any{o.Time, o.SiteID, o.ParameterCode, value, qualifiers}
}

// NewObservation builds a row from a chart point
func NewObservation(siteID, parameterCode string, p timeseries.TimePoint) Observation {
	o := Observation{
		SiteID:        siteID,
		ParameterCode: parameterCode,
		Time:          time.UnixMilli(p.Time).UTC(),
		Value:         pgtype.Float8{Status: pgtype.Null},
		Qualifiers:    pq.StringArray(p.Qualifiers),
	}
	if p.Value != nil {
		o.Value = pgtype.Float8{Float: *p.Value, Status: pgtype.Present}
	}
	if o.Qualifiers == nil {
		o.Qualifiers = pq.StringArray{}
	}
	return o
}
