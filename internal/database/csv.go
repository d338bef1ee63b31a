package database

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgtype"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

// CSVHeader is the column order written by CSVWriter
var CSVHeader = []string{"time", "site_id", "parameter_code", "value", "qualifiers"}

// qualifierSeparator joins the qualifier codes of one reading in a CSV cell
const qualifierSeparator = ";"

var requiredCSVColumns = []string{"time", "site_id", "parameter_code", "value"}

// timestampFormats are tried in order after epoch milliseconds
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999 -0700",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CSVReader reads observations from CSV with a header row. The qualifiers
// column is optional; the others are required and may appear in any order.
type CSVReader struct {
	r       *csv.Reader
	columns map[string]int
	line    int
}

// NewCSVReader reads and checks the header row
func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}

	missing := lo.Filter(requiredCSVColumns, func(c string, _ int) bool {
		_, ok := columns[c]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV header is missing columns: %s", strings.Join(missing, ", "))
	}

	return &CSVReader{r: cr, columns: columns, line: 1}, nil
}

// Read returns the next observation, or io.EOF when the input is exhausted
func (c *CSVReader) Read() (Observation, error) {
	record, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Observation{}, io.EOF
		}
		return Observation{}, fmt.Errorf("failed to read CSV record: %w", err)
	}
	c.line++

	field := func(name string) string {
		i, ok := c.columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	o := Observation{
		SiteID:        field("site_id"),
		ParameterCode: field("parameter_code"),
		Value:         pgtype.Float8{Status: pgtype.Null},
		Qualifiers:    pq.StringArray{},
	}
	if o.SiteID == "" || o.ParameterCode == "" {
		return Observation{}, fmt.Errorf("line %d: site_id and parameter_code are required", c.line)
	}

	if o.Time, err = ParseTimestamp(field("time")); err != nil {
		return Observation{}, fmt.Errorf("line %d: %w", c.line, err)
	}

	if v := field("value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Observation{}, fmt.Errorf("line %d: invalid value %q", c.line, v)
		}
		o.Value = pgtype.Float8{Float: f, Status: pgtype.Present}
	}

	if q := field("qualifiers"); q != "" {
		codes := lo.Map(strings.Split(q, qualifierSeparator), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})
		o.Qualifiers = pq.StringArray(lo.Compact(codes))
	}

	return o, nil
}

// ParseTimestamp accepts epoch milliseconds or one of the common timestamp
// layouts. Layouts without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", value)
}

// CSVWriter writes observations in CSVHeader order
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter writes the header row
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &CSVWriter{w: cw}, nil
}

// Write appends one observation
func (c *CSVWriter) Write(o Observation) error {
	var value string
	if o.Value.Status == pgtype.Present {
		value = strconv.FormatFloat(o.Value.Float, 'f', -1, 64)
	}
	return c.w.Write([]string{
		o.Time.UTC().Format(time.RFC3339Nano),
		o.SiteID,
		o.ParameterCode,
		value,
		strings.Join(o.Qualifiers, qualifierSeparator),
	})
}

// Flush writes buffered rows and reports any write error
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
