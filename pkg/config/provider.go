package config

import (
	"fmt"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSites() ([]SiteData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)
	GetChartConfig() (*ChartData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Sites       []SiteData       `json:"sites"`
	Storage     StorageData      `json:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
	Chart       ChartData        `json:"chart,omitempty"`
}

// SiteData describes a monitoring location
type SiteData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	TimeZone   string          `json:"time_zone"`
	Latitude   float64         `json:"latitude,omitempty"`
	Longitude  float64         `json:"longitude,omitempty"`
	Parameters []ParameterData `json:"parameters,omitempty"`
}

// ParameterData describes a measured parameter at a site, e.g. 00060 discharge
type ParameterData struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// StorageData holds the configuration for storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for the various controllers
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	Cert           string `json:"cert,omitempty"`
	Key            string `json:"key,omitempty"`
	Port           int    `json:"port,omitempty"`
	ListenAddr     string `json:"listen_addr,omitempty"`
	RequestLogSize int    `json:"request_log_size,omitempty"`
}

// ChartData tunes how series are turned into charts. Durations accept
// day and week units, e.g. "2d" or "1w".
type ChartData struct {
	GapThreshold   string            `json:"gap_threshold,omitempty"`
	DefaultPeriod  string            `json:"default_period,omitempty"`
	DomainPadding  float64           `json:"domain_padding,omitempty"`
	MaskQualifiers map[string]string `json:"mask_qualifiers,omitempty"`
}

const (
	defaultGapThreshold  = 48 * time.Hour
	defaultPeriod        = 7 * 24 * time.Hour
	defaultDomainPadding = 0.2
)

// GapThresholdDuration returns the configured gap threshold, or 48 hours
func (c ChartData) GapThresholdDuration() (time.Duration, error) {
	return parseDurationOr(c.GapThreshold, defaultGapThreshold)
}

// DefaultPeriodDuration returns the configured default chart period, or 7 days
func (c ChartData) DefaultPeriodDuration() (time.Duration, error) {
	return parseDurationOr(c.DefaultPeriod, defaultPeriod)
}

// Padding returns the configured domain padding, or 0.2
func (c ChartData) Padding() float64 {
	if c.DomainPadding <= 0 {
		return defaultDomainPadding
	}
	return c.DomainPadding
}

func parseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// Site returns the site with the given ID
func (c *ConfigData) Site(id string) (*SiteData, bool) {
	for i := range c.Sites {
		if c.Sites[i].ID == id {
			return &c.Sites[i], true
		}
	}
	return nil, false
}

// Parameter returns the parameter with the given code
func (s *SiteData) Parameter(code string) (*ParameterData, bool) {
	for i := range s.Parameters {
		if s.Parameters[i].Code == code {
			return &s.Parameters[i], true
		}
	}
	return nil, false
}

// Validate checks the configuration for problems that would only surface
// at request time
func (c *ConfigData) Validate() error {
	seen := make(map[string]bool)
	for _, site := range c.Sites {
		if site.ID == "" {
			return fmt.Errorf("site %q has no id", site.Name)
		}
		if seen[site.ID] {
			return fmt.Errorf("duplicate site id %s", site.ID)
		}
		seen[site.ID] = true

		if site.TimeZone == "" {
			return fmt.Errorf("site %s has no time_zone", site.ID)
		}
		if _, err := time.LoadLocation(site.TimeZone); err != nil {
			return fmt.Errorf("site %s has invalid time_zone %q: %w", site.ID, site.TimeZone, err)
		}
	}

	if _, err := c.Chart.GapThresholdDuration(); err != nil {
		return fmt.Errorf("chart.gap_threshold: %w", err)
	}
	if _, err := c.Chart.DefaultPeriodDuration(); err != nil {
		return fmt.Errorf("chart.default_period: %w", err)
	}

	for _, con := range c.Controllers {
		if con.Type == "" {
			return fmt.Errorf("controller with no type")
		}
	}

	return nil
}
