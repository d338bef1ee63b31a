package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML-specific structs with yaml tags

type SiteYAML struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name,omitempty"`
	TimeZone   string          `yaml:"time-zone"`
	Latitude   float64         `yaml:"latitude,omitempty"`
	Longitude  float64         `yaml:"longitude,omitempty"`
	Parameters []ParameterYAML `yaml:"parameters,omitempty"`
}

type ParameterYAML struct {
	Code string `yaml:"code"`
	Name string `yaml:"name,omitempty"`
	Unit string `yaml:"unit,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	Cert           string `yaml:"cert,omitempty"`
	Key            string `yaml:"key,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	ListenAddr     string `yaml:"listen-addr,omitempty"`
	RequestLogSize int    `yaml:"request-log-size,omitempty"`
}

type ChartYAML struct {
	GapThreshold   string            `yaml:"gap-threshold,omitempty"`
	DefaultPeriod  string            `yaml:"default-period,omitempty"`
	DomainPadding  float64           `yaml:"domain-padding,omitempty"`
	MaskQualifiers map[string]string `yaml:"mask-qualifiers,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig struct {
		Sites       []SiteYAML       `yaml:"sites"`
		Storage     StorageYAML      `yaml:"storage,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
		Chart       ChartYAML        `yaml:"chart,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", y.filename, err)
	}

	// Convert to our internal format
	config := &ConfigData{
		Sites:       make([]SiteData, len(yamlConfig.Sites)),
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	for i, site := range yamlConfig.Sites {
		config.Sites[i] = SiteData{
			ID:         site.ID,
			Name:       site.Name,
			TimeZone:   site.TimeZone,
			Latitude:   site.Latitude,
			Longitude:  site.Longitude,
			Parameters: make([]ParameterData, len(site.Parameters)),
		}
		for j, p := range site.Parameters {
			config.Sites[i].Parameters[j] = ParameterData{Code: p.Code, Name: p.Name, Unit: p.Unit}
		}
	}

	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}
		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:           controller.RESTServer.Cert,
				Key:            controller.RESTServer.Key,
				Port:           controller.RESTServer.Port,
				ListenAddr:     controller.RESTServer.ListenAddr,
				RequestLogSize: controller.RESTServer.RequestLogSize,
			}
		}
	}

	config.Chart = ChartData{
		GapThreshold:   yamlConfig.Chart.GapThreshold,
		DefaultPeriod:  yamlConfig.Chart.DefaultPeriod,
		DomainPadding:  yamlConfig.Chart.DomainPadding,
		MaskQualifiers: yamlConfig.Chart.MaskQualifiers,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// GetSites returns the configured sites
func (y *YAMLProvider) GetSites() ([]SiteData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Sites, nil
}

// GetStorageConfig returns the storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// GetControllers returns the controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Controllers, nil
}

// GetChartConfig returns the chart tuning configuration
func (y *YAMLProvider) GetChartConfig() (*ChartData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Chart, nil
}

// IsReadOnly returns true since YAML files are treated as read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
