package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/chrissnell/hydrograph/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrSiteNotFound is returned by the SQLite provider's site operations
var ErrSiteNotFound = errors.New("site not found")

// MigrationProvider returns the embedded configuration schema migrations
func MigrationProvider() *migrate.FSProvider {
	return migrate.NewFSProvider(migrationFS, "migrations", "config_migrations", migrate.SQLite)
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the SQLite configuration database at dbPath and
// brings its schema up to date
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := migrate.NewMigrator(db, MigrationProvider()).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	sites, err := s.GetSites()
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	config.Sites = sites

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	chart, err := s.GetChartConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load chart config: %w", err)
	}
	config.Chart = *chart

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", s.dbPath, err)
	}

	return config, nil
}

// GetSites returns site configurations, with their parameters, from the database
func (s *SQLiteProvider) GetSites() ([]SiteData, error) {
	rows, err := s.db.Query(`SELECT id, name, time_zone, latitude, longitude FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []SiteData
	for rows.Next() {
		var site SiteData
		var name sql.NullString
		var lat, lon sql.NullFloat64

		if err := rows.Scan(&site.ID, &name, &site.TimeZone, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan site row: %w", err)
		}
		site.Name = name.String
		site.Latitude = lat.Float64
		site.Longitude = lon.Float64
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sites {
		params, err := s.getParameters(sites[i].ID)
		if err != nil {
			return nil, err
		}
		sites[i].Parameters = params
	}

	return sites, nil
}

// GetSite returns a single site
func (s *SQLiteProvider) GetSite(id string) (*SiteData, error) {
	var site SiteData
	var name sql.NullString
	var lat, lon sql.NullFloat64

	err := s.db.QueryRow(`SELECT id, name, time_zone, latitude, longitude FROM sites WHERE id = ?`, id).
		Scan(&site.ID, &name, &site.TimeZone, &lat, &lon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, id)
		}
		return nil, fmt.Errorf("failed to query site: %w", err)
	}
	site.Name = name.String
	site.Latitude = lat.Float64
	site.Longitude = lon.Float64

	site.Parameters, err = s.getParameters(id)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *SQLiteProvider) getParameters(siteID string) ([]ParameterData, error) {
	rows, err := s.db.Query(`SELECT code, name, unit FROM site_parameters WHERE site_id = ? ORDER BY position, code`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters for site %s: %w", siteID, err)
	}
	defer rows.Close()

	var params []ParameterData
	for rows.Next() {
		var p ParameterData
		var name, unit sql.NullString
		if err := rows.Scan(&p.Code, &name, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan parameter row: %w", err)
		}
		p.Name = name.String
		p.Unit = unit.String
		params = append(params, p)
	}
	return params, rows.Err()
}

// GetStorageConfig returns storage backend configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	rows, err := s.db.Query(`SELECT backend_type, timescale_connection_string FROM storage_configs WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var connectionString sql.NullString

		if err := rows.Scan(&backendType, &connectionString); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			if connectionString.Valid {
				storage.TimescaleDB = &TimescaleDBData{ConnectionString: connectionString.String}
			}
		}
	}

	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	rows, err := s.db.Query(`
		SELECT controller_type, rest_cert, rest_key, rest_port, rest_listen_addr, rest_request_log_size
		FROM controller_configs
		WHERE enabled = 1
		ORDER BY controller_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query controller configs: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controllerType string
		var cert, key, listenAddr sql.NullString
		var port, logSize sql.NullInt64

		if err := rows.Scan(&controllerType, &cert, &key, &port, &listenAddr, &logSize); err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		controller := ControllerData{Type: controllerType}
		switch controllerType {
		case "rest":
			controller.RESTServer = &RESTServerData{
				Cert:           cert.String,
				Key:            key.String,
				Port:           int(port.Int64),
				ListenAddr:     listenAddr.String,
				RequestLogSize: int(logSize.Int64),
			}
		}
		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// GetChartConfig returns chart settings and extra mask qualifiers
func (s *SQLiteProvider) GetChartConfig() (*ChartData, error) {
	chart := &ChartData{}

	var gap, period sql.NullString
	var padding sql.NullFloat64
	err := s.db.QueryRow(`SELECT gap_threshold, default_period, domain_padding FROM chart_config WHERE id = 1`).
		Scan(&gap, &period, &padding)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query chart config: %w", err)
	}
	chart.GapThreshold = gap.String
	chart.DefaultPeriod = period.String
	chart.DomainPadding = padding.Float64

	rows, err := s.db.Query(`SELECT code, reason FROM mask_qualifiers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mask qualifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, reason string
		if err := rows.Scan(&code, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan mask qualifier row: %w", err)
		}
		if chart.MaskQualifiers == nil {
			chart.MaskQualifiers = make(map[string]string)
		}
		chart.MaskQualifiers[code] = reason
	}

	return chart, rows.Err()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write methods for configuration management

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	if err := configData.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"site_parameters", "sites", "storage_configs", "controller_configs", "chart_config", "mask_qualifiers"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range configData.Sites {
		if err := insertSite(tx, &configData.Sites[i]); err != nil {
			return fmt.Errorf("failed to insert site %s: %w", configData.Sites[i].ID, err)
		}
	}

	if ts := configData.Storage.TimescaleDB; ts != nil {
		_, err := tx.Exec(`INSERT INTO storage_configs (backend_type, enabled, timescale_connection_string) VALUES ('timescaledb', 1, ?)`,
			ts.ConnectionString)
		if err != nil {
			return fmt.Errorf("failed to insert storage config: %w", err)
		}
	}

	for _, controller := range configData.Controllers {
		if err := insertController(tx, &controller); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", controller.Type, err)
		}
	}

	chart := configData.Chart
	_, err = tx.Exec(`INSERT INTO chart_config (id, gap_threshold, default_period, domain_padding) VALUES (1, ?, ?, ?)`,
		nullString(chart.GapThreshold), nullString(chart.DefaultPeriod), nullFloat64(chart.DomainPadding))
	if err != nil {
		return fmt.Errorf("failed to insert chart config: %w", err)
	}
	for code, reason := range chart.MaskQualifiers {
		if _, err := tx.Exec(`INSERT INTO mask_qualifiers (code, reason) VALUES (?, ?)`, code, reason); err != nil {
			return fmt.Errorf("failed to insert mask qualifier %s: %w", code, err)
		}
	}

	return tx.Commit()
}

// AddSite adds a new site and its parameters
func (s *SQLiteProvider) AddSite(site *SiteData) error {
	cfg := ConfigData{Sites: []SiteData{*site}}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSite(tx, site); err != nil {
		return fmt.Errorf("failed to insert site %s: %w", site.ID, err)
	}
	return tx.Commit()
}

// DeleteSite removes a site and its parameters
func (s *SQLiteProvider) DeleteSite(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM site_parameters WHERE site_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete parameters: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, id)
	}
	return tx.Commit()
}

func insertSite(tx *sql.Tx, site *SiteData) error {
	_, err := tx.Exec(`INSERT INTO sites (id, name, time_zone, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
		site.ID, nullString(site.Name), site.TimeZone, nullFloat64(site.Latitude), nullFloat64(site.Longitude))
	if err != nil {
		return err
	}

	for i, p := range site.Parameters {
		_, err := tx.Exec(`INSERT INTO site_parameters (site_id, code, name, unit, position) VALUES (?, ?, ?, ?, ?)`,
			site.ID, p.Code, nullString(p.Name), nullString(p.Unit), i)
		if err != nil {
			return fmt.Errorf("parameter %s: %w", p.Code, err)
		}
	}
	return nil
}

func insertController(tx *sql.Tx, controller *ControllerData) error {
	var cert, key, listenAddr sql.NullString
	var port, logSize sql.NullInt64

	if rest := controller.RESTServer; rest != nil {
		cert = nullString(rest.Cert)
		key = nullString(rest.Key)
		listenAddr = nullString(rest.ListenAddr)
		port = sql.NullInt64{Int64: int64(rest.Port), Valid: rest.Port != 0}
		logSize = sql.NullInt64{Int64: int64(rest.RequestLogSize), Valid: rest.RequestLogSize != 0}
	}

	_, err := tx.Exec(`
		INSERT INTO controller_configs (
			controller_type, enabled, rest_cert, rest_key, rest_port, rest_listen_addr, rest_request_log_size
		) VALUES (?, 1, ?, ?, ?, ?, ?)
	`, controller.Type, cert, key, port, listenAddr, logSize)
	return err
}

// Helper functions for handling null values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
