// Package timescaledb stores observations in a TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chrissnell/hydrograph/internal/database"
	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/internal/timeseries"
	"github.com/chrissnell/hydrograph/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const saveBatchSize = 1000

// Storage holds the connection to a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

var (
	_ storage.ObservationStore = (*Storage)(nil)
	_ storage.HealthChecker    = (*Storage)(nil)
)

// New connects to TimescaleDB and brings the schema up to date
func New(ctx context.Context, connectionString string) (*Storage, error) {
	conn, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.WithContext(ctx).DB()
	if err != nil {
		return nil, fmt.Errorf("could not get database handle: %w", err)
	}

	log.Info("migrating observation schema...")
	if err := migrate.NewMigrator(sqlDB, MigrationProvider()).MigrateUp(); err != nil {
		return nil, fmt.Errorf("could not migrate observation schema: %w", err)
	}

	return &Storage{TimescaleDBConn: conn}, nil
}

// MigrationProvider returns the embedded observation schema migrations
func MigrationProvider() *migrate.FSProvider {
	return migrate.NewFSProvider(migrationFS, "migrations", "observation_migrations", migrate.Postgres)
}

// FetchSeries returns the observations of one series in [start, end]
func (t *Storage) FetchSeries(ctx context.Context, siteID, parameterCode string, start, end int64) ([]timeseries.TimePoint, error) {
	var rows []database.Observation

	err := t.TimescaleDBConn.WithContext(ctx).
		Where("site_id = ? AND parameter_code = ? AND time BETWEEN ? AND ?",
			siteID, parameterCode, time.UnixMilli(start), time.UnixMilli(end)).
		Order("time").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error querying observations for %s/%s: %w", siteID, parameterCode, err)
	}

	if len(rows) == 0 {
		var exists bool
		if err := t.TimescaleDBConn.WithContext(ctx).Raw(seriesExistsSQL, siteID, parameterCode).Scan(&exists).Error; err != nil {
			return nil, fmt.Errorf("error checking for series %s/%s: %w", siteID, parameterCode, err)
		}
		if !exists {
			return nil, storage.ErrSeriesNotFound
		}
		return nil, nil
	}

	points := make([]timeseries.TimePoint, len(rows))
	for i, row := range rows {
		points[i] = row.TimePoint()
	}
	return points, nil
}

// SaveSeries upserts points, replacing the value and qualifiers of any
// observation already stored at the same time
func (t *Storage) SaveSeries(ctx context.Context, siteID, parameterCode string, points []timeseries.TimePoint) error {
	if len(points) == 0 {
		return nil
	}

	rows := make([]database.Observation, len(points))
	for i, p := range points {
		rows[i] = database.NewObservation(siteID, parameterCode, p)
	}

	err := t.TimescaleDBConn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "site_id"}, {Name: "parameter_code"}, {Name: "time"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "qualifiers"}),
		}).
		CreateInBatches(rows, saveBatchSize).Error
	if err != nil {
		log.Error("could not store observations:", err)
		return err
	}
	return nil
}

// Coverage describes each stored series of siteID
func (t *Storage) Coverage(ctx context.Context, siteID string) ([]storage.Coverage, error) {
	var coverage []storage.Coverage
	if err := t.TimescaleDBConn.WithContext(ctx).Raw(coverageSQL, siteID).Scan(&coverage).Error; err != nil {
		return nil, fmt.Errorf("error querying coverage for %s: %w", siteID, err)
	}
	return coverage, nil
}

// Close closes the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CopyObservations bulk-loads rows with COPY through a staging table so
// that rows already present are updated rather than rejected. It returns
// the number of rows copied.
func CopyObservations(ctx context.Context, pool *pgxpool.Pool, rows []database.Observation) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createStagingTableSQL); err != nil {
		return 0, fmt.Errorf("failed to create staging table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"observations_staging"},
		database.ObservationColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return rows[i].CopyRow(), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy observations: %w", err)
	}

	if _, err := tx.Exec(ctx, mergeStagingSQL); err != nil {
		return 0, fmt.Errorf("failed to merge observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit observations: %w", err)
	}
	return copied, nil
}

// ExportFilter selects the observations streamed by ExportObservations. An
// empty SiteID or ParameterCode matches every series.
type ExportFilter struct {
	SiteID        string
	ParameterCode string
	Start         time.Time
	End           time.Time
}

// ExportObservations streams the matching rows, ordered by series and time,
// to fn. It returns the number of rows streamed.
func ExportObservations(ctx context.Context, pool *pgxpool.Pool, f ExportFilter, fn func(database.Observation) error) (int64, error) {
	rows, err := pool.Query(ctx, exportSQL, f.SiteID, f.ParameterCode, f.Start, f.End)
	if err != nil {
		return 0, fmt.Errorf("failed to query observations: %w", err)
	}

	var (
		ts         time.Time
		siteID     string
		param      string
		value      *float64
		qualifiers []string
		count      int64
	)
	_, err = pgx.ForEachRow(rows, []any{&ts, &siteID, &param, &value, &qualifiers}, func() error {
		count++
		return fn(database.NewObservation(siteID, param, timeseries.TimePoint{
			Time:       ts.UnixMilli(),
			Value:      value,
			Qualifiers: append([]string(nil), qualifiers...),
		}))
	})
	if err != nil {
		return count, fmt.Errorf("failed to export observations: %w", err)
	}
	return count, nil
}
