package timescaledb

import (
	"context"
	"time"

	"github.com/chrissnell/hydrograph/internal/storage"
)

// CheckHealth pings the database and runs a trivial query
func (t *Storage) CheckHealth(ctx context.Context) *storage.HealthData {
	health := &storage.HealthData{
		LastCheck: time.Now(),
		Status:    storage.StatusHealthy,
		Message:   "TimescaleDB operational - ping: OK, query test: OK",
	}

	fail := func(message string, err error) *storage.HealthData {
		health.Status = storage.StatusUnhealthy
		health.Message = message
		health.Error = err.Error()
		return health
	}

	if t.TimescaleDBConn == nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "No database connection"
		return health
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fail("Failed to get underlying database connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fail("Database ping failed", err)
	}

	var result int
	if err := t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return fail("Database query test failed", err)
	}

	return health
}
