package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/hydrograph/internal/log"
	"github.com/chrissnell/hydrograph/internal/storage"
	"github.com/chrissnell/hydrograph/internal/storage/timescaledb"
	"github.com/chrissnell/hydrograph/pkg/config"
)

const healthCheckInterval = 60 * time.Second

// StorageManager holds the active observation store and the health of the
// backend behind it
type StorageManager struct {
	Store  storage.ObservationStore
	Health *storage.HealthManager
}

// NewStorageManager connects the configured storage backend. Without one,
// observations are kept in memory and lost on exit.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData) (*StorageManager, error) {
	s := &StorageManager{Health: storage.NewHealthManager()}

	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, wg, "timescaledb", c); err != nil {
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		return s, nil
	}

	log.Warn("no storage backend configured; serving from an empty in-memory store")
	if err := s.AddEngine(ctx, wg, "memory", c); err != nil {
		return nil, err
	}
	return s, nil
}

// AddEngine makes the engineName backend the active store and starts
// monitoring its health
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, c *config.ConfigData) error {
	switch engineName {
	case "timescaledb":
		ts, err := timescaledb.New(ctx, c.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return err
		}
		s.Store = ts
		storage.StartHealthMonitor(ctx, wg, s.Health, engineName, ts, healthCheckInterval)

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			if err := ts.Close(); err != nil {
				log.Errorf("error closing TimescaleDB connection: %v", err)
			}
		}()
	case "memory":
		mem := storage.NewMemoryStore()
		s.Store = mem
		storage.StartHealthMonitor(ctx, wg, s.Health, engineName, mem, healthCheckInterval)
	default:
		return fmt.Errorf("unknown storage backend: %s", engineName)
	}

	return nil
}
