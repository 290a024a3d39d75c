// Package managers wires configured backends into running components.
package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zaphd/plasmaspec/internal/storage"
	"github.com/zaphd/plasmaspec/internal/storage/sqlite"
	"github.com/zaphd/plasmaspec/internal/storage/timescaledb"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines        []StorageEngine
	RowDistributor chan types.ResultRow
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing result rows to the engine
type StorageEngine struct {
	Engine storage.Engine
	C      chan<- types.ResultRow
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData) (*StorageManager, error) {
	s := StorageManager{
		RowDistributor: make(chan types.ResultRow, 20),
	}

	go s.startRowDistributor(ctx, wg)

	if cfg.Storage.TimescaleDB != nil && cfg.Storage.TimescaleDB.ConnectionString != "" {
		engine, err := timescaledb.New(ctx, cfg.Storage.TimescaleDB)
		if err != nil {
			return &s, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
		s.addEngine(ctx, wg, engine)
	}

	if cfg.Storage.SQLite != nil && cfg.Storage.SQLite.Path != "" {
		engine, err := sqlite.New(ctx, cfg.Storage.SQLite)
		if err != nil {
			return &s, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
		s.addEngine(ctx, wg, engine)
	}

	return &s, nil
}

func (s *StorageManager) addEngine(ctx context.Context, wg *sync.WaitGroup, engine storage.Engine) {
	se := StorageEngine{Engine: engine}
	se.C = engine.StartStorageEngine(ctx, wg)
	s.Engines = append(s.Engines, se)
}

// StoreRecord fans a shot record's flattened rows out to every backend.
func (s *StorageManager) StoreRecord(rec types.ShotRecord) {
	for _, row := range rec.Rows() {
		s.RowDistributor <- row
	}
}

// WaitForDrain blocks until the distributor and engine channels are empty
// or the timeout elapses.  Storage writes are fire-and-forget during a run;
// this is the shutdown barrier that keeps the tail of a batch from being
// dropped.
func (s *StorageManager) WaitForDrain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pending := len(s.RowDistributor)
		for _, e := range s.Engines {
			pending += len(e.C)
		}
		if pending == 0 {
			// One more beat for rows already handed to a backend.
			time.Sleep(50 * time.Millisecond)
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// startRowDistributor receives result rows and fans them out to the
// various storage backends
func (s *StorageManager) startRowDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-s.RowDistributor:
			for _, e := range s.Engines {
				e.C <- r
			}
		case <-ctx.Done():
			return
		}
	}
}
