// Package timescaledb stores result rows in TimescaleDB via GORM.
package timescaledb

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/zaphd/plasmaspec/internal/database"
	"github.com/zaphd/plasmaspec/internal/log"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
)

// Storage holds the configuration for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// StartStorageEngine creates a goroutine loop to receive result rows and
// send them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.ResultRow {
	log.Info("starting TimescaleDB storage engine...")
	rowChan := make(chan types.ResultRow, 10)
	go t.processRows(ctx, wg, rowChan)
	return rowChan
}

func (t *Storage) processRows(ctx context.Context, wg *sync.WaitGroup, rchan <-chan types.ResultRow) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-rchan:
			if err := t.StoreRow(r); err != nil {
				log.Error("could not store result row:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping result processor")
			return
		}
	}
}

// StoreRow stores a result row in TimescaleDB
func (t *Storage) StoreRow(r types.ResultRow) error {
	return t.TimescaleDBConn.Create(&r).Error
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, c *config.TimescaleDBData) (*Storage, error) {
	var err error
	t := Storage{}

	t.TimescaleDBConn, err = database.CreateConnection(c.ConnectionString)
	if err != nil {
		return nil, err
	}

	log.Info("creating results table...")
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		log.Warn("warning: could not create results table")
		return nil, err
	}

	// TimescaleDB is optional on plain PostgreSQL installs; the table works
	// either way, so hypertable setup is best-effort.
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		log.Warn("could not create TimescaleDB extension, continuing without hypertables:", err)
		return &t, nil
	}
	if err := t.TimescaleDBConn.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		log.Warn("could not create hypertable, continuing with a plain table:", err)
	}

	return &t, nil
}
