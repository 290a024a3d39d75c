// Package sqlite stores result rows in a local SQLite file, the usual
// choice on lab machines with no database server nearby.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/zaphd/plasmaspec/internal/log"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
)

// Storage holds the connection for a SQLite storage backend
type Storage struct {
	db *sql.DB
}

// StartStorageEngine creates a goroutine loop to receive result rows and
// write them to the SQLite file
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.ResultRow {
	log.Info("starting SQLite storage engine...")
	rowChan := make(chan types.ResultRow, 10)
	go s.processRows(ctx, wg, rowChan)
	return rowChan
}

func (s *Storage) processRows(ctx context.Context, wg *sync.WaitGroup, rchan <-chan types.ResultRow) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case r := <-rchan:
			if err := s.StoreRow(r); err != nil {
				log.Error("could not store result row:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping result processor")
			s.db.Close()
			return
		}
	}
}

// StoreRow inserts one flattened result row.
func (s *Storage) StoreRow(r types.ResultRow) error {
	_, err := s.db.Exec(insertRowSQL,
		r.Time, r.RunID, r.ShotIndex, r.ShotNumber, r.ROIName,
		r.Failed, r.FailReason,
		r.NComponents, r.Converged, r.ChiSquare,
		r.TemperatureEV, r.VelocityMS,
		r.Baseline, r.BaselineStderr,
		r.Amplitude1, r.Center1, r.Sigma1, r.AmplitudeStderr1, r.CenterStderr1, r.SigmaStderr1,
		r.Amplitude2, r.Center2, r.Sigma2, r.AmplitudeStderr2, r.CenterStderr2, r.SigmaStderr2,
		r.Amplitude3, r.Center3, r.Sigma3, r.AmplitudeStderr3, r.CenterStderr3, r.SigmaStderr3,
	)
	return err
}

// New sets up a new SQLite storage backend
func New(ctx context.Context, c *config.SQLiteData) (*Storage, error) {
	db, err := sql.Open("sqlite", c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create results table: %w", err)
	}

	return &Storage{db: db}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS spectro_results (
	time timestamp,
	runid text,
	shotindex integer,
	shotnumber text,
	roiname text,
	failed boolean,
	failreason text,
	ncomponents integer,
	converged boolean,
	chisquare real,
	temperatureev real,
	velocityms real,
	baseline real,
	baselinestderr real,
	amplitude1 real, center1 real, sigma1 real,
	amplitudestderr1 real, centerstderr1 real, sigmastderr1 real,
	amplitude2 real, center2 real, sigma2 real,
	amplitudestderr2 real, centerstderr2 real, sigmastderr2 real,
	amplitude3 real, center3 real, sigma3 real,
	amplitudestderr3 real, centerstderr3 real, sigmastderr3 real
);`

const insertRowSQL = `
INSERT INTO spectro_results VALUES (
	?, ?, ?, ?, ?,
	?, ?,
	?, ?, ?,
	?, ?,
	?, ?,
	?, ?, ?, ?, ?, ?,
	?, ?, ?, ?, ?, ?,
	?, ?, ?, ?, ?, ?
);`
