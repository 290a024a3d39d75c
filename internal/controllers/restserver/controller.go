// Package restserver serves completed analysis results over HTTP so the
// control room can watch a campaign without querying the database.
package restserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/zaphd/plasmaspec/internal/log"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	Server http.Server
	store  *RecordStore
	logger *zap.SugaredLogger
}

// RecordStore is the in-memory window of recently completed shot records
// that the HTTP handlers serve from.
type RecordStore struct {
	mu      sync.RWMutex
	records []types.ShotRecord
	runID   string
	started time.Time
}

// NewRecordStore creates an empty record store for the given run.
func NewRecordStore(runID string) *RecordStore {
	return &RecordStore{runID: runID, started: time.Now()}
}

// Append adds a completed record.
func (rs *RecordStore) Append(rec types.ShotRecord) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.records = append(rs.records, rec)
}

// Snapshot returns a copy of the stored records.
func (rs *RecordStore) Snapshot() []types.ShotRecord {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]types.ShotRecord, len(rs.records))
	copy(out, rs.records)
	return out
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, hc *config.HTTPData, store *RecordStore, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		store:  store,
		logger: logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", ctrl.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/run", ctrl.handleRun).Methods(http.MethodGet)
	router.HandleFunc("/api/results", ctrl.handleResults).Methods(http.MethodGet)
	router.HandleFunc("/api/results/{roi}", ctrl.handleROIResults).Methods(http.MethodGet)

	ctrl.Server = http.Server{
		Addr:    hc.ListenAddr,
		Handler: router,
	}

	return ctrl, nil
}

// StartController starts the HTTP listener and ties its lifetime to the
// controller context.
func (c *Controller) StartController() error {
	log.Infof("starting results REST server on %s", c.Server.Addr)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}
