// Package app assembles the analysis pipeline, storage backends, and the
// optional results server into one runnable application.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zaphd/plasmaspec/internal/controllers/restserver"
	"github.com/zaphd/plasmaspec/internal/log"
	"github.com/zaphd/plasmaspec/internal/managers"
	"github.com/zaphd/plasmaspec/internal/session"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
	"github.com/zaphd/plasmaspec/pkg/frame"
)

// App represents the main application
type App struct {
	cfg        *config.ConfigData
	decoder    frame.Decoder
	framePaths []string
	logger     *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, decoder frame.Decoder, framePaths []string, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:        cfg,
		decoder:    decoder,
		framePaths: framePaths,
		logger:     logger,
	}
}

// Run executes the analysis session, fans results out to the configured
// storage backends, and (when configured) keeps the results REST server up
// until shutdown.  The completed records are returned for console output.
func (a *App) Run(ctx context.Context) ([]types.ShotRecord, error) {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Let an interrupt stop the run between frames; completed records are
	// retained either way.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			log.Info("shutdown signal received, finishing in-flight frames...")
			cancel()
		case <-ctx.Done():
		}
	}()

	storageManager, err := managers.NewStorageManager(ctx, &wg, a.cfg)
	if err != nil {
		return nil, err
	}

	sess := session.New(a.cfg, a.decoder, a.logger)

	store := restserver.NewRecordStore(sess.RunID())
	if a.cfg.HTTP != nil && a.cfg.HTTP.ListenAddr != "" {
		ctrl, err := restserver.NewController(ctx, &wg, a.cfg.HTTP, store, a.logger)
		if err != nil {
			return nil, err
		}
		if err := ctrl.StartController(); err != nil {
			return nil, err
		}
	}

	records, runErr := sess.Run(ctx, a.framePaths)
	for _, rec := range records {
		store.Append(rec)
		storageManager.StoreRecord(rec)
	}

	if a.cfg.HTTP != nil && a.cfg.HTTP.ListenAddr != "" && runErr == nil {
		log.Info("analysis complete, results server still running; interrupt to exit")
		<-ctx.Done()
	}

	// Give the storage engines a moment to drain their buffered rows
	// before cancelling their contexts.
	storageManager.WaitForDrain(2 * time.Second)

	cancel()
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return records, runErr
}
