// Package session orchestrates the reduction pipeline across a sequence of
// shots: decode, reduce, fit, and aggregate into shot-indexed records.
package session

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zaphd/plasmaspec/pkg/config"
	"github.com/zaphd/plasmaspec/pkg/frame"
	"github.com/zaphd/plasmaspec/pkg/gaussfit"
	"github.com/zaphd/plasmaspec/pkg/spectrum"

	"github.com/zaphd/plasmaspec/internal/types"
)

// Session runs the decode → reduce → fit pipeline over a frame sequence.
// Frames are processed in parallel but the output sequence is reassembled
// in input order, so a run is deterministic for identical inputs and
// configuration.
type Session struct {
	cfg     *config.ConfigData
	decoder frame.Decoder
	logger  *zap.SugaredLogger
	runID   string
}

// New creates a session.  Each session carries a fresh run ID that tags
// every record it produces.
func New(cfg *config.ConfigData, decoder frame.Decoder, logger *zap.SugaredLogger) *Session {
	return &Session{
		cfg:     cfg,
		decoder: decoder,
		logger:  logger,
		runID:   uuid.New().String(),
	}
}

// RunID returns the session's run identifier.
func (s *Session) RunID() string {
	return s.runID
}

// Run processes the given frame files in input order and returns one
// ShotRecord per file.  Per-frame failures (decode errors, bad ROIs, empty
// fit windows) are isolated into failure markers inside the record; no
// single bad frame aborts the batch.  On context cancellation the records
// completed so far are returned along with the context error.
func (s *Session) Run(ctx context.Context, paths []string) ([]types.ShotRecord, error) {
	checkpoint, err := s.loadCheckpoint()
	if err != nil {
		s.logger.Warnf("ignoring unreadable checkpoint: %v", err)
		checkpoint = nil
	}

	workers := s.cfg.Session.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}
	if workers < 1 {
		workers = 1
	}

	s.logger.Infof("starting analysis run %s: %d frames, %d ROIs, %d workers",
		s.runID, len(paths), len(s.cfg.ROIs), workers)

	records := make([]types.ShotRecord, len(paths))
	done := make([]bool, len(paths))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				records[idx] = s.processPath(idx, paths[idx], checkpoint)
				done[idx] = true
			}
		}()
	}

	interrupted := false
dispatch:
	for idx := range paths {
		select {
		case <-ctx.Done():
			interrupted = true
			break dispatch
		default:
		}
		select {
		case jobs <- idx:
		case <-ctx.Done():
			interrupted = true
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	completed := make([]types.ShotRecord, 0, len(paths))
	for idx, rec := range records {
		if done[idx] {
			completed = append(completed, rec)
		}
	}

	if err := s.saveCheckpoint(completed); err != nil {
		s.logger.Warnf("could not write checkpoint: %v", err)
	}

	if interrupted {
		s.logger.Warnf("run %s interrupted: %d of %d frames completed", s.runID, len(completed), len(paths))
		return completed, ctx.Err()
	}

	s.logger.Infof("run %s complete: %d records", s.runID, len(completed))
	return completed, nil
}

// processPath produces the record for one frame file, consulting the
// checkpoint first so resumed campaigns skip already-analyzed shots.
func (s *Session) processPath(idx int, path string, checkpoint map[string]types.ShotRecord) types.ShotRecord {
	if prev, ok := checkpoint[path]; ok {
		s.logger.Debugf("frame %d (%s): reusing checkpointed record", idx, path)
		prev.ShotIndex = idx
		prev.RunID = s.runID
		return prev
	}

	fr, err := s.decoder.Decode(path)
	if err != nil {
		s.logger.Warnf("frame %d (%s): decode failed: %v", idx, path, err)
		return s.failedRecord(idx, path, err)
	}

	rec := types.ShotRecord{
		RunID:      s.runID,
		ShotIndex:  idx,
		ShotNumber: fr.ShotNumber,
		SourcePath: path,
		Timestamp:  fr.Timestamp,
	}
	for _, roi := range s.cfg.ROIs {
		rec.Outcomes = append(rec.Outcomes, s.analyzeROI(fr, roi))
	}
	return rec
}

// failedRecord fills every ROI slot with the same failure so the output
// table still carries one row per configured ROI for this shot.
func (s *Session) failedRecord(idx int, path string, cause error) types.ShotRecord {
	rec := types.ShotRecord{
		RunID:      s.runID,
		ShotIndex:  idx,
		SourcePath: path,
	}
	for _, roi := range s.cfg.ROIs {
		rec.Outcomes = append(rec.Outcomes, types.FitOutcome{
			ROIName:    roi.Name,
			Failed:     true,
			FailReason: cause.Error(),
		})
	}
	return rec
}

// analyzeROI runs reduce → condition → fit for a single ROI of a decoded
// frame.  All failures come back as a marked outcome, never an error.
func (s *Session) analyzeROI(fr *frame.RawFrame, roi config.ROIData) types.FitOutcome {
	outcome := types.FitOutcome{ROIName: roi.Name}

	fail := func(stage string, err error) types.FitOutcome {
		outcome.Failed = true
		outcome.FailReason = fmt.Sprintf("%s: %v", stage, err)
		return outcome
	}

	mode := spectrum.Mode(s.cfg.Reduction.Mode)
	if mode == "" {
		mode = spectrum.ModeSum
	}
	spec, err := spectrum.Reduce(fr, frame.ROI{
		Name:     roi.Name,
		RowStart: roi.RowStart,
		RowStop:  roi.RowStop,
		Weights:  roi.Weights,
	}, mode)
	if err != nil {
		return fail("reduce", err)
	}

	spec, err = spec.SubtractBackground(
		spectrum.BackgroundMethod(s.cfg.Reduction.BackgroundMethod),
		s.cfg.Reduction.BackgroundConstant,
		s.cfg.Reduction.EdgeSamples,
	)
	if err != nil {
		return fail("background", err)
	}

	spec, err = spec.Normalize(spectrum.Normalization(s.cfg.Reduction.Normalization))
	if err != nil {
		return fail("normalize", err)
	}

	result, err := gaussfit.Fit(spec, gaussfit.Config{
		WindowLow:     s.cfg.Fit.WindowLow,
		WindowHigh:    s.cfg.Fit.WindowHigh,
		Components:    s.cfg.Fit.Components,
		MaxIterations: s.cfg.Fit.MaxIterations,
		Tolerance:     s.cfg.Fit.Tolerance,
	})
	if err != nil {
		return fail("fit", err)
	}
	if !result.Converged && s.cfg.Session.RequireConvergence {
		outcome.Result = result
		return fail("fit", fmt.Errorf("no convergence after %d iterations", result.Iterations))
	}

	primary := result.Primary()
	outcome.Result = result
	outcome.TemperatureEV = primary.IonTemperatureEV(s.cfg.Fit.IonMassKg)
	outcome.VelocityMS = primary.Velocity(s.cfg.Fit.RestWavelength)
	return outcome
}
