// Package types holds the shared result records passed between the
// analysis session, storage backends, and controllers.
package types

import (
	"time"

	"github.com/zaphd/plasmaspec/pkg/gaussfit"
)

// FitOutcome is the result slot for one (frame, ROI) pair.  Failed slots
// carry the failure reason instead of a fit; the session never drops a
// slot, so downstream consumers can audit data loss per shot.
type FitOutcome struct {
	ROIName string `msgpack:"roi"`

	Failed     bool   `msgpack:"failed"`
	FailReason string `msgpack:"fail_reason,omitempty"`

	Result *gaussfit.Result `msgpack:"result,omitempty"`

	// Derived from the primary fitted component with the configured ion
	// mass and rest wavelength.
	TemperatureEV float64 `msgpack:"temperature_ev"`
	VelocityMS    float64 `msgpack:"velocity_ms"`
}

// ShotRecord aggregates one session step: every configured ROI's outcome
// for a single frame.  Records are append-only; the session emits exactly
// one per input frame, in input order.
type ShotRecord struct {
	RunID      string       `msgpack:"run_id"`
	ShotIndex  int          `msgpack:"shot_index"`
	ShotNumber string       `msgpack:"shot_number"`
	SourcePath string       `msgpack:"source_path"`
	Timestamp  time.Time    `msgpack:"timestamp"`
	Outcomes   []FitOutcome `msgpack:"outcomes"`
}

// ResultRow is the flat storage representation: one row per (shot, ROI)
// pair.  Component parameters are flattened into numbered columns; fits
// with more than three components keep their full parameter set only in
// the checkpoint and CSV outputs.
type ResultRow struct {
	Time       time.Time `gorm:"column:time"`
	RunID      string    `gorm:"column:runid"`
	ShotIndex  int       `gorm:"column:shotindex"`
	ShotNumber string    `gorm:"column:shotnumber"`
	ROIName    string    `gorm:"column:roiname"`

	Failed     bool   `gorm:"column:failed"`
	FailReason string `gorm:"column:failreason"`

	NComponents int     `gorm:"column:ncomponents"`
	Converged   bool    `gorm:"column:converged"`
	ChiSquare   float64 `gorm:"column:chisquare"`

	TemperatureEV float64 `gorm:"column:temperatureev"`
	VelocityMS    float64 `gorm:"column:velocityms"`

	Baseline       float64 `gorm:"column:baseline"`
	BaselineStderr float64 `gorm:"column:baselinestderr"`

	Amplitude1       float64 `gorm:"column:amplitude1"`
	Center1          float64 `gorm:"column:center1"`
	Sigma1           float64 `gorm:"column:sigma1"`
	AmplitudeStderr1 float64 `gorm:"column:amplitudestderr1"`
	CenterStderr1    float64 `gorm:"column:centerstderr1"`
	SigmaStderr1     float64 `gorm:"column:sigmastderr1"`

	Amplitude2       float64 `gorm:"column:amplitude2"`
	Center2          float64 `gorm:"column:center2"`
	Sigma2           float64 `gorm:"column:sigma2"`
	AmplitudeStderr2 float64 `gorm:"column:amplitudestderr2"`
	CenterStderr2    float64 `gorm:"column:centerstderr2"`
	SigmaStderr2     float64 `gorm:"column:sigmastderr2"`

	Amplitude3       float64 `gorm:"column:amplitude3"`
	Center3          float64 `gorm:"column:center3"`
	Sigma3           float64 `gorm:"column:sigma3"`
	AmplitudeStderr3 float64 `gorm:"column:amplitudestderr3"`
	CenterStderr3    float64 `gorm:"column:centerstderr3"`
	SigmaStderr3     float64 `gorm:"column:sigmastderr3"`
}

// TableName customizes the table name used by GORM.
func (ResultRow) TableName() string {
	return "spectro_results"
}

// Rows flattens a shot record into storage rows, one per ROI outcome.
func (r ShotRecord) Rows() []ResultRow {
	rows := make([]ResultRow, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		row := ResultRow{
			Time:       r.Timestamp,
			RunID:      r.RunID,
			ShotIndex:  r.ShotIndex,
			ShotNumber: r.ShotNumber,
			ROIName:    o.ROIName,
			Failed:     o.Failed,
			FailReason: o.FailReason,
		}
		if o.Result != nil {
			row.NComponents = len(o.Result.Components)
			row.Converged = o.Result.Converged
			row.ChiSquare = o.Result.ChiSquare
			row.TemperatureEV = o.TemperatureEV
			row.VelocityMS = o.VelocityMS
			row.Baseline = o.Result.Baseline
			row.BaselineStderr = o.Result.BaselineStderr

			for i, c := range o.Result.Components {
				switch i {
				case 0:
					row.Amplitude1, row.Center1, row.Sigma1 = c.Amplitude, c.Center, c.Sigma
					row.AmplitudeStderr1, row.CenterStderr1, row.SigmaStderr1 = c.AmplitudeStderr, c.CenterStderr, c.SigmaStderr
				case 1:
					row.Amplitude2, row.Center2, row.Sigma2 = c.Amplitude, c.Center, c.Sigma
					row.AmplitudeStderr2, row.CenterStderr2, row.SigmaStderr2 = c.AmplitudeStderr, c.CenterStderr, c.SigmaStderr
				case 2:
					row.Amplitude3, row.Center3, row.Sigma3 = c.Amplitude, c.Center, c.Sigma
					row.AmplitudeStderr3, row.CenterStderr3, row.SigmaStderr3 = c.AmplitudeStderr, c.CenterStderr, c.SigmaStderr
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}
