// Package config defines the analysis configuration model and its
// providers.  Configuration always arrives as an explicit value passed into
// the session; nothing in the pipeline consults mutable package state.
package config

import (
	"fmt"

	"github.com/zaphd/plasmaspec/pkg/gaussfit"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetROIs() ([]ROIData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData is the complete analysis configuration.
type ConfigData struct {
	ROIs      []ROIData     `json:"rois"`
	Reduction ReductionData `json:"reduction"`
	Fit       FitData       `json:"fit"`
	Session   SessionData   `json:"session,omitempty"`
	Storage   StorageData   `json:"storage,omitempty"`
	HTTP      *HTTPData     `json:"http,omitempty"`
}

// ROIData names a band of spatial rows to reduce into one spectrum.
type ROIData struct {
	Name     string    `json:"name"`
	RowStart int       `json:"row_start"`
	RowStop  int       `json:"row_stop"`
	Weights  []float64 `json:"weights,omitempty"`
}

// ReductionData configures spatial reduction and spectrum conditioning.
type ReductionData struct {
	Mode               string  `json:"mode,omitempty"`
	BackgroundMethod   string  `json:"background_method,omitempty"`
	BackgroundConstant float64 `json:"background_constant,omitempty"`
	EdgeSamples        int     `json:"edge_samples,omitempty"`
	Normalization      string  `json:"normalization,omitempty"`
}

// FitData configures the line-shape fit and the derived physics.
type FitData struct {
	Components     int     `json:"n_components"`
	WindowLow      float64 `json:"window_low"`
	WindowHigh     float64 `json:"window_high"`
	RestWavelength float64 `json:"rest_wavelength"`
	IonMassKg      float64 `json:"ion_mass_kg,omitempty"`
	MaxIterations  int     `json:"max_iterations,omitempty"`
	Tolerance      float64 `json:"tolerance,omitempty"`
}

// SessionData configures run-level behavior.
type SessionData struct {
	Workers int `json:"workers,omitempty"`
	// RequireConvergence treats non-converged fits as failed slots.
	RequireConvergence bool `json:"require_convergence,omitempty"`
	// CheckpointPath enables msgpack checkpointing of completed shot
	// records so an interrupted campaign can resume.
	CheckpointPath string `json:"checkpoint_path,omitempty"`
}

// StorageData holds the configuration for the result storage backends.
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

// HTTPData configures the results REST endpoint.
type HTTPData struct {
	ListenAddr string `json:"listen_addr"`
}

// Validate checks the invariants the pipeline depends on and fills in
// defaulted fields.
func (c *ConfigData) Validate() error {
	if len(c.ROIs) == 0 {
		return fmt.Errorf("no ROIs configured")
	}
	for _, roi := range c.ROIs {
		if roi.Name == "" {
			return fmt.Errorf("roi with rows [%d, %d) has no name", roi.RowStart, roi.RowStop)
		}
		if roi.RowStart < 0 || roi.RowStop <= roi.RowStart {
			return fmt.Errorf("roi %q has invalid row range [%d, %d)", roi.Name, roi.RowStart, roi.RowStop)
		}
		if len(roi.Weights) != 0 && len(roi.Weights) != roi.RowStop-roi.RowStart {
			return fmt.Errorf("roi %q has %d weights for %d rows", roi.Name, len(roi.Weights), roi.RowStop-roi.RowStart)
		}
	}

	if c.Fit.Components <= 0 {
		return fmt.Errorf("fit needs at least one component, have %d", c.Fit.Components)
	}
	if c.Fit.WindowHigh <= c.Fit.WindowLow {
		return fmt.Errorf("fit window [%g, %g] is empty", c.Fit.WindowLow, c.Fit.WindowHigh)
	}
	if c.Fit.RestWavelength <= 0 {
		return fmt.Errorf("rest wavelength must be positive, have %g", c.Fit.RestWavelength)
	}
	if c.Fit.IonMassKg == 0 {
		c.Fit.IonMassKg = gaussfit.DefaultIonMass
	}
	if c.Fit.IonMassKg < 0 {
		return fmt.Errorf("ion mass must be positive, have %g", c.Fit.IonMassKg)
	}
	if c.Fit.MaxIterations == 0 {
		c.Fit.MaxIterations = gaussfit.DefaultMaxIterations
	}
	if c.Fit.Tolerance == 0 {
		c.Fit.Tolerance = gaussfit.DefaultTolerance
	}
	return nil
}
