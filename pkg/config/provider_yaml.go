package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// yamlConfig mirrors ConfigData with yaml tags; it is converted to the
// internal format after parsing.
type yamlConfig struct {
	ROIs []struct {
		Name     string    `yaml:"name"`
		RowStart int       `yaml:"row_start"`
		RowStop  int       `yaml:"row_stop"`
		Weights  []float64 `yaml:"weights,omitempty"`
	} `yaml:"rois"`
	Reduction struct {
		Mode               string  `yaml:"mode,omitempty"`
		BackgroundMethod   string  `yaml:"background_method,omitempty"`
		BackgroundConstant float64 `yaml:"background_constant,omitempty"`
		EdgeSamples        int     `yaml:"edge_samples,omitempty"`
		Normalization      string  `yaml:"normalization,omitempty"`
	} `yaml:"reduction,omitempty"`
	Fit struct {
		Components     int     `yaml:"n_components"`
		WindowLow      float64 `yaml:"window_low"`
		WindowHigh     float64 `yaml:"window_high"`
		RestWavelength float64 `yaml:"rest_wavelength"`
		IonMassKg      float64 `yaml:"ion_mass_kg,omitempty"`
		MaxIterations  int     `yaml:"max_iterations,omitempty"`
		Tolerance      float64 `yaml:"tolerance,omitempty"`
	} `yaml:"fit"`
	Session struct {
		Workers            int    `yaml:"workers,omitempty"`
		RequireConvergence bool   `yaml:"require_convergence,omitempty"`
		CheckpointPath     string `yaml:"checkpoint_path,omitempty"`
	} `yaml:"session,omitempty"`
	Storage struct {
		TimescaleDB *struct {
			ConnectionString string `yaml:"connection_string"`
		} `yaml:"timescaledb,omitempty"`
		SQLite *struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite,omitempty"`
	} `yaml:"storage,omitempty"`
	HTTP *struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"http,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var raw yamlConfig
	err = yaml.Unmarshal(cfgFile, &raw)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		ROIs: make([]ROIData, len(raw.ROIs)),
		Reduction: ReductionData{
			Mode:               raw.Reduction.Mode,
			BackgroundMethod:   raw.Reduction.BackgroundMethod,
			BackgroundConstant: raw.Reduction.BackgroundConstant,
			EdgeSamples:        raw.Reduction.EdgeSamples,
			Normalization:      raw.Reduction.Normalization,
		},
		Fit: FitData{
			Components:     raw.Fit.Components,
			WindowLow:      raw.Fit.WindowLow,
			WindowHigh:     raw.Fit.WindowHigh,
			RestWavelength: raw.Fit.RestWavelength,
			IonMassKg:      raw.Fit.IonMassKg,
			MaxIterations:  raw.Fit.MaxIterations,
			Tolerance:      raw.Fit.Tolerance,
		},
		Session: SessionData{
			Workers:            raw.Session.Workers,
			RequireConvergence: raw.Session.RequireConvergence,
			CheckpointPath:     raw.Session.CheckpointPath,
		},
	}

	for i, roi := range raw.ROIs {
		config.ROIs[i] = ROIData{
			Name:     roi.Name,
			RowStart: roi.RowStart,
			RowStop:  roi.RowStop,
			Weights:  roi.Weights,
		}
	}

	if raw.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: raw.Storage.TimescaleDB.ConnectionString}
	}
	if raw.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: raw.Storage.SQLite.Path}
	}
	if raw.HTTP != nil {
		config.HTTP = &HTTPData{ListenAddr: raw.HTTP.ListenAddr}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// GetROIs returns the configured ROI definitions.
func (y *YAMLProvider) GetROIs() ([]ROIData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.ROIs, nil
}

// GetStorageConfig returns the storage configuration section.
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Storage, nil
}

func (y *YAMLProvider) ensureLoaded() error {
	if y.config != nil {
		return nil
	}
	_, err := y.LoadConfig()
	return err
}

// IsReadOnly returns true: YAML configurations are never written back.
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for file-backed configuration.
func (y *YAMLProvider) Close() error {
	return nil
}
