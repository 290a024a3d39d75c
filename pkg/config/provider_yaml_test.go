package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zaphd/plasmaspec/pkg/gaussfit"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
rois:
  - name: core
    row_start: 10
    row_stop: 20
  - name: edge
    row_start: 40
    row_stop: 44
    weights: [0.5, 1.0, 1.0, 0.5]
reduction:
  mode: mean
  background_method: edge-mean
  edge_samples: 8
  normalization: peak
fit:
  n_components: 2
  window_low: 229.4
  window_high: 230.0
  rest_wavelength: 229.687
session:
  workers: 4
  require_convergence: true
  checkpoint_path: /tmp/run.checkpoint
storage:
  sqlite:
    path: /tmp/results.db
http:
  listen_addr: ":8080"
`

func TestYAMLProviderLoadConfig(t *testing.T) {
	p := NewYAMLProvider(writeConfig(t, validYAML))
	defer p.Close()

	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.ROIs) != 2 {
		t.Fatalf("got %d ROIs, want 2", len(cfg.ROIs))
	}
	if cfg.ROIs[0].Name != "core" || cfg.ROIs[0].RowStart != 10 || cfg.ROIs[0].RowStop != 20 {
		t.Errorf("unexpected first ROI: %+v", cfg.ROIs[0])
	}
	if len(cfg.ROIs[1].Weights) != 4 {
		t.Errorf("got %d weights, want 4", len(cfg.ROIs[1].Weights))
	}

	if cfg.Reduction.Mode != "mean" || cfg.Reduction.BackgroundMethod != "edge-mean" {
		t.Errorf("unexpected reduction config: %+v", cfg.Reduction)
	}
	if cfg.Reduction.EdgeSamples != 8 {
		t.Errorf("EdgeSamples = %d, want 8", cfg.Reduction.EdgeSamples)
	}

	if cfg.Fit.Components != 2 {
		t.Errorf("Components = %d, want 2", cfg.Fit.Components)
	}
	if cfg.Fit.RestWavelength != 229.687 {
		t.Errorf("RestWavelength = %v, want 229.687", cfg.Fit.RestWavelength)
	}

	// Defaults filled in by validation.
	if cfg.Fit.IonMassKg != gaussfit.DefaultIonMass {
		t.Errorf("IonMassKg = %v, want default %v", cfg.Fit.IonMassKg, gaussfit.DefaultIonMass)
	}
	if cfg.Fit.MaxIterations != gaussfit.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want default %d", cfg.Fit.MaxIterations, gaussfit.DefaultMaxIterations)
	}
	if cfg.Fit.Tolerance != gaussfit.DefaultTolerance {
		t.Errorf("Tolerance = %v, want default %v", cfg.Fit.Tolerance, gaussfit.DefaultTolerance)
	}

	if cfg.Session.Workers != 4 || !cfg.Session.RequireConvergence {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "/tmp/results.db" {
		t.Errorf("unexpected sqlite storage config: %+v", cfg.Storage.SQLite)
	}
	if cfg.Storage.TimescaleDB != nil {
		t.Error("TimescaleDB config should be nil when absent")
	}
	if cfg.HTTP == nil || cfg.HTTP.ListenAddr != ":8080" {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}

	if !p.IsReadOnly() {
		t.Error("YAML provider must be read-only")
	}
}

func TestYAMLProviderSectionGetters(t *testing.T) {
	p := NewYAMLProvider(writeConfig(t, validYAML))
	defer p.Close()

	rois, err := p.GetROIs()
	if err != nil {
		t.Fatalf("GetROIs: %v", err)
	}
	if len(rois) != 2 {
		t.Errorf("got %d ROIs, want 2", len(rois))
	}

	storage, err := p.GetStorageConfig()
	if err != nil {
		t.Fatalf("GetStorageConfig: %v", err)
	}
	if storage.SQLite == nil {
		t.Error("expected sqlite storage section")
	}
}

func TestYAMLProviderRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no rois",
			body: `
fit:
  n_components: 1
  window_low: 1
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "unnamed roi",
			body: `
rois:
  - row_start: 0
    row_stop: 4
fit:
  n_components: 1
  window_low: 1
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "inverted roi rows",
			body: `
rois:
  - name: bad
    row_start: 6
    row_stop: 2
fit:
  n_components: 1
  window_low: 1
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "weight count mismatch",
			body: `
rois:
  - name: bad
    row_start: 0
    row_stop: 4
    weights: [1.0, 1.0]
fit:
  n_components: 1
  window_low: 1
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "empty fit window",
			body: `
rois:
  - name: core
    row_start: 0
    row_stop: 4
fit:
  n_components: 1
  window_low: 2
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "missing rest wavelength",
			body: `
rois:
  - name: core
    row_start: 0
    row_stop: 4
fit:
  n_components: 1
  window_low: 1
  window_high: 2
`,
		},
		{
			name: "no components",
			body: `
rois:
  - name: core
    row_start: 0
    row_stop: 4
fit:
  window_low: 1
  window_high: 2
  rest_wavelength: 1
`,
		},
		{
			name: "not yaml",
			body: `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewYAMLProvider(writeConfig(t, tt.body))
			defer p.Close()
			if _, err := p.LoadConfig(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	p := NewYAMLProvider(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := p.LoadConfig(); err == nil {
		t.Error("expected an error for a missing file")
	}
}
