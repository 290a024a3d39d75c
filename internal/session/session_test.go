package session

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/zaphd/plasmaspec/pkg/config"
	"github.com/zaphd/plasmaspec/pkg/spe"
)

// writeSyntheticFrames generates SPE files carrying one known Gaussian line
// whose center drifts a little from shot to shot.
func writeSyntheticFrames(t *testing.T, dir string, count int) []string {
	t.Helper()

	const (
		width  = 200
		height = 16
	)
	wavelength := make([]float64, width)
	for i := range wavelength {
		wavelength[i] = 229.0 + 0.007*float64(i)
	}

	paths := make([]string, count)
	for n := 0; n < count; n++ {
		center := 229.687 + 0.001*float64(n)
		data := make([][]float64, height)
		for row := range data {
			data[row] = make([]float64, width)
			for col := range data[row] {
				d := (wavelength[col] - center) / 0.05
				data[row][col] = 40 + 800*math.Exp(-0.5*d*d)
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("shot%04d.SPE", n))
		if err := spe.Encode(path, data, wavelength, 0.001); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		paths[n] = path
	}
	return paths
}

func testConfig() *config.ConfigData {
	cfg := &config.ConfigData{
		ROIs: []config.ROIData{
			{Name: "core", RowStart: 4, RowStop: 12},
			{Name: "edge", RowStart: 0, RowStop: 4},
		},
		Reduction: config.ReductionData{
			Mode:             "mean",
			BackgroundMethod: "edge-mean",
			EdgeSamples:      5,
		},
		Fit: config.FitData{
			Components:     1,
			WindowLow:      229.3,
			WindowHigh:     230.1,
			RestWavelength: 229.687,
		},
		Session: config.SessionData{Workers: 3},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func TestRunProducesOrderedRecords(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 5)

	s := New(testConfig(), spe.Decoder{}, zap.NewNop().Sugar())
	records, err := s.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(records) != len(paths) {
		t.Fatalf("got %d records, want %d", len(records), len(paths))
	}
	for i, rec := range records {
		if rec.ShotIndex != i {
			t.Errorf("record %d has ShotIndex %d", i, rec.ShotIndex)
		}
		if rec.SourcePath != paths[i] {
			t.Errorf("record %d has SourcePath %q, want %q", i, rec.SourcePath, paths[i])
		}
		if rec.RunID != s.RunID() {
			t.Errorf("record %d has RunID %q, want %q", i, rec.RunID, s.RunID())
		}
		if len(rec.Outcomes) != 2 {
			t.Fatalf("record %d has %d outcomes, want 2", i, len(rec.Outcomes))
		}
		for _, o := range rec.Outcomes {
			if o.Failed {
				t.Errorf("record %d roi %s failed: %s", i, o.ROIName, o.FailReason)
				continue
			}
			if o.Result == nil {
				t.Fatalf("record %d roi %s has no fit result", i, o.ROIName)
			}
			center := o.Result.Primary().Center
			wantCenter := 229.687 + 0.001*float64(i)
			if math.Abs(center-wantCenter) > 5e-4 {
				t.Errorf("record %d roi %s center = %.5f, want %.5f", i, o.ROIName, center, wantCenter)
			}
			if o.TemperatureEV <= 0 {
				t.Errorf("record %d roi %s temperature = %v, want positive", i, o.ROIName, o.TemperatureEV)
			}
		}
	}

	// Shot 0 sits at the rest wavelength; its flow velocity must be small.
	v0 := records[0].Outcomes[0].VelocityMS
	if math.Abs(v0) > 2000 {
		t.Errorf("shot 0 velocity = %.0f m/s, want near zero", v0)
	}
	// Later shots are red-shifted.
	v4 := records[4].Outcomes[0].VelocityMS
	if v4 < 1000 {
		t.Errorf("shot 4 velocity = %.0f m/s, want a clear red shift", v4)
	}
}

func TestRunIsolatesBadFrames(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 5)

	// Corrupt the middle frame.
	if err := os.WriteFile(paths[2], []byte("not an spe file"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(testConfig(), spe.Decoder{}, zap.NewNop().Sugar())
	records, err := s.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for _, o := range records[2].Outcomes {
		if !o.Failed {
			t.Errorf("roi %s of the corrupt frame did not fail", o.ROIName)
		}
		if o.FailReason == "" {
			t.Errorf("roi %s failure carries no reason", o.ROIName)
		}
	}
	for _, i := range []int{0, 1, 3, 4} {
		for _, o := range records[i].Outcomes {
			if o.Failed {
				t.Errorf("record %d roi %s failed: %s", i, o.ROIName, o.FailReason)
			}
		}
	}
}

func TestRunIsolatesBadROI(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 2)

	cfg := testConfig()
	// Second ROI reaches past the frame's 16 rows.
	cfg.ROIs[1] = config.ROIData{Name: "oob", RowStart: 10, RowStop: 40}

	s := New(cfg, spe.Decoder{}, zap.NewNop().Sugar())
	records, err := s.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, rec := range records {
		if rec.Outcomes[0].Failed {
			t.Errorf("record %d roi core failed: %s", i, rec.Outcomes[0].FailReason)
		}
		if !rec.Outcomes[1].Failed {
			t.Errorf("record %d roi oob should have failed", i)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 4)
	cfg := testConfig()

	first, err := New(cfg, spe.Decoder{}, zap.NewNop().Sugar()).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := New(cfg, spe.Decoder{}, zap.NewNop().Sugar()).Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("record counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		for j := range first[i].Outcomes {
			a, b := first[i].Outcomes[j], second[i].Outcomes[j]
			if a.Failed != b.Failed || a.TemperatureEV != b.TemperatureEV || a.VelocityMS != b.VelocityMS {
				t.Errorf("record %d outcome %d differs between runs", i, j)
			}
		}
	}
}

func TestRunCheckpointResume(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 3)

	cfg := testConfig()
	cfg.Session.CheckpointPath = filepath.Join(dir, "run.checkpoint")

	first := New(cfg, spe.Decoder{}, zap.NewNop().Sugar())
	records, err := first.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if _, err := os.Stat(cfg.Session.CheckpointPath); err != nil {
		t.Fatalf("checkpoint not written: %v", err)
	}

	// Remove the source files; a resumed run must still produce records by
	// reusing the checkpoint.
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			t.Fatal(err)
		}
	}

	second := New(cfg, spe.Decoder{}, zap.NewNop().Sugar())
	resumed, err := second.Run(context.Background(), paths)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if len(resumed) != 3 {
		t.Fatalf("got %d resumed records, want 3", len(resumed))
	}
	for i, rec := range resumed {
		if rec.RunID != second.RunID() {
			t.Errorf("resumed record %d carries RunID %q, want the new run's %q", i, rec.RunID, second.RunID())
		}
		for _, o := range rec.Outcomes {
			if o.Failed {
				t.Errorf("resumed record %d roi %s failed: %s", i, o.ROIName, o.FailReason)
			}
		}
		if records[i].Outcomes[0].TemperatureEV != rec.Outcomes[0].TemperatureEV {
			t.Errorf("resumed record %d temperature differs from original", i)
		}
	}
}

func TestRunCancellation(t *testing.T) {
	dir := t.TempDir()
	paths := writeSyntheticFrames(t, dir, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(testConfig(), spe.Decoder{}, zap.NewNop().Sugar())
	records, err := s.Run(ctx, paths)
	if err != context.Canceled {
		t.Fatalf("got error %v, want context.Canceled", err)
	}
	if len(records) > len(paths) {
		t.Fatalf("got %d records for %d paths", len(records), len(paths))
	}
}
