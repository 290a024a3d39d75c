package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/zaphd/plasmaspec/pkg/frame"
)

func testFrame(t *testing.T, data [][]float64, wavelength []float64) *frame.RawFrame {
	t.Helper()
	f, err := frame.New(data, wavelength)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return f
}

func TestReduce(t *testing.T) {
	data := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
	}
	wavelength := []float64{500.0, 500.1, 500.2}
	f := testFrame(t, data, wavelength)

	tests := []struct {
		name     string
		roi      frame.ROI
		mode     Mode
		expected []float64
		epsilon  float64
	}{
		{
			name:     "sum over two rows",
			roi:      frame.ROI{Name: "mid", RowStart: 1, RowStop: 3},
			mode:     ModeSum,
			expected: []float64{11, 13, 15},
			epsilon:  1e-12,
		},
		{
			name:     "mean over two rows",
			roi:      frame.ROI{Name: "mid", RowStart: 1, RowStop: 3},
			mode:     ModeMean,
			expected: []float64{5.5, 6.5, 7.5},
			epsilon:  1e-12,
		},
		{
			name:     "single row sum is the row itself",
			roi:      frame.ROI{Name: "one", RowStart: 0, RowStop: 1},
			mode:     ModeSum,
			expected: []float64{1, 2, 3},
			epsilon:  1e-12,
		},
		{
			name:     "full frame mean",
			roi:      frame.ROI{Name: "all", RowStart: 0, RowStop: 4},
			mode:     ModeMean,
			expected: []float64{5.5, 6.5, 7.5},
			epsilon:  1e-12,
		},
		{
			name:     "weighted mean",
			roi:      frame.ROI{Name: "w", RowStart: 0, RowStop: 2, Weights: []float64{3, 1}},
			mode:     ModeMean,
			expected: []float64{1.75, 2.75, 3.75},
			epsilon:  1e-12,
		},
		{
			name:     "weighted sum",
			roi:      frame.ROI{Name: "w", RowStart: 0, RowStop: 2, Weights: []float64{3, 1}},
			mode:     ModeSum,
			expected: []float64{7, 11, 15},
			epsilon:  1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Reduce(f, tt.roi, tt.mode)
			if err != nil {
				t.Fatalf("Reduce: %v", err)
			}
			if s.Len() != len(tt.expected) {
				t.Fatalf("got %d samples, want %d", s.Len(), len(tt.expected))
			}
			for i, want := range tt.expected {
				if math.Abs(s.Intensity[i]-want) > tt.epsilon {
					t.Errorf("intensity[%d] = %.6f, want %.6f", i, s.Intensity[i], want)
				}
			}
			for i, want := range wavelength {
				if s.Wavelength[i] != want {
					t.Errorf("wavelength[%d] = %.4f, want %.4f", i, s.Wavelength[i], want)
				}
			}
		})
	}
}

func TestReduceCarriesProvenance(t *testing.T) {
	f := testFrame(t, [][]float64{{1, 2}, {3, 4}}, []float64{400, 401})
	f.ShotNumber = "shot0042"

	s, err := Reduce(f, frame.ROI{Name: "core", RowStart: 0, RowStop: 2}, ModeSum)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if s.ROIName != "core" {
		t.Errorf("ROIName = %q, want %q", s.ROIName, "core")
	}
	if s.ShotNumber != "shot0042" {
		t.Errorf("ShotNumber = %q, want %q", s.ShotNumber, "shot0042")
	}
}

func TestReduceOutOfRange(t *testing.T) {
	f := testFrame(t, [][]float64{{1, 2}, {3, 4}}, []float64{400, 401})

	tests := []struct {
		name string
		roi  frame.ROI
	}{
		{"negative start", frame.ROI{Name: "bad", RowStart: -1, RowStop: 1}},
		{"stop past height", frame.ROI{Name: "bad", RowStart: 0, RowStop: 3}},
		{"empty range", frame.ROI{Name: "bad", RowStart: 1, RowStop: 1}},
		{"inverted range", frame.ROI{Name: "bad", RowStart: 2, RowStop: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(f, tt.roi, ModeSum)
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("got error %v, want ErrOutOfRange", err)
			}
		})
	}
}

func TestReduceDoesNotMutateFrame(t *testing.T) {
	data := [][]float64{{1, 2}, {3, 4}}
	f := testFrame(t, data, []float64{400, 401})

	s, err := Reduce(f, frame.ROI{Name: "r", RowStart: 0, RowStop: 2}, ModeSum)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	s.Intensity[0] = -99
	s.Wavelength[0] = -99

	if f.Data[0][0] != 1 || f.Data[1][0] != 3 {
		t.Error("frame data mutated through the reduced spectrum")
	}
	if f.Wavelength[0] != 400 {
		t.Error("frame wavelength axis mutated through the reduced spectrum")
	}
}

func TestWindow(t *testing.T) {
	s := &Spectrum{
		Wavelength: []float64{1, 2, 3, 4, 5},
		Intensity:  []float64{10, 20, 30, 40, 50},
	}

	tests := []struct {
		name     string
		lo, hi   float64
		expected []float64
	}{
		{"interior", 2, 4, []float64{20, 30, 40}},
		{"inclusive bounds", 1, 5, []float64{10, 20, 30, 40, 50}},
		{"between samples", 2.5, 4.5, []float64{30, 40}},
		{"empty above", 6, 7, nil},
		{"empty below", -2, 0, nil},
		{"inverted", 4, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.Window(tt.lo, tt.hi)
			if w.Len() != len(tt.expected) {
				t.Fatalf("got %d samples, want %d", w.Len(), len(tt.expected))
			}
			for i, want := range tt.expected {
				if w.Intensity[i] != want {
					t.Errorf("intensity[%d] = %v, want %v", i, w.Intensity[i], want)
				}
			}
		})
	}
}
