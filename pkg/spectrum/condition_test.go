package spectrum

import (
	"errors"
	"math"
	"testing"
)

func TestSubtractBackground(t *testing.T) {
	tests := []struct {
		name        string
		intensity   []float64
		method      BackgroundMethod
		constant    float64
		edgeSamples int
		expected    []float64
		epsilon     float64
	}{
		{
			name:      "none returns unchanged copy",
			intensity: []float64{1, 2, 3},
			method:    BackgroundNone,
			expected:  []float64{1, 2, 3},
			epsilon:   1e-12,
		},
		{
			name:      "empty method defaults to none",
			intensity: []float64{1, 2, 3},
			method:    "",
			expected:  []float64{1, 2, 3},
			epsilon:   1e-12,
		},
		{
			name:      "constant offset",
			intensity: []float64{5, 6, 7},
			method:    BackgroundConstant,
			constant:  5,
			expected:  []float64{0, 1, 2},
			epsilon:   1e-12,
		},
		{
			name:        "edge mean from one sample per side",
			intensity:   []float64{2, 10, 10, 10, 4},
			method:      BackgroundEdgeMean,
			edgeSamples: 1,
			expected:    []float64{-1, 7, 7, 7, 1},
			epsilon:     1e-12,
		},
		{
			name:        "edge mean from two samples per side",
			intensity:   []float64{1, 3, 50, 3, 1},
			method:      BackgroundEdgeMean,
			edgeSamples: 2,
			expected:    []float64{-1, 1, 48, 1, -1},
			epsilon:     1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wl := make([]float64, len(tt.intensity))
			for i := range wl {
				wl[i] = float64(i)
			}
			s := &Spectrum{Wavelength: wl, Intensity: tt.intensity}

			out, err := s.SubtractBackground(tt.method, tt.constant, tt.edgeSamples)
			if err != nil {
				t.Fatalf("SubtractBackground: %v", err)
			}
			for i, want := range tt.expected {
				if math.Abs(out.Intensity[i]-want) > tt.epsilon {
					t.Errorf("intensity[%d] = %.6f, want %.6f", i, out.Intensity[i], want)
				}
			}
			// Input must be untouched.
			if &out.Intensity[0] == &s.Intensity[0] {
				t.Error("output shares storage with input")
			}
		})
	}
}

func TestSubtractBackgroundTooShort(t *testing.T) {
	s := &Spectrum{
		Wavelength: []float64{1, 2, 3},
		Intensity:  []float64{1, 2, 3},
	}
	_, err := s.SubtractBackground(BackgroundEdgeMean, 0, 2)
	if !errors.Is(err, ErrDegenerateSpectrum) {
		t.Errorf("got error %v, want ErrDegenerateSpectrum", err)
	}
}

func TestSubtractBackgroundUnknownMethod(t *testing.T) {
	s := &Spectrum{Wavelength: []float64{1, 2}, Intensity: []float64{1, 2}}
	if _, err := s.SubtractBackground("median", 0, 0); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		wavelength []float64
		intensity  []float64
		mode       Normalization
		expected   []float64
		epsilon    float64
	}{
		{
			name:       "none is a copy",
			wavelength: []float64{1, 2, 3},
			intensity:  []float64{2, 4, 8},
			mode:       NormalizeNone,
			expected:   []float64{2, 4, 8},
			epsilon:    1e-12,
		},
		{
			name:       "peak scales maximum to one",
			wavelength: []float64{1, 2, 3},
			intensity:  []float64{2, 8, 4},
			mode:       NormalizePeak,
			expected:   []float64{0.25, 1.0, 0.5},
			epsilon:    1e-12,
		},
		{
			// Trapezoid over unit spacing: (1+2)/2 + (2+1)/2 = 3.
			name:       "area scales integral to one",
			wavelength: []float64{0, 1, 2},
			intensity:  []float64{1, 2, 1},
			mode:       NormalizeArea,
			expected:   []float64{1.0 / 3, 2.0 / 3, 1.0 / 3},
			epsilon:    1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Spectrum{Wavelength: tt.wavelength, Intensity: tt.intensity}
			out, err := s.Normalize(tt.mode)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			for i, want := range tt.expected {
				if math.Abs(out.Intensity[i]-want) > tt.epsilon {
					t.Errorf("intensity[%d] = %.6f, want %.6f", i, out.Intensity[i], want)
				}
			}
		})
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	tests := []struct {
		name       string
		wavelength []float64
		intensity  []float64
		mode       Normalization
	}{
		{"zero peak", []float64{1, 2, 3}, []float64{0, 0, 0}, NormalizePeak},
		{"zero area", []float64{1, 2, 3}, []float64{-1, 0, 1}, NormalizeArea},
		{"single sample", []float64{1}, []float64{5}, NormalizePeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Spectrum{Wavelength: tt.wavelength, Intensity: tt.intensity}
			_, err := s.Normalize(tt.mode)
			if !errors.Is(err, ErrDegenerateSpectrum) {
				t.Errorf("got error %v, want ErrDegenerateSpectrum", err)
			}
		})
	}
}
