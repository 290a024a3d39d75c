package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
)

// Normalization selects how a spectrum is scaled before fitting.
type Normalization string

const (
	NormalizeNone Normalization = "none"
	// NormalizePeak divides by the maximum intensity.
	NormalizePeak Normalization = "peak"
	// NormalizeArea divides by the trapezoidal integral over wavelength.
	NormalizeArea Normalization = "area"
)

// Normalize returns a new spectrum scaled per the given mode.  It fails
// with ErrDegenerateSpectrum when the normalizing quantity is zero or the
// spectrum has fewer than two samples.
func (s *Spectrum) Normalize(mode Normalization) (*Spectrum, error) {
	if mode == NormalizeNone || mode == "" {
		return s.clone(), nil
	}
	if s.Len() < 2 {
		return nil, fmt.Errorf("normalization needs at least 2 samples, have %d: %w",
			s.Len(), ErrDegenerateSpectrum)
	}

	var norm float64
	switch mode {
	case NormalizePeak:
		norm = s.Intensity[0]
		for _, v := range s.Intensity[1:] {
			if v > norm {
				norm = v
			}
		}
	case NormalizeArea:
		norm = integrate.Trapezoidal(s.Wavelength, s.Intensity)
	default:
		return nil, fmt.Errorf("unknown normalization mode %q", mode)
	}

	if norm == 0 {
		return nil, fmt.Errorf("normalizing quantity is zero for mode %q: %w", mode, ErrDegenerateSpectrum)
	}

	out := s.clone()
	for i := range out.Intensity {
		out.Intensity[i] /= norm
	}
	return out, nil
}
