package spectrum

import "fmt"

// BackgroundMethod selects how the continuum background is estimated.
type BackgroundMethod string

const (
	BackgroundNone     BackgroundMethod = "none"
	BackgroundConstant BackgroundMethod = "constant"
	BackgroundEdgeMean BackgroundMethod = "edge-mean"
)

// DefaultEdgeSamples is the per-side sample count used by edge-mean
// background estimation when the configuration does not set one.
const DefaultEdgeSamples = 5

// SubtractBackground returns a new spectrum with the background removed.
// BackgroundConstant subtracts the given scalar; BackgroundEdgeMean
// averages the outermost edgeSamples samples on each side and subtracts
// their mean; BackgroundNone returns an unchanged copy.
func (s *Spectrum) SubtractBackground(method BackgroundMethod, constant float64, edgeSamples int) (*Spectrum, error) {
	switch method {
	case BackgroundNone, "":
		return s.clone(), nil
	case BackgroundConstant:
		return s.shifted(-constant), nil
	case BackgroundEdgeMean:
		if edgeSamples <= 0 {
			edgeSamples = DefaultEdgeSamples
		}
		n := s.Len()
		if 2*edgeSamples > n {
			return nil, fmt.Errorf("edge-mean background needs %d samples, spectrum has %d: %w",
				2*edgeSamples, n, ErrDegenerateSpectrum)
		}
		var sum float64
		for i := 0; i < edgeSamples; i++ {
			sum += s.Intensity[i] + s.Intensity[n-1-i]
		}
		return s.shifted(-sum / float64(2*edgeSamples)), nil
	default:
		return nil, fmt.Errorf("unknown background method %q", method)
	}
}

func (s *Spectrum) shifted(delta float64) *Spectrum {
	out := s.clone()
	for i := range out.Intensity {
		out.Intensity[i] += delta
	}
	return out
}
