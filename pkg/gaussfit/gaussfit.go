// Package gaussfit fits parametric multi-Gaussian line-shape models to
// reduced spectra by damped least squares and derives the physical
// quantities the experiment cares about: ion temperature from Doppler
// broadening and flow velocity from line-center shift.
package gaussfit

import (
	"errors"
	"math"
)

// ErrEmptyWindow reports a fit window holding fewer samples than the model
// has free parameters.  Sessions record it as a failed fit slot rather than
// aborting the run.
var ErrEmptyWindow = errors.New("fit window has fewer samples than free parameters")

const (
	// DefaultMaxIterations caps the Levenberg-Marquardt loop.
	DefaultMaxIterations = 200
	// DefaultTolerance is the relative parameter-change threshold that
	// declares convergence.
	DefaultTolerance = 1e-6
)

// Config holds line-fit parameters.
type Config struct {
	// WindowLow and WindowHigh bound the wavelength region to fit.
	WindowLow  float64
	WindowHigh float64

	// Components is the number of Gaussian components in the model.
	Components int

	// InitialGuess optionally seeds the fit.  When empty, a seed is derived
	// from peak detection over the windowed data.  When present it must
	// hold exactly Components entries.
	InitialGuess []Component

	// BaselineGuess is only consulted when InitialGuess is set.
	BaselineGuess float64

	MaxIterations int
	Tolerance     float64
}

func normalizeConfig(cfg Config) Config {
	if cfg.Components <= 0 {
		cfg.Components = 1
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return cfg
}

// Component is one Gaussian line in the fitted model, with standard errors
// estimated from the local curvature at the optimum.  Standard errors are
// NaN when the covariance is singular.
type Component struct {
	Amplitude float64
	Center    float64
	Sigma     float64

	AmplitudeStderr float64
	CenterStderr    float64
	SigmaStderr     float64
}

// FWHM returns the component's full width at half maximum.
func (c Component) FWHM() float64 {
	return 2 * math.Sqrt(2*math.Ln2) * c.Sigma
}

// Result is an immutable fit outcome.  A re-fit produces a new Result.
type Result struct {
	// Components are sorted by ascending center wavelength regardless of
	// seeding order, so results compare deterministically across fits.
	Components []Component

	Baseline       float64
	BaselineStderr float64

	// ChiSquare is the reduced chi-square: residual sum of squares over
	// degrees of freedom.
	ChiSquare float64

	Converged  bool
	Iterations int

	WindowLow  float64
	WindowHigh float64
}

// Primary returns the dominant component: the one with the largest fitted
// amplitude.  Derived session-level quantities are computed from it.
func (r *Result) Primary() Component {
	best := r.Components[0]
	for _, c := range r.Components[1:] {
		if c.Amplitude > best.Amplitude {
			best = c
		}
	}
	return best
}

// evalModel computes sum_i A_i * exp(-(x-c_i)^2 / (2 sigma_i^2)) + baseline
// for the packed parameter vector [A1, c1, s1, ..., An, cn, sn, baseline].
func evalModel(params []float64, x float64) float64 {
	n := len(params) / 3
	v := params[3*n] // baseline
	for i := 0; i < n; i++ {
		a := params[3*i]
		c := params[3*i+1]
		s := params[3*i+2]
		d := (x - c) / s
		v += a * math.Exp(-0.5*d*d)
	}
	return v
}
