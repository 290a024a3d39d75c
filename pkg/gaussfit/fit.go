package gaussfit

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/zaphd/plasmaspec/pkg/spectrum"
)

// Levenberg-Marquardt damping schedule.
const (
	initialDamping  = 1e-3
	dampingIncrease = 10.0
	dampingDecrease = 0.3
	minDamping      = 1e-12
	maxDampingTries = 10
	jacobianStep    = 1e-8
)

// Fit fits a multi-Gaussian model with shared baseline to the samples of
// spec that fall within the configured wavelength window.
//
// The minimization is a damped least-squares (Levenberg-Marquardt) loop
// with a numerically differenced Jacobian.  Parameters are bounded to keep
// the optimizer out of degenerate territory: amplitudes are non-negative,
// sigmas strictly positive, and centers stay within the window.  Reaching
// the iteration cap is not an error; the Result comes back with Converged
// set to false and the caller decides whether to keep it.
func Fit(spec *spectrum.Spectrum, cfg Config) (*Result, error) {
	cfg = normalizeConfig(cfg)

	win := spec.Window(cfg.WindowLow, cfg.WindowHigh)
	x := win.Wavelength
	y := win.Intensity

	dim := 3*cfg.Components + 1
	if len(x) < dim {
		return nil, fmt.Errorf("window [%g, %g] has %d samples, model has %d free parameters: %w",
			cfg.WindowLow, cfg.WindowHigh, len(x), dim, ErrEmptyWindow)
	}

	var params []float64
	if len(cfg.InitialGuess) > 0 {
		if len(cfg.InitialGuess) != cfg.Components {
			return nil, fmt.Errorf("initial guess has %d components, config wants %d",
				len(cfg.InitialGuess), cfg.Components)
		}
		params = make([]float64, dim)
		for i, c := range cfg.InitialGuess {
			params[3*i] = c.Amplitude
			params[3*i+1] = c.Center
			params[3*i+2] = c.Sigma
		}
		params[dim-1] = cfg.BaselineGuess
	} else {
		params = autoSeed(x, y, cfg.Components)
	}

	b := bounds{lo: x[0], hi: x[len(x)-1], minSigma: 1e-9 * (x[len(x)-1] - x[0])}
	b.clamp(params)

	params, cost, iterations, converged := minimize(x, y, params, b, cfg)

	res := &Result{
		Baseline:   params[dim-1],
		Converged:  converged,
		Iterations: iterations,
		WindowLow:  cfg.WindowLow,
		WindowHigh: cfg.WindowHigh,
	}

	stderr := standardErrors(x, y, params, cost)
	for i := 0; i < cfg.Components; i++ {
		res.Components = append(res.Components, Component{
			Amplitude:       params[3*i],
			Center:          params[3*i+1],
			Sigma:           params[3*i+2],
			AmplitudeStderr: stderr[3*i],
			CenterStderr:    stderr[3*i+1],
			SigmaStderr:     stderr[3*i+2],
		})
	}
	res.BaselineStderr = stderr[dim-1]

	// Deterministic component order regardless of how the seeds were laid out.
	sort.Slice(res.Components, func(i, j int) bool {
		return res.Components[i].Center < res.Components[j].Center
	})

	dof := len(x) - dim
	if dof > 0 {
		res.ChiSquare = cost / float64(dof)
	} else {
		res.ChiSquare = math.NaN()
	}

	return res, nil
}

type bounds struct {
	lo, hi   float64
	minSigma float64
}

// clamp enforces the parameter bounds in place.
func (b bounds) clamp(params []float64) {
	n := len(params) / 3
	for i := 0; i < n; i++ {
		if params[3*i] < 0 {
			params[3*i] = 0
		}
		if params[3*i+1] < b.lo {
			params[3*i+1] = b.lo
		}
		if params[3*i+1] > b.hi {
			params[3*i+1] = b.hi
		}
		params[3*i+2] = math.Abs(params[3*i+2])
		if params[3*i+2] < b.minSigma {
			params[3*i+2] = b.minSigma
		}
	}
}

func residuals(x, y, params []float64) []float64 {
	r := make([]float64, len(x))
	for i := range x {
		r[i] = y[i] - evalModel(params, x[i])
	}
	return r
}

func sumSquares(r []float64) float64 {
	var ss float64
	for _, v := range r {
		ss += v * v
	}
	return ss
}

// jacobian computes d(model)/d(param) by forward differences, one column
// per parameter.
func jacobian(x, params []float64) *mat.Dense {
	m := len(x)
	k := len(params)
	J := mat.NewDense(m, k, nil)

	base := make([]float64, m)
	for i := range x {
		base[i] = evalModel(params, x[i])
	}

	bumped := make([]float64, k)
	for j := 0; j < k; j++ {
		copy(bumped, params)
		h := jacobianStep * math.Max(math.Abs(params[j]), 1)
		bumped[j] += h
		for i := range x {
			J.Set(i, j, (evalModel(bumped, x[i])-base[i])/h)
		}
	}
	return J
}

func minimize(x, y, params []float64, b bounds, cfg Config) (final []float64, cost float64, iterations int, converged bool) {
	dim := len(params)
	cost = sumSquares(residuals(x, y, params))
	damping := initialDamping

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		iterations = iter + 1

		J := jacobian(x, params)
		r := residuals(x, y, params)

		jtj := mat.NewSymDense(dim, nil)
		for i := 0; i < dim; i++ {
			for j := i; j < dim; j++ {
				var v float64
				for row := 0; row < len(x); row++ {
					v += J.At(row, i) * J.At(row, j)
				}
				jtj.SetSym(i, j, v)
			}
		}
		g := mat.NewVecDense(dim, nil)
		for i := 0; i < dim; i++ {
			var v float64
			for row := 0; row < len(x); row++ {
				v += J.At(row, i) * r[row]
			}
			g.SetVec(i, v)
		}

		improved := false
		for try := 0; try < maxDampingTries; try++ {
			damped := mat.NewSymDense(dim, nil)
			for i := 0; i < dim; i++ {
				for j := i; j < dim; j++ {
					v := jtj.At(i, j)
					if i == j {
						// Marquardt scaling keeps the step sane when
						// parameters differ by orders of magnitude.
						d := v
						if d == 0 {
							d = 1
						}
						v += damping * d
					}
					damped.SetSym(i, j, v)
				}
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				damping *= dampingIncrease
				continue
			}
			delta := mat.NewVecDense(dim, nil)
			if err := chol.SolveVecTo(delta, g); err != nil {
				damping *= dampingIncrease
				continue
			}

			candidate := make([]float64, dim)
			for i := range candidate {
				candidate[i] = params[i] + delta.AtVec(i)
			}
			b.clamp(candidate)

			candidateCost := sumSquares(residuals(x, y, candidate))
			if candidateCost <= cost {
				relChange := 0.0
				for i := range params {
					ch := math.Abs(candidate[i]-params[i]) / math.Max(math.Abs(params[i]), 1e-12)
					if ch > relChange {
						relChange = ch
					}
				}
				params = candidate
				cost = candidateCost
				damping = math.Max(damping*dampingDecrease, minDamping)
				if relChange < cfg.Tolerance {
					converged = true
				}
				improved = true
				break
			}
			damping *= dampingIncrease
		}

		if !improved {
			// No damping level yields an improvement: the fit is at a local
			// minimum to within numerical precision.
			converged = true
		}
		if converged {
			break
		}
	}

	return params, cost, iterations, converged
}

// standardErrors estimates per-parameter standard errors from the local
// curvature at the optimum: s^2 * (J^T J)^-1 with s^2 the residual variance.
// A singular covariance reports NaN for every parameter instead of failing.
func standardErrors(x, y, params []float64, cost float64) []float64 {
	dim := len(params)
	stderr := make([]float64, dim)
	for i := range stderr {
		stderr[i] = math.NaN()
	}

	dof := len(x) - dim
	if dof <= 0 {
		return stderr
	}
	s2 := cost / float64(dof)

	J := jacobian(x, params)
	jtj := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			var v float64
			for row := 0; row < len(x); row++ {
				v += J.At(row, i) * J.At(row, j)
			}
			jtj.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(jtj) {
		return stderr
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return stderr
	}

	for i := 0; i < dim; i++ {
		v := s2 * cov.At(i, i)
		if v >= 0 {
			stderr[i] = math.Sqrt(v)
		}
	}
	return stderr
}
