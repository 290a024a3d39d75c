package gaussfit

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// seedEdgeSamples is the per-side sample count used to estimate the noise
// floor from the window edges.
const seedEdgeSamples = 5

// autoSeed derives a deterministic initial parameter vector from the
// windowed data when the caller supplies no guess.  Peak detection locates
// up to n local maxima above a noise threshold; each seeds one component's
// center and amplitude.  Widths are seeded from the window span divided by
// 4n, the baseline from the window minimum.
func autoSeed(x, y []float64, n int) []float64 {
	edge := seedEdgeSamples
	if edge > len(y)/4 {
		edge = len(y) / 4
	}
	if edge < 1 {
		edge = 1
	}

	edgeVals := make([]float64, 0, 2*edge)
	edgeVals = append(edgeVals, y[:edge]...)
	edgeVals = append(edgeVals, y[len(y)-edge:]...)
	noiseMean := stat.Mean(edgeVals, nil)
	noiseSigma := stat.StdDev(edgeVals, nil)
	threshold := noiseMean + 2*noiseSigma

	baseline := y[0]
	peakVal := y[0]
	for _, v := range y {
		if v < baseline {
			baseline = v
		}
		if v > peakVal {
			peakVal = v
		}
	}

	span := x[len(x)-1] - x[0]
	width := span / float64(4*n)

	type peak struct {
		idx int
		val float64
	}
	var peaks []peak
	for i := 1; i < len(y)-1; i++ {
		if y[i] > y[i-1] && y[i] >= y[i+1] && y[i] > threshold {
			peaks = append(peaks, peak{i, y[i]})
		}
	}
	// Brightest peaks seed first, but the final component ordering is fixed
	// by center wavelength after the fit, so seeding order cannot change
	// the reported result.
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].val != peaks[j].val {
			return peaks[i].val > peaks[j].val
		}
		return peaks[i].idx < peaks[j].idx
	})

	params := make([]float64, 3*n+1)
	for i := 0; i < n; i++ {
		if i < len(peaks) {
			params[3*i] = peaks[i].val - baseline
			params[3*i+1] = x[peaks[i].idx]
		} else {
			// Not enough detected peaks: spread the remaining seeds evenly
			// across the window at half the observed peak height.
			params[3*i] = (peakVal - baseline) / 2
			params[3*i+1] = x[0] + span*float64(2*i+1)/float64(2*n)
		}
		params[3*i+2] = width
	}
	params[3*n] = baseline
	return params
}
