package frame

import (
	"fmt"
	"math"
)

// PolynomialWavelength evaluates a pixel-to-wavelength calibration polynomial
// over width columns.  Coefficients are ordered lowest power first, matching
// the convention used in SPE file headers.
func PolynomialWavelength(coeffs []float64, width int) []float64 {
	wl := make([]float64, width)
	for px := range wl {
		x := float64(px)
		v := 0.0
		for i := len(coeffs) - 1; i >= 0; i-- {
			v = v*x + coeffs[i]
		}
		wl[px] = v
	}
	return wl
}

// PixelToWavelength converts a fractional column index to a wavelength by
// linear interpolation over the frame's calibration vector.
func (f *RawFrame) PixelToWavelength(px float64) (float64, error) {
	n := len(f.Wavelength)
	if n < 2 {
		return 0, fmt.Errorf("calibration vector too short for interpolation")
	}
	if px < 0 || px > float64(n-1) {
		return 0, fmt.Errorf("pixel %.3f outside calibrated range [0, %d]", px, n-1)
	}
	i := int(math.Floor(px))
	if i >= n-1 {
		return f.Wavelength[n-1], nil
	}
	frac := px - float64(i)
	return f.Wavelength[i] + frac*(f.Wavelength[i+1]-f.Wavelength[i]), nil
}

// WavelengthToPixel converts a wavelength to a fractional column index by
// inverse linear interpolation.  The wavelength must be within the
// calibrated range.
func (f *RawFrame) WavelengthToPixel(lambda float64) (float64, error) {
	n := len(f.Wavelength)
	if n < 2 {
		return 0, fmt.Errorf("calibration vector too short for interpolation")
	}
	if lambda < f.Wavelength[0] || lambda > f.Wavelength[n-1] {
		return 0, fmt.Errorf("wavelength %.4f outside calibrated range [%.4f, %.4f]",
			lambda, f.Wavelength[0], f.Wavelength[n-1])
	}
	for i := 1; i < n; i++ {
		if lambda <= f.Wavelength[i] {
			span := f.Wavelength[i] - f.Wavelength[i-1]
			return float64(i-1) + (lambda-f.Wavelength[i-1])/span, nil
		}
	}
	return float64(n - 1), nil
}
