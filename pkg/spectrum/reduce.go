package spectrum

import (
	"fmt"

	"github.com/zaphd/plasmaspec/pkg/frame"
)

// Mode selects how intensities are collapsed across ROI rows.
type Mode string

const (
	// ModeSum adds the (optionally weighted) row intensities per column.
	ModeSum Mode = "sum"
	// ModeMean divides the weighted sum by the total weight per column.
	ModeMean Mode = "mean"
)

// Reduce collapses the ROI's rows of a raw frame into a 1-D spectrum, one
// sample per spectral column.  The wavelength axis is copied unchanged from
// the frame's calibration.  Reduce has no side effects: neither the frame
// nor the ROI is modified.
func Reduce(f *frame.RawFrame, roi frame.ROI, mode Mode) (*Spectrum, error) {
	if roi.RowStart < 0 || roi.RowStop > f.Height() || roi.RowStart >= roi.RowStop {
		return nil, fmt.Errorf("roi %q rows [%d, %d) with frame height %d: %w",
			roi.Name, roi.RowStart, roi.RowStop, f.Height(), ErrOutOfRange)
	}

	rows := roi.Rows()
	weights := roi.Weights
	if len(weights) == 0 {
		weights = uniformWeights(rows)
	} else if len(weights) != rows {
		return nil, fmt.Errorf("roi %q has %d weights for %d rows", roi.Name, len(weights), rows)
	}

	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if mode == ModeMean && totalWeight == 0 {
		return nil, fmt.Errorf("roi %q has zero total weight", roi.Name)
	}

	width := f.Width()
	intensity := make([]float64, width)
	for col := 0; col < width; col++ {
		var acc float64
		for i := 0; i < rows; i++ {
			acc += weights[i] * f.Data[roi.RowStart+i][col]
		}
		if mode == ModeMean {
			acc /= totalWeight
		}
		intensity[col] = acc
	}

	wavelength := make([]float64, width)
	copy(wavelength, f.Wavelength)

	return &Spectrum{
		Wavelength: wavelength,
		Intensity:  intensity,
		ROIName:    roi.Name,
		ShotNumber: f.ShotNumber,
		Timestamp:  f.Timestamp,
	}, nil
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
