// Package frame defines the raw spectrometer frame model and the decoder
// boundary that shields the reduction pipeline from vendor file formats.
package frame

import (
	"fmt"
	"time"
)

// RawFrame is a single 2-D spectrometer acquisition: intensity samples
// indexed by (spatial row, spectral column) plus the acquisition metadata
// needed to interpret them.  A RawFrame is never mutated after decoding;
// the reduction pipeline copies whatever it derives from it.
type RawFrame struct {
	// Data holds intensities as Data[row][col].  All rows have the same length.
	Data [][]float64

	// Wavelength maps spectral column index to wavelength in nanometers.
	// It is the same length as every row of Data and monotonically increasing.
	Wavelength []float64

	ShotNumber string
	Timestamp  time.Time

	// Intensifier and gating metadata, when the vendor file carries it.
	Gain         int
	GateWidthSec float64
	GateDelaySec float64
	ExposureSec  float64
}

// New builds a RawFrame from row-major intensity data and a wavelength
// calibration vector, validating the geometry invariants.
func New(data [][]float64, wavelength []float64) (*RawFrame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("frame has no spatial rows")
	}
	width := len(data[0])
	if width == 0 {
		return nil, fmt.Errorf("frame has no spectral columns")
	}
	for i, row := range data {
		if len(row) != width {
			return nil, fmt.Errorf("frame row %d has %d columns, want %d", i, len(row), width)
		}
	}
	if len(wavelength) != width {
		return nil, fmt.Errorf("wavelength axis has %d samples, frame has %d columns", len(wavelength), width)
	}
	for i := 1; i < len(wavelength); i++ {
		if wavelength[i] <= wavelength[i-1] {
			return nil, fmt.Errorf("wavelength axis not monotonically increasing at column %d", i)
		}
	}

	return &RawFrame{Data: data, Wavelength: wavelength}, nil
}

// Height returns the number of spatial rows.
func (f *RawFrame) Height() int {
	return len(f.Data)
}

// Width returns the number of spectral columns.
func (f *RawFrame) Width() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data[0])
}

// ROI names a contiguous band of spatial rows selected for spectral
// extraction.  The row range is half-open: [RowStart, RowStop).  Weights,
// when present, is one weight per row in the range; an empty Weights slice
// means uniform weighting.  ROIs may overlap; bounds are validated against
// the frame at reduction time.
type ROI struct {
	Name     string
	RowStart int
	RowStop  int
	Weights  []float64
}

// Rows returns the number of rows covered by the ROI.
func (r ROI) Rows() int {
	return r.RowStop - r.RowStart
}
