// Package spectrum reduces 2-D spectrometer frames into 1-D spectra and
// provides the background-subtraction and normalization operations applied
// before line fitting.
package spectrum

import (
	"errors"
	"time"
)

// ErrOutOfRange reports an ROI that does not fit the frame's spatial
// extent.  This is a caller bug and fatal to the call that triggered it.
var ErrOutOfRange = errors.New("roi outside frame spatial extent")

// ErrDegenerateSpectrum reports a normalization whose normalizing quantity
// is zero or a spectrum too short to operate on.  Callers typically skip
// the spectrum or pick a different mode.
var ErrDegenerateSpectrum = errors.New("degenerate spectrum")

// Spectrum is a reduced 1-D spectrum: one (wavelength, intensity) pair per
// spectral column of the source frame.  Spectra are immutable value
// objects; every operation returns a new Spectrum.
type Spectrum struct {
	Wavelength []float64
	Intensity  []float64

	ROIName    string
	ShotNumber string
	Timestamp  time.Time
}

// Len returns the number of samples.
func (s *Spectrum) Len() int {
	return len(s.Wavelength)
}

// Window returns the sub-spectrum whose wavelengths lie within [lo, hi].
// The result shares no storage with the receiver.
func (s *Spectrum) Window(lo, hi float64) *Spectrum {
	start := 0
	for start < len(s.Wavelength) && s.Wavelength[start] < lo {
		start++
	}
	stop := start
	for stop < len(s.Wavelength) && s.Wavelength[stop] <= hi {
		stop++
	}

	out := s.emptyLike()
	out.Wavelength = append(out.Wavelength, s.Wavelength[start:stop]...)
	out.Intensity = append(out.Intensity, s.Intensity[start:stop]...)
	return out
}

// emptyLike returns a new Spectrum carrying the receiver's provenance
// metadata but no samples.
func (s *Spectrum) emptyLike() *Spectrum {
	return &Spectrum{
		Wavelength: make([]float64, 0, len(s.Wavelength)),
		Intensity:  make([]float64, 0, len(s.Intensity)),
		ROIName:    s.ROIName,
		ShotNumber: s.ShotNumber,
		Timestamp:  s.Timestamp,
	}
}

// clone returns a deep copy of the spectrum.
func (s *Spectrum) clone() *Spectrum {
	out := s.emptyLike()
	out.Wavelength = append(out.Wavelength, s.Wavelength...)
	out.Intensity = append(out.Intensity, s.Intensity...)
	return out
}
