package spe

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Encode writes a single float32 frame as an SPE v2.x file.  It exists for
// the frame simulator and round-trip tests, not for production acquisition.
// The wavelength axis must be uniformly spaced so it can be expressed as the
// header's linear calibration polynomial.
func Encode(path string, data [][]float64, wavelength []float64, exposureSec float64) error {
	if len(data) == 0 || len(data[0]) == 0 {
		return fmt.Errorf("empty frame")
	}
	xdim := len(data[0])
	ydim := len(data)
	if len(wavelength) != xdim {
		return fmt.Errorf("wavelength axis has %d samples, frame has %d columns", len(wavelength), xdim)
	}

	step := 1.0
	if xdim > 1 {
		step = (wavelength[xdim-1] - wavelength[0]) / float64(xdim-1)
		for i := 1; i < xdim; i++ {
			if math.Abs((wavelength[i]-wavelength[i-1])-step) > 1e-9*math.Abs(step) {
				return fmt.Errorf("wavelength axis not uniformly spaced at column %d", i)
			}
		}
	}

	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[offExposureSec:], math.Float32bits(float32(exposureSec)))
	binary.LittleEndian.PutUint16(hdr[offXDim:], uint16(xdim))
	binary.LittleEndian.PutUint16(hdr[offDataType:], uint16(dataTypeFloat32))
	binary.LittleEndian.PutUint16(hdr[offYDim:], uint16(ydim))
	binary.LittleEndian.PutUint32(hdr[offNumFrames:], 1)

	hdr[offPolynomOrder] = 1
	binary.LittleEndian.PutUint64(hdr[offPolynomCoeff:], math.Float64bits(wavelength[0]))
	binary.LittleEndian.PutUint64(hdr[offPolynomCoeff+8:], math.Float64bits(step))

	buf := make([]byte, 0, headerSize+4*xdim*ydim)
	buf = append(buf, hdr...)
	pix := make([]byte, 4)
	for _, row := range data {
		for _, v := range row {
			binary.LittleEndian.PutUint32(pix, math.Float32bits(float32(v)))
			buf = append(buf, pix...)
		}
	}

	return os.WriteFile(path, buf, 0o644)
}
