// Package spe decodes Princeton Instruments SPE v2.x files into raw frames.
// It implements the frame.Decoder boundary; the reduction pipeline itself
// never imports this package.
package spe

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zaphd/plasmaspec/pkg/frame"
)

// SPE v2.x fixed binary header layout (little-endian).  Pixel data follows
// immediately after the header.
const (
	headerSize = 4100

	offExposureSec  = 10   // float32, seconds
	offDate         = 20   // char[10], "DDMonYYYY"
	offXDim         = 42   // uint16, spectral columns
	offDataType     = 108  // int16, pixel sample type
	offGateWidth    = 118  // float32, intensifier gate width, microseconds
	offGateDelay    = 122  // float32, intensifier gate delay, microseconds
	offTimeLocal    = 172  // char[7], "HHMMSS\0"
	offGain         = 198  // uint16, ADC gain
	offYDim         = 656  // uint16, spatial rows
	offNumFrames    = 1446 // int32
	offPolynomOrder = 3101 // uint8, wavelength polynomial order
	offPolynomCoeff = 3263 // 6 x float64, lowest power first
)

// Pixel sample types used by the datatype header field.
const (
	dataTypeFloat32 = 0
	dataTypeInt32   = 1
	dataTypeInt16   = 2
	dataTypeUint16  = 3
)

// Decoder reads SPE v2.x files.  The zero value is ready to use.
type Decoder struct{}

// Decode reads the first frame of an SPE file.  All failures are reported
// as *frame.DecodeError so callers can treat the decode boundary uniformly.
func (d Decoder) Decode(path string) (*frame.RawFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &frame.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	fr, err := decode(f)
	if err != nil {
		return nil, &frame.DecodeError{Path: path, Err: err}
	}

	fr.ShotNumber = shotNumber(path)
	if fr.Timestamp.IsZero() {
		if fi, err := f.Stat(); err == nil {
			fr.Timestamp = fi.ModTime()
		}
	}
	return fr, nil
}

func decode(r io.Reader) (*frame.RawFrame, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("short header: %w", err)
	}

	xdim := int(binary.LittleEndian.Uint16(hdr[offXDim:]))
	ydim := int(binary.LittleEndian.Uint16(hdr[offYDim:]))
	dataType := int(int16(binary.LittleEndian.Uint16(hdr[offDataType:])))
	numFrames := int(int32(binary.LittleEndian.Uint32(hdr[offNumFrames:])))

	if xdim <= 0 || ydim <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", xdim, ydim)
	}
	if numFrames < 1 {
		return nil, fmt.Errorf("file contains no frames")
	}

	data, err := readPixels(r, xdim, ydim, dataType)
	if err != nil {
		return nil, err
	}

	wl, err := wavelengthAxis(hdr, xdim)
	if err != nil {
		return nil, err
	}

	fr, err := frame.New(data, wl)
	if err != nil {
		return nil, err
	}

	fr.ExposureSec = float64(math.Float32frombits(binary.LittleEndian.Uint32(hdr[offExposureSec:])))
	fr.Gain = int(binary.LittleEndian.Uint16(hdr[offGain:]))
	fr.GateWidthSec = 1e-6 * float64(math.Float32frombits(binary.LittleEndian.Uint32(hdr[offGateWidth:])))
	fr.GateDelaySec = 1e-6 * float64(math.Float32frombits(binary.LittleEndian.Uint32(hdr[offGateDelay:])))
	fr.Timestamp = parseTimestamp(hdr)
	return fr, nil
}

func readPixels(r io.Reader, xdim, ydim, dataType int) ([][]float64, error) {
	var sampleSize int
	switch dataType {
	case dataTypeFloat32, dataTypeInt32:
		sampleSize = 4
	case dataTypeInt16, dataTypeUint16:
		sampleSize = 2
	default:
		return nil, fmt.Errorf("unsupported pixel datatype %d", dataType)
	}

	raw := make([]byte, xdim*ydim*sampleSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("short pixel data: %w", err)
	}

	data := make([][]float64, ydim)
	for row := range data {
		data[row] = make([]float64, xdim)
		for col := range data[row] {
			off := (row*xdim + col) * sampleSize
			switch dataType {
			case dataTypeFloat32:
				data[row][col] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off:])))
			case dataTypeInt32:
				data[row][col] = float64(int32(binary.LittleEndian.Uint32(raw[off:])))
			case dataTypeInt16:
				data[row][col] = float64(int16(binary.LittleEndian.Uint16(raw[off:])))
			case dataTypeUint16:
				data[row][col] = float64(binary.LittleEndian.Uint16(raw[off:]))
			}
		}
	}
	return data, nil
}

// wavelengthAxis evaluates the header's calibration polynomial.  Files with
// no usable calibration (order zero or all-zero coefficients) fall back to a
// pixel-index axis so uncalibrated frames remain reducible.
func wavelengthAxis(hdr []byte, xdim int) ([]float64, error) {
	order := int(hdr[offPolynomOrder])
	if order > 5 {
		return nil, fmt.Errorf("calibration polynomial order %d out of range", order)
	}

	coeffs := make([]float64, order+1)
	nonzero := false
	for i := range coeffs {
		coeffs[i] = math.Float64frombits(binary.LittleEndian.Uint64(hdr[offPolynomCoeff+8*i:]))
		if coeffs[i] != 0 {
			nonzero = true
		}
	}
	if order == 0 || !nonzero {
		return frame.PolynomialWavelength([]float64{0, 1}, xdim), nil
	}
	return frame.PolynomialWavelength(coeffs, xdim), nil
}

func parseTimestamp(hdr []byte) time.Time {
	date := strings.TrimRight(string(hdr[offDate:offDate+10]), "\x00 ")
	clock := strings.TrimRight(string(hdr[offTimeLocal:offTimeLocal+7]), "\x00 ")
	t, err := time.ParseInLocation("02Jan2006 150405", date+" "+clock, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// shotNumber derives the shot identifier from the file name, sans extension,
// matching how acquisitions are labeled on the experiment.
func shotNumber(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
