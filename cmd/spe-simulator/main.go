// Command spe-simulator writes synthetic SPE frame files containing known
// Gaussian emission lines.  It exists for pipeline shakedown and
// end-to-end testing when no spectrometer is on hand.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/zaphd/plasmaspec/pkg/spe"
)

func main() {
	var (
		outDir    = flag.String("out", ".", "Output directory for generated SPE files")
		numFrames = flag.Int("frames", 5, "Number of frames to generate")
		width     = flag.Int("width", 512, "Spectral columns per frame")
		height    = flag.Int("height", 64, "Spatial rows per frame")
		startWl   = flag.Float64("start-wavelength", 228.0, "Wavelength of the first column (nm)")
		stepWl    = flag.Float64("step-wavelength", 0.01, "Wavelength step per column (nm)")
		center    = flag.Float64("line-center", 229.687, "Emission line center (nm)")
		sigma     = flag.Float64("line-sigma", 0.05, "Emission line Gaussian sigma (nm)")
		amplitude = flag.Float64("line-amplitude", 1200.0, "Emission line peak amplitude (counts)")
		baseline  = flag.Float64("baseline", 80.0, "Constant background level (counts)")
		noise     = flag.Float64("noise", 5.0, "Gaussian noise sigma (counts), 0 for none")
		seed      = flag.Int64("seed", 1, "RNG seed; fixed seeds give reproducible files")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	wavelength := make([]float64, *width)
	for i := range wavelength {
		wavelength[i] = *startWl + float64(i)**stepWl
	}

	for n := 0; n < *numFrames; n++ {
		// Drift the line slightly shot to shot so fitted centers move the
		// way a real plasma's flow would.
		shotCenter := *center + 0.002*float64(n)

		data := make([][]float64, *height)
		for row := range data {
			data[row] = make([]float64, *width)
			// Brighten the channel center rows.
			rowGain := 1.0 - 0.5*math.Abs(float64(row)-float64(*height)/2)/(float64(*height)/2)
			for col := range data[row] {
				d := (wavelength[col] - shotCenter) / *sigma
				v := *baseline + rowGain**amplitude*math.Exp(-0.5*d*d)
				if *noise > 0 {
					v += rng.NormFloat64() * *noise
				}
				data[row][col] = v
			}
		}

		path := filepath.Join(*outDir, fmt.Sprintf("sim%05d.SPE", n))
		if err := spe.Encode(path, data, wavelength, 0.001); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (line center %.4f nm)\n", path, shotCenter)
	}
}
