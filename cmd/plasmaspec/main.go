// Command plasmaspec reduces a sequence of spectrometer frames: decode,
// spatial reduction per ROI, Gaussian line fitting, and storage of the
// resulting shot-indexed table.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/zaphd/plasmaspec/internal/app"
	"github.com/zaphd/plasmaspec/internal/constants"
	"github.com/zaphd/plasmaspec/internal/log"
	"github.com/zaphd/plasmaspec/internal/types"
	"github.com/zaphd/plasmaspec/pkg/config"
	"github.com/zaphd/plasmaspec/pkg/spe"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	frames := flag.String("frames", "", "Glob or directory of SPE frame files to analyze, e.g. 'shots/*.SPE'")
	csvOut := flag.String("csv", "", "Optional CSV output file path")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("plasmaspec %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	paths, err := resolveFrames(*frames)
	if err != nil {
		log.Errorf("Failed to resolve frame files: %v", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		log.Errorf("No frame files matched %q", *frames)
		os.Exit(1)
	}

	application := app.New(cfgData, spe.Decoder{}, paths, log.GetSugaredLogger())
	records, err := application.Run(context.Background())
	if err != nil {
		log.Errorf("Application error: %v", err)
	}

	printSummary(records)

	if *csvOut != "" {
		if err := exportCSV(*csvOut, records); err != nil {
			log.Errorf("Error writing CSV: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Results exported to: %s\n", *csvOut)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

// resolveFrames expands the -frames argument into a deterministic,
// lexically sorted list of file paths.  Sessions process frames in this
// order, so re-runs over the same directory are reproducible.
func resolveFrames(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("no -frames argument given")
	}

	if fi, err := os.Stat(pattern); err == nil && fi.IsDir() {
		pattern = filepath.Join(pattern, "*.SPE")
	}

	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(records []types.ShotRecord) {
	fmt.Printf("%-8s | %-12s | %-10s | %10s | %12s | %9s | %s\n",
		"Shot", "Number", "ROI", "T_i (eV)", "v (km/s)", "chi2", "Status")
	fmt.Println("---------+--------------+------------+------------+--------------+-----------+--------")
	for _, rec := range records {
		for _, o := range rec.Outcomes {
			if o.Failed {
				fmt.Printf("%-8d | %-12s | %-10s | %10s | %12s | %9s | FAILED: %s\n",
					rec.ShotIndex, rec.ShotNumber, o.ROIName, "-", "-", "-", o.FailReason)
				continue
			}
			status := "ok"
			if !o.Result.Converged {
				status = "no-conv"
			}
			fmt.Printf("%-8d | %-12s | %-10s | %10.2f | %12.2f | %9.4f | %s\n",
				rec.ShotIndex, rec.ShotNumber, o.ROIName,
				o.TemperatureEV, o.VelocityMS/1000, o.Result.ChiSquare, status)
		}
	}
}

func exportCSV(filename string, records []types.ShotRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"shot_index", "timestamp", "shot_number", "roi_name", "failed", "fail_reason",
		"n_components", "converged", "chi_square", "temperature_ev", "velocity_ms",
		"baseline", "baseline_stderr",
		"amplitude", "center", "sigma", "amplitude_stderr", "center_stderr", "sigma_stderr",
		"component",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		for _, o := range rec.Outcomes {
			if o.Failed || o.Result == nil {
				row := []string{
					strconv.Itoa(rec.ShotIndex), rec.Timestamp.Format("2006-01-02T15:04:05"),
					rec.ShotNumber, o.ROIName, "true", o.FailReason,
					"", "", "", "", "", "", "", "", "", "", "", "", "", "",
				}
				if err := writer.Write(row); err != nil {
					return err
				}
				continue
			}
			for ci, c := range o.Result.Components {
				row := []string{
					strconv.Itoa(rec.ShotIndex), rec.Timestamp.Format("2006-01-02T15:04:05"),
					rec.ShotNumber, o.ROIName, "false", "",
					strconv.Itoa(len(o.Result.Components)),
					strconv.FormatBool(o.Result.Converged),
					fmt.Sprintf("%.6g", o.Result.ChiSquare),
					fmt.Sprintf("%.6g", o.TemperatureEV),
					fmt.Sprintf("%.6g", o.VelocityMS),
					fmt.Sprintf("%.6g", o.Result.Baseline),
					fmt.Sprintf("%.6g", o.Result.BaselineStderr),
					fmt.Sprintf("%.6g", c.Amplitude),
					fmt.Sprintf("%.6g", c.Center),
					fmt.Sprintf("%.6g", c.Sigma),
					fmt.Sprintf("%.6g", c.AmplitudeStderr),
					fmt.Sprintf("%.6g", c.CenterStderr),
					fmt.Sprintf("%.6g", c.SigmaStderr),
					strconv.Itoa(ci),
				}
				if err := writer.Write(row); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
