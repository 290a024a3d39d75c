// Command campaign-stats summarizes fitted spectroscopy results that a
// reduction run stored in TimescaleDB or SQLite.  It reports per-chord
// statistics of ion temperature, flow velocity, and fit quality across a
// run, with optional CSV export for plotting.
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gonum.org/v1/gonum/stat"
)

// ResultReading is one stored row of fitted output for a single chord.
type ResultReading struct {
	Time          time.Time
	RunID         string
	ShotIndex     int
	ShotNumber    string
	ROIName       string
	Failed        bool
	Converged     bool
	ChiSquare     float64
	TemperatureEV float64
	VelocityMS    float64
	Center1       float64
}

// ChordSummary holds the campaign statistics for a single chord.
type ChordSummary struct {
	ROIName         string
	SampleCount     int
	FailedCount     int
	ConvergedCount  int
	MeanTempEV      float64
	StdDevTempEV    float64
	MeanVelocityMS  float64
	StdDevVelocity  float64
	MeanChiSquare   float64
	TempTrendPerSht float64 // Linear trend of temperature versus shot index (eV/shot)
	CenterRange     [2]float64
}

func main() {
	var (
		backend   = flag.String("backend", "postgres", "Storage backend to query: postgres or sqlite")
		dbHost    = flag.String("db-host", "localhost", "Database host (postgres)")
		dbPort    = flag.Int("db-port", 5432, "Database port (postgres)")
		dbUser    = flag.String("db-user", "postgres", "Database user (postgres)")
		dbPass    = flag.String("db-pass", "", "Database password (postgres)")
		dbName    = flag.String("db-name", "plasmaspec", "Database name (postgres)")
		dbFile    = flag.String("db-file", "plasmaspec.db", "Database file (sqlite)")
		runID     = flag.String("run", "", "Limit analysis to a single run ID (empty for all)")
		hours     = flag.Int("hours", 0, "Analyze only the last N hours of data (0 for all)")
		csvOutput = flag.String("csv", "", "Optional CSV output file path")
	)
	flag.Parse()

	db, err := openDatabase(*backend, *dbHost, *dbPort, *dbUser, *dbPass, *dbName, *dbFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	readings := fetchResults(db, *backend, *runID, *hours)
	if len(readings) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no stored results matched the query")
		os.Exit(1)
	}

	fmt.Printf("Spectroscopy Campaign Statistics\n")
	fmt.Printf("================================\n\n")
	if *runID != "" {
		fmt.Printf("Run: %s\n", *runID)
	}
	fmt.Printf("Rows analyzed: %d\n\n", len(readings))

	summaries := summarizeByChord(readings)
	displaySummaries(summaries)

	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, readings); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nData exported to: %s\n", *csvOutput)
		}
	}
}

func openDatabase(backend, host string, port int, user, pass, name, file string) (*sql.DB, error) {
	switch backend {
	case "postgres":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, pass, name)
		return sql.Open("postgres", connStr)
	case "sqlite":
		return sql.Open("sqlite", file)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func fetchResults(db *sql.DB, backend, runID string, hours int) []ResultReading {
	query := `
		SELECT time, runid, shotindex, shotnumber, roiname,
		       failed, converged, chisquare,
		       temperatureev, velocityms, center1
		FROM spectro_results
	`
	var (
		conds []string
		args  []interface{}
	)
	if runID != "" {
		args = append(args, runID)
		conds = append(conds, fmt.Sprintf("runid = %s", placeholder(backend, len(args))))
	}
	if hours > 0 {
		args = append(args, time.Now().Add(-time.Duration(hours)*time.Hour))
		conds = append(conds, fmt.Sprintf("time >= %s", placeholder(backend, len(args))))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY roiname, shotindex"

	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying data: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var readings []ResultReading
	for rows.Next() {
		var (
			r      ResultReading
			chiSq  sql.NullFloat64
			tempEV sql.NullFloat64
			velMS  sql.NullFloat64
			center sql.NullFloat64
		)
		if err := rows.Scan(&r.Time, &r.RunID, &r.ShotIndex, &r.ShotNumber, &r.ROIName,
			&r.Failed, &r.Converged, &chiSq, &tempEV, &velMS, &center); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			continue
		}
		r.ChiSquare = nullOrNaN(chiSq)
		r.TemperatureEV = nullOrNaN(tempEV)
		r.VelocityMS = nullOrNaN(velMS)
		r.Center1 = nullOrNaN(center)
		readings = append(readings, r)
	}

	return readings
}

func placeholder(backend string, n int) string {
	if backend == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func nullOrNaN(v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return math.NaN()
}

func summarizeByChord(readings []ResultReading) []ChordSummary {
	byChord := make(map[string][]ResultReading)
	for _, r := range readings {
		byChord[r.ROIName] = append(byChord[r.ROIName], r)
	}

	names := make([]string, 0, len(byChord))
	for name := range byChord {
		names = append(names, name)
	}
	sort.Strings(names)

	var summaries []ChordSummary
	for _, name := range names {
		summaries = append(summaries, summarizeChord(name, byChord[name]))
	}
	return summaries
}

func summarizeChord(name string, readings []ResultReading) ChordSummary {
	s := ChordSummary{
		ROIName:     name,
		SampleCount: len(readings),
		CenterRange: [2]float64{math.Inf(1), math.Inf(-1)},
	}

	var (
		temps, vels, chis []float64
		shotIdx           []float64
		trendTemps        []float64
	)
	for _, r := range readings {
		if r.Failed {
			s.FailedCount++
			continue
		}
		if r.Converged {
			s.ConvergedCount++
		}
		if !math.IsNaN(r.TemperatureEV) {
			temps = append(temps, r.TemperatureEV)
			shotIdx = append(shotIdx, float64(r.ShotIndex))
			trendTemps = append(trendTemps, r.TemperatureEV)
		}
		if !math.IsNaN(r.VelocityMS) {
			vels = append(vels, r.VelocityMS)
		}
		if !math.IsNaN(r.ChiSquare) {
			chis = append(chis, r.ChiSquare)
		}
		if !math.IsNaN(r.Center1) {
			s.CenterRange[0] = math.Min(s.CenterRange[0], r.Center1)
			s.CenterRange[1] = math.Max(s.CenterRange[1], r.Center1)
		}
	}

	if len(temps) > 0 {
		s.MeanTempEV = stat.Mean(temps, nil)
		s.StdDevTempEV = stat.StdDev(temps, nil)
	}
	if len(vels) > 0 {
		s.MeanVelocityMS = stat.Mean(vels, nil)
		s.StdDevVelocity = stat.StdDev(vels, nil)
	}
	if len(chis) > 0 {
		s.MeanChiSquare = stat.Mean(chis, nil)
	}
	if len(trendTemps) >= 2 {
		_, s.TempTrendPerSht = stat.LinearRegression(shotIdx, trendTemps, nil, false)
	}

	return s
}

func displaySummaries(summaries []ChordSummary) {
	fmt.Printf("%-12s %6s %6s %6s %12s %12s %12s %10s\n",
		"Chord", "Rows", "Fail", "Conv", "Ti (eV)", "v (m/s)", "ChiSq", "dTi/shot")
	fmt.Printf("%-12s %6s %6s %6s %12s %12s %12s %10s\n",
		"-----", "----", "----", "----", "-------", "-------", "-----", "--------")
	for _, s := range summaries {
		fmt.Printf("%-12s %6d %6d %6d %6.2f±%-5.2f %6.0f±%-5.0f %12.3f %10.4f\n",
			s.ROIName, s.SampleCount, s.FailedCount, s.ConvergedCount,
			s.MeanTempEV, s.StdDevTempEV,
			s.MeanVelocityMS, s.StdDevVelocity,
			s.MeanChiSquare, s.TempTrendPerSht)
	}
	fmt.Println()
	for _, s := range summaries {
		if s.CenterRange[0] <= s.CenterRange[1] {
			fmt.Printf("  %s line center range: %.4f to %.4f nm\n",
				s.ROIName, s.CenterRange[0], s.CenterRange[1])
		}
	}
}

func exportCSV(path string, readings []ResultReading) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time", "run_id", "shot_index", "shot_number", "roi_name",
		"failed", "converged", "chi_square", "temperature_ev", "velocity_ms", "center_1"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range readings {
		row := []string{
			r.Time.Format(time.RFC3339),
			r.RunID,
			fmt.Sprintf("%d", r.ShotIndex),
			r.ShotNumber,
			r.ROIName,
			fmt.Sprintf("%t", r.Failed),
			fmt.Sprintf("%t", r.Converged),
			fmt.Sprintf("%g", r.ChiSquare),
			fmt.Sprintf("%g", r.TemperatureEV),
			fmt.Sprintf("%g", r.VelocityMS),
			fmt.Sprintf("%g", r.Center1),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
