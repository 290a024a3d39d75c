package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	rois, err := s.GetROIs()
	if err != nil {
		return nil, fmt.Errorf("failed to load rois: %w", err)
	}
	config.ROIs = rois

	if err := s.loadReduction(config); err != nil {
		return nil, fmt.Errorf("failed to load reduction config: %w", err)
	}
	if err := s.loadFit(config); err != nil {
		return nil, fmt.Errorf("failed to load fit config: %w", err)
	}
	if err := s.loadSession(config); err != nil {
		return nil, fmt.Errorf("failed to load session config: %w", err)
	}

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	if err := s.loadHTTP(config); err != nil {
		return nil, fmt.Errorf("failed to load http config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetROIs returns ROI definitions from the database
func (s *SQLiteProvider) GetROIs() ([]ROIData, error) {
	query := `
		SELECT name, row_start, row_stop, weights
		FROM rois
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY row_start
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rois: %w", err)
	}
	defer rows.Close()

	var rois []ROIData
	for rows.Next() {
		var roi ROIData
		var weights sql.NullString

		if err := rows.Scan(&roi.Name, &roi.RowStart, &roi.RowStop, &weights); err != nil {
			return nil, fmt.Errorf("failed to scan roi row: %w", err)
		}
		if weights.Valid && weights.String != "" {
			roi.Weights, err = parseWeights(weights.String)
			if err != nil {
				return nil, fmt.Errorf("roi %q: %w", roi.Name, err)
			}
		}
		rois = append(rois, roi)
	}

	return rois, rows.Err()
}

// GetStorageConfig returns the storage backend configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT timescaledb_dsn, sqlite_path
		FROM storage
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var dsn, path sql.NullString
	err := s.db.QueryRow(query).Scan(&dsn, &path)
	if err == sql.ErrNoRows {
		return &StorageData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query storage config: %w", err)
	}

	storage := &StorageData{}
	if dsn.Valid && dsn.String != "" {
		storage.TimescaleDB = &TimescaleDBData{ConnectionString: dsn.String}
	}
	if path.Valid && path.String != "" {
		storage.SQLite = &SQLiteData{Path: path.String}
	}
	return storage, nil
}

func (s *SQLiteProvider) loadReduction(config *ConfigData) error {
	query := `
		SELECT mode, background_method, background_constant, edge_samples, normalization
		FROM reduction
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var mode, method, normalization sql.NullString
	var constant sql.NullFloat64
	var edgeSamples sql.NullInt64

	err := s.db.QueryRow(query).Scan(&mode, &method, &constant, &edgeSamples, &normalization)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	config.Reduction = ReductionData{
		Mode:               mode.String,
		BackgroundMethod:   method.String,
		BackgroundConstant: constant.Float64,
		EdgeSamples:        int(edgeSamples.Int64),
		Normalization:      normalization.String,
	}
	return nil
}

func (s *SQLiteProvider) loadFit(config *ConfigData) error {
	query := `
		SELECT n_components, window_low, window_high, rest_wavelength,
		       ion_mass_kg, max_iterations, tolerance
		FROM fit
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var ionMass, tolerance sql.NullFloat64
	var maxIterations sql.NullInt64

	err := s.db.QueryRow(query).Scan(
		&config.Fit.Components, &config.Fit.WindowLow, &config.Fit.WindowHigh,
		&config.Fit.RestWavelength, &ionMass, &maxIterations, &tolerance,
	)
	if err != nil {
		return err
	}

	config.Fit.IonMassKg = ionMass.Float64
	config.Fit.MaxIterations = int(maxIterations.Int64)
	config.Fit.Tolerance = tolerance.Float64
	return nil
}

func (s *SQLiteProvider) loadSession(config *ConfigData) error {
	query := `
		SELECT workers, require_convergence, checkpoint_path
		FROM session
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var workers sql.NullInt64
	var requireConvergence sql.NullBool
	var checkpointPath sql.NullString

	err := s.db.QueryRow(query).Scan(&workers, &requireConvergence, &checkpointPath)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	config.Session = SessionData{
		Workers:            int(workers.Int64),
		RequireConvergence: requireConvergence.Bool,
		CheckpointPath:     checkpointPath.String,
	}
	return nil
}

func (s *SQLiteProvider) loadHTTP(config *ConfigData) error {
	query := `
		SELECT listen_addr
		FROM http
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var listenAddr sql.NullString
	err := s.db.QueryRow(query).Scan(&listenAddr)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if listenAddr.Valid && listenAddr.String != "" {
		config.HTTP = &HTTPData{ListenAddr: listenAddr.String}
	}
	return nil
}

// parseWeights decodes a comma-separated weight list stored in a single
// text column.
func parseWeights(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

// IsReadOnly returns false: SQLite-backed configurations are editable.
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the underlying database handle.
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
