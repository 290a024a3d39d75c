package session

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zaphd/plasmaspec/internal/types"
)

// loadCheckpoint reads previously completed records keyed by source path.
// A missing checkpoint file is not an error; campaigns usually start cold.
func (s *Session) loadCheckpoint() (map[string]types.ShotRecord, error) {
	path := s.cfg.Session.CheckpointPath
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []types.ShotRecord
	if err := msgpack.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}

	byPath := make(map[string]types.ShotRecord, len(records))
	for _, rec := range records {
		// Failed slots are re-attempted on resume; only fully successful
		// records are worth skipping.
		ok := true
		for _, o := range rec.Outcomes {
			if o.Failed {
				ok = false
				break
			}
		}
		if ok && rec.SourcePath != "" {
			byPath[rec.SourcePath] = rec
		}
	}

	s.logger.Infof("loaded checkpoint %s: %d reusable records", path, len(byPath))
	return byPath, nil
}

// saveCheckpoint writes the completed records through a temp-file rename so
// an interrupt mid-write cannot corrupt the previous checkpoint.
func (s *Session) saveCheckpoint(records []types.ShotRecord) error {
	path := s.cfg.Session.CheckpointPath
	if path == "" {
		return nil
	}

	raw, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
