package restserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/zaphd/plasmaspec/internal/types"
)

type healthResponse struct {
	Status  string    `json:"status"`
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
	Records int       `json:"records"`
}

type runResponse struct {
	RunID   string `json:"run_id"`
	Records int    `json:"records"`
	Failed  int    `json:"failed_slots"`
}

func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	records := c.store.Snapshot()
	writeJSON(w, healthResponse{
		Status:  "ok",
		RunID:   c.store.runID,
		Started: c.store.started,
		Records: len(records),
	})
}

func (c *Controller) handleRun(w http.ResponseWriter, r *http.Request) {
	records := c.store.Snapshot()
	failed := 0
	for _, rec := range records {
		for _, o := range rec.Outcomes {
			if o.Failed {
				failed++
			}
		}
	}
	writeJSON(w, runResponse{
		RunID:   c.store.runID,
		Records: len(records),
		Failed:  failed,
	})
}

func (c *Controller) handleResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.store.Snapshot())
}

// handleROIResults filters result rows down to a single ROI.
func (c *Controller) handleROIResults(w http.ResponseWriter, r *http.Request) {
	roi := mux.Vars(r)["roi"]

	var rows []types.ResultRow
	for _, rec := range c.store.Snapshot() {
		for _, row := range rec.Rows() {
			if row.ROIName == roi {
				rows = append(rows, row)
			}
		}
	}
	if rows == nil {
		http.Error(w, "unknown roi", http.StatusNotFound)
		return
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
