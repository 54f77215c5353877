package main

import (
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/vllry/bus-traffic-archive/pkg/aggregate"
	"github.com/vllry/bus-traffic-archive/pkg/types"
)

// POST /ingest?date=2024-03-01
func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date, err := civil.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid or missing date parameter", http.StatusBadRequest)
		return
	}

	result, err := s.orchestrator.Ingest(r.Context(), date)
	if err != nil {
		s.log.Errorw("ingestion failed", "date", date.String(), "error", err)
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /country-stats?from=2024-03-01&to=2024-03-07
func (s *server) handleCountryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := civil.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid or missing from parameter", http.StatusBadRequest)
		return
	}
	to, err := civil.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid or missing to parameter", http.StatusBadRequest)
		return
	}

	stats, err := s.engine.ComputeRange(r.Context(), from, to)
	if errors.Is(err, aggregate.ErrInvalidRange) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Errorw("aggregation failed", "from", from.String(), "to", to.String(), "error", err)
		http.Error(w, "aggregation failed", http.StatusInternalServerError)
		return
	}

	if stats == nil {
		stats = []types.CountryDayStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /ingested-dates?from=2024-03-01&to=2024-03-31
// Lists the dates in the range that have a blob in the store.
func (s *server) handleIngestedDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := civil.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid or missing from parameter", http.StatusBadRequest)
		return
	}
	to, err := civil.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid or missing to parameter", http.StatusBadRequest)
		return
	}

	dates, err := s.store.List(r.Context(), from, to)
	if err != nil {
		s.log.Errorw("listing failed", "error", err)
		http.Error(w, "listing failed", http.StatusInternalServerError)
		return
	}

	if dates == nil {
		dates = []civil.Date{}
	}
	writeJSON(w, http.StatusOK, dates)
}

// GET /health
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
