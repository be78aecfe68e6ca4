package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/support"
)

// HandleRecords lists support records (GET, newest first, ?limit=N) or saves
// one (POST). A blank id gets a generated one on insert.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", 400)
				return
			}
			limit = n
		}
		records, err := db.ListSupportRecords(r.Context(), h.db, limit)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			slog.Warn("failed to encode JSON response", slog.Any("err", err))
		}
	case http.MethodPost:
		var rec support.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			http.Error(w, "invalid json", 400)
			return
		}
		if rec.Target == "" {
			http.Error(w, "missing target", 400)
			return
		}
		if rec.Hours < 1 || rec.Hours > 5 {
			http.Error(w, "hours must be between 1 and 5", 400)
			return
		}
		saved, err := db.SaveSupportRecord(r.Context(), h.db, rec)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		slog.Info("support record saved",
			slog.String("id", saved.ID),
			slog.String("target", saved.Target),
			slog.Int("hours", saved.Hours))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(saved)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRecordByID deletes one record.
// DELETE /api/records/{id}
func (h *Handlers) HandleRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing record id", 400)
		return
	}
	deleted, err := db.DeleteSupportRecord(r.Context(), h.db, id)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if !deleted {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRanking aggregates all records into the points ranking.
// GET /api/ranking
func (h *Handlers) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := db.ListSupportRecords(r.Context(), h.db, 0)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(support.BuildRanking(records)); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
