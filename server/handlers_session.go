package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/support"
	"github.com/milozanoo/streamsupport/backend/telemetry"
)

// persistAccount writes the engine's account snapshot to the database. Session
// state itself is ephemeral; only the folded account survives a restart.
func (h *Handlers) persistAccount(r *http.Request) {
	if err := db.SaveAccount(r.Context(), h.db, h.engine.Account()); err != nil {
		slog.Warn("failed to persist account", slog.Any("err", err))
	}
}

// recordSummary updates the session metrics for a finished session, whether
// it ended by an explicit stop or by being replaced.
func (h *Handlers) recordSummary(sum support.Summary) {
	telemetry.SessionsCompleted.Inc()
	telemetry.AddPoints(sum.PointsEarned)
	telemetry.InteractionsScored.Add(float64(sum.CommentsDetected))
	if telemetry.SessionDuration != nil {
		telemetry.SessionDuration.Observe(float64(sum.TotalMinutes) * 60)
	}
}

// HandleSessionStart starts a support session.
// POST /api/session/start {"channel":"...","name":"...","replace":false}
func (h *Handlers) HandleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Channel string `json:"channel"`
		Name    string `json:"name"`
		Replace bool   `json:"replace"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	channel := strings.ToLower(strings.TrimSpace(body.Channel))
	if channel == "" {
		http.Error(w, "missing channel", 400)
		return
	}
	if body.Name == "" {
		body.Name = channel
	}
	displaced, err := h.engine.StartSession(channel, body.Name, body.Replace)
	if err != nil {
		if errors.Is(err, support.ErrSessionActive) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	if displaced != nil {
		// The replaced session's points are already folded into the account;
		// persist and count them like a normal stop would.
		h.recordSummary(*displaced)
		h.persistAccount(r)
	}
	telemetry.SessionsStarted.Inc()
	telemetry.UpdateSessionGauge(true)
	slog.Info("support session started", slog.String("channel", channel))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.CurrentSession()); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleSessionStop ends the active session and returns its totals.
// POST /api/session/stop
func (h *Handlers) HandleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sum, err := h.engine.StopSession()
	if err != nil {
		if errors.Is(err, support.ErrNoActiveSession) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	h.recordSummary(sum)
	telemetry.UpdateSessionGauge(false)
	h.persistAccount(r)
	slog.Info("support session stopped",
		slog.Int("minutes", sum.TotalMinutes),
		slog.Int("points", sum.PointsEarned),
		slog.Int("comments", sum.CommentsDetected))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleSessionStatus returns the live session snapshot.
// GET /api/session/status
func (h *Handlers) HandleSessionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.CurrentSession()); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleAccount returns the account with its derived metrics.
// GET /api/account
func (h *Handlers) HandleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.Account()); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleBookSlot books a weekly slot against the quota.
// POST /api/account/slots {"hour":"20:00","day":"monday"}
func (h *Handlers) HandleBookSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Hour string `json:"hour"`
		Day  string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	if body.Hour == "" || body.Day == "" {
		http.Error(w, "missing hour or day", 400)
		return
	}
	if err := h.engine.BookSlot(body.Hour, body.Day); err != nil {
		switch {
		case errors.Is(err, support.ErrQuotaExceeded):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, support.ErrDuplicateSlot):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), 500)
		}
		return
	}
	telemetry.SlotsBooked.Inc()
	h.persistAccount(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(h.engine.Account())
}
