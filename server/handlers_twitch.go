package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

// writeTwitchError maps a Helix failure onto an HTTP status by error kind.
func writeTwitchError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch twitchapi.Classify(err) {
	case twitchapi.KindAuth:
		status = http.StatusUnauthorized
	case twitchapi.KindNotFound:
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// HandleValidateChannel verifies that a Twitch channel exists.
// GET /api/twitch/validate/{channel}
func (h *Handlers) HandleValidateChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	channel := strings.TrimPrefix(r.URL.Path, "/api/twitch/validate/")
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" || strings.Contains(channel, "/") {
		http.Error(w, "missing channel", 400)
		return
	}
	user, err := h.helix.GetUser(r.Context(), channel)
	if err != nil {
		if twitchapi.IsNotFound(err) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"valid": false, "channel": channel})
			return
		}
		writeTwitchError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"valid":        true,
		"channel":      user.Login,
		"user_id":      user.ID,
		"display_name": user.DisplayName,
	}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleChannels lists registered channels (GET) or registers one (POST).
// Registration verifies the login against Helix before the upsert, so only
// real channels land in the table; re-registering refreshes the metadata.
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		channels, err := db.ListChannels(r.Context(), h.db)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(channels); err != nil {
			slog.Warn("failed to encode JSON response", slog.Any("err", err))
		}
	case http.MethodPost:
		var body struct {
			Login string `json:"login"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", 400)
			return
		}
		login := strings.ToLower(strings.TrimSpace(body.Login))
		if login == "" {
			http.Error(w, "missing login", 400)
			return
		}
		ctx := r.Context()
		user, err := h.helix.GetUser(ctx, login)
		if err != nil {
			writeTwitchError(w, err)
			return
		}
		if err := db.UpsertChannel(ctx, h.db, user.Login, user.ID, user.DisplayName); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		slog.Info("channel registered", slog.String("channel", user.Login))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"login":        user.Login,
			"twitch_id":    user.ID,
			"display_name": user.DisplayName,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleStreams serves live streams. Without a query it returns the cached
// poll over registered channels; ?login=a,b asks Helix ad hoc.
func (h *Handlers) HandleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if raw := r.URL.Query().Get("login"); raw != "" {
		logins := []string{}
		for _, l := range strings.Split(raw, ",") {
			if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
				logins = append(logins, l)
			}
		}
		streams, err := h.helix.GetStreams(ctx, logins...)
		if err != nil {
			writeTwitchError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(streams); err != nil {
			slog.Warn("failed to encode JSON response", slog.Any("err", err))
		}
		return
	}
	streams, err := db.LoadLiveStreams(ctx, h.db)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(streams); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleGame looks up a category by id.
// GET /api/twitch/games/{id}
func (h *Handlers) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/twitch/games/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing game id", 400)
		return
	}
	game, err := h.helix.GetGame(r.Context(), id)
	if err != nil {
		writeTwitchError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(game); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}
