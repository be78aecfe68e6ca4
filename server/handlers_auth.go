package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/milozanoo/streamsupport/backend/auth"
	"github.com/milozanoo/streamsupport/backend/config"
	"github.com/milozanoo/streamsupport/backend/telemetry"
	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

// HandleOAuthStart initiates the Twitch OAuth flow by redirecting to Twitch.
// ?flow=implicit builds a response_type=token URL for the popup variant;
// the default is the server-side authorization code flow.
func (h *Handlers) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load() // ignore error; minimal usage
	if cfg.TwitchClientID == "" || cfg.TwitchRedirectURI == "" {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + TWITCH_REDIRECT_URI)", http.StatusBadRequest)
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, time.Now().Add(10*time.Minute))

	var authURL string
	if r.URL.Query().Get("flow") == "implicit" {
		u, err := twitchapi.BuildImplicitAuthorizeURL(cfg.TwitchClientID, cfg.TwitchRedirectURI, cfg.TwitchScopes, st)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		authURL = u
	} else {
		authURL = twitchapi.OAuthConfig(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.TwitchScopes).AuthCodeURL(st)
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleOAuthCallback exchanges the authorization code, hands the token to
// the lifecycle manager, and posts an auth event back to the opener window.
func (h *Handlers) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	cfg, _ := config.Load()
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		h.writeAuthEventPage(w, auth.ErrorEvent("missing code/state"))
		return
	}
	if !h.consumeOAuthState(st) {
		h.writeAuthEventPage(w, auth.ErrorEvent("invalid state"))
		return
	}
	ctx := r.Context()
	oauthCfg := twitchapi.OAuthConfig(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.TwitchScopes)
	tok, err := twitchapi.ExchangeAuthCode(ctx, oauthCfg, code)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("code exchange failed", slog.Any("err", err))
		h.writeAuthEventPage(w, auth.ErrorEvent("code exchange failed"))
		return
	}
	if err := h.authMgr.ReceiveToken(ctx, tok.AccessToken); err != nil {
		h.writeAuthEventPage(w, auth.ErrorEvent("token store failed"))
		return
	}
	if _, err := h.validateToken(ctx); err != nil {
		h.writeAuthEventPage(w, auth.ErrorEvent("token validation failed"))
		return
	}
	h.writeAuthEventPage(w, auth.SuccessEvent(tok.AccessToken, st))
}

// writeAuthEventPage renders the popup page that posts the auth event to the
// opener and closes itself.
func (h *Handlers) writeAuthEventPage(w http.ResponseWriter, ev auth.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		http.Error(w, "encode event", 500)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if ev.Type == auth.EventAuthError {
		w.WriteHeader(http.StatusBadRequest)
	}
	fmt.Fprintf(w, `<!DOCTYPE html><html><body><script>
if (window.opener) { window.opener.postMessage(%s, "*"); }
window.close();
</script><p>%s</p></body></html>`, payload, html.EscapeString(ev.Type))
}

// HandleTokenReceive accepts an auth event from the browser (implicit-grant
// fragment or popup relay), stores the token, and validates it.
// Body: {"type":"AUTH_SUCCESS","token":"...","state":"..."} or
// {"url":"<redirect url with #access_token fragment>"}.
func (h *Handlers) HandleTokenReceive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		auth.Event
		URL string `json:"url,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	ev := body.Event
	if body.URL != "" {
		token, state := twitchapi.ExtractTokenFromFragment(body.URL)
		if token == "" {
			http.Error(w, "no access_token in url fragment", 400)
			return
		}
		ev = auth.SuccessEvent(token, state)
	}
	if ev.Type == "" && ev.Token != "" {
		ev.Type = auth.EventAuthSuccess
	}
	// Implicit-flow states are minted by /auth/twitch/start?flow=implicit,
	// so any state the event carries must consume successfully exactly once.
	if ev.State != "" && !h.consumeOAuthState(ev.State) {
		http.Error(w, "invalid state", 400)
		return
	}
	token, err := auth.CheckEvent(ev, "")
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	ctx := r.Context()
	if err := h.authMgr.ReceiveToken(ctx, token); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	rec, err := h.validateToken(ctx)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "invalid", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"status": "ok", "login": rec.Login, "expires_at": rec.ExpiresAt}); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// validateToken runs introspection through the manager and keeps the
// validation counters current.
func (h *Handlers) validateToken(ctx context.Context) (*auth.ValidationRecord, error) {
	if telemetry.TokenValidations != nil {
		telemetry.TokenValidations.Inc()
	}
	rec, err := h.authMgr.Validate(ctx)
	if err != nil && telemetry.TokenValidationFail != nil {
		telemetry.TokenValidationFail.Inc()
	}
	return rec, err
}

// HandleAuthStatus reports the lifecycle state and, when authenticated, the
// validated identity.
func (h *Handlers) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{"state": h.authMgr.State().String()}
	if info := h.authMgr.Info(); info != nil {
		resp["login"] = info.Login
		resp["user_id"] = info.UserID
		resp["scopes"] = info.Scopes
		resp["expires_at"] = info.ExpiresAt
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// HandleLogout clears all auth state.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.authMgr.Logout(r.Context()); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "logged_out"})
}
