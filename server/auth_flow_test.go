package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/milozanoo/streamsupport/backend/auth"
)

func TestHandleAuthStatusUnauthenticated(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil, nil)

	w := httptest.NewRecorder()
	h.HandleAuthStatus(w, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["state"] != "unauthenticated" {
		t.Errorf("state = %v, want unauthenticated", resp["state"])
	}
	if _, ok := resp["login"]; ok {
		t.Error("login should be absent before validation")
	}
}

func TestHandleTokenReceiveEvent(t *testing.T) {
	h, _, mgr := newTestHandlers(t, nil, nil)

	w := httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"tok-123"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" || resp["login"] != "tester" {
		t.Errorf("resp = %v, want ok for tester", resp)
	}
	if got := mgr.State(); got != auth.Authenticated {
		t.Errorf("manager state = %v, want Authenticated", got)
	}
}

func TestHandleTokenReceiveFragmentURL(t *testing.T) {
	h, _, mgr := newTestHandlers(t, nil, nil)

	w := httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"url":"http://localhost:8080/auth/twitch/callback#access_token=frag-tok&scope=chat%3Aread&token_type=bearer"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	if got := mgr.Token(); got != "frag-tok" {
		t.Errorf("stored token = %q, want frag-tok", got)
	}
}

func TestHandleTokenReceiveBadEvent(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"error event", `{"type":"AUTH_ERROR","error":"denied"}`},
		{"empty token", `{"type":"AUTH_SUCCESS"}`},
		{"fragment without token", `{"url":"http://localhost/cb#scope=chat%3Aread"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token", strings.NewReader(tc.body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHandleTokenReceiveStateValidation(t *testing.T) {
	h, _, mgr := newTestHandlers(t, nil, nil)
	h.addOAuthState("known-state", time.Now().Add(10*time.Minute))

	// Unknown state is rejected before the token is stored.
	w := httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"tok-123","state":"forged"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("forged state status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if mgr.Token() != "" {
		t.Error("token must not be stored when the state fails validation")
	}

	// The minted state passes once.
	w = httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"tok-123","state":"known-state"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("minted state status = %d, body=%s", w.Code, w.Body.String())
	}

	// Replaying it fails.
	w = httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"tok-456","state":"known-state"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("replayed state status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleTokenReceiveValidationFailure(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil, nil)

	// Swap in a failing validator before the token arrives.
	failing := auth.NewManager(&memAuthStore{}, &stubValidator{err: errors.New("invalid token")}, nil)
	h.authMgr = failing

	w := httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"bad-tok"}`)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := failing.State(); got != auth.Unauthenticated {
		t.Errorf("manager state = %v, want Unauthenticated after failed validation", got)
	}
	if failing.Token() != "" {
		t.Error("token should be cleared after failed validation")
	}
}

func TestHandleLogout(t *testing.T) {
	h, _, mgr := newTestHandlers(t, nil, nil)

	w := httptest.NewRecorder()
	h.HandleTokenReceive(w, httptest.NewRequest(http.MethodPost, "/auth/twitch/token",
		strings.NewReader(`{"type":"AUTH_SUCCESS","token":"tok-123"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("setup token receive status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.HandleLogout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if got := mgr.State(); got != auth.Unauthenticated {
		t.Errorf("manager state = %v, want Unauthenticated after logout", got)
	}
}
