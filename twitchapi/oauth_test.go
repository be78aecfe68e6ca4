package twitchapi

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestBuildImplicitAuthorizeURL(t *testing.T) {
	got, err := BuildImplicitAuthorizeURL("client-id", "https://example.com/callback", "user:read:email chat:read", "st4te")
	if err != nil {
		t.Fatalf("BuildImplicitAuthorizeURL() error = %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "id.twitch.tv" || u.Path != "/oauth2/authorize" {
		t.Errorf("url = %s, want id.twitch.tv/oauth2/authorize", got)
	}
	q := u.Query()
	if q.Get("response_type") != "token" {
		t.Errorf("response_type = %s, want token", q.Get("response_type"))
	}
	if q.Get("client_id") != "client-id" || q.Get("state") != "st4te" {
		t.Errorf("client_id/state = %s/%s", q.Get("client_id"), q.Get("state"))
	}
	if !strings.Contains(q.Get("scope"), "chat:read") {
		t.Errorf("scope = %s, want chat:read included", q.Get("scope"))
	}
}

func TestBuildImplicitAuthorizeURLMissingClient(t *testing.T) {
	if _, err := BuildImplicitAuthorizeURL("", "https://example.com", "", ""); err == nil {
		t.Error("expected error for missing clientID")
	}
}

func TestExtractTokenFromFragment(t *testing.T) {
	tests := []struct {
		name      string
		rawURL    string
		wantToken string
		wantState string
	}{
		{
			name:      "token and state present",
			rawURL:    "https://example.com/callback#access_token=abc123&scope=user%3Aread%3Aemail&state=xyz&token_type=bearer",
			wantToken: "abc123",
			wantState: "xyz",
		},
		{
			name:   "no fragment",
			rawURL: "https://example.com/callback?error=access_denied",
		},
		{
			name:   "fragment without token",
			rawURL: "https://example.com/callback#foo=bar",
		},
		{
			name:   "unparsable url",
			rawURL: "://bad",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, state := ExtractTokenFromFragment(tt.rawURL)
			if token != tt.wantToken || state != tt.wantState {
				t.Errorf("ExtractTokenFromFragment() = (%q, %q), want (%q, %q)",
					token, state, tt.wantToken, tt.wantState)
			}
		})
	}
}

func TestOAuthConfigScopes(t *testing.T) {
	cfg := OAuthConfig("id", "secret", "https://example.com/cb", "user:read:email, chat:read")
	if len(cfg.Scopes) != 2 {
		t.Fatalf("scopes = %v, want 2 entries", cfg.Scopes)
	}
	if cfg.Scopes[0] != "user:read:email" || cfg.Scopes[1] != "chat:read" {
		t.Errorf("scopes = %v", cfg.Scopes)
	}
}

func TestComputeExpiry(t *testing.T) {
	exp := ComputeExpiry(3600)
	if until := time.Until(exp); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("ComputeExpiry(3600) = %v from now, want ~1h", until)
	}
	exp = ComputeExpiry(0)
	if until := time.Until(exp); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("ComputeExpiry(0) = %v from now, want 60m default", until)
	}
}
