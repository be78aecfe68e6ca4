package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ValidationInfo is the token introspection result from
// GET id.twitch.tv/oauth2/validate.
type ValidationInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// Validator introspects a user access token against the identity provider.
type Validator struct {
	HTTPClient *http.Client
}

func (v *Validator) http() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return http.DefaultClient
}

// Validate introspects the token. Any non-2xx response is an AuthError: the
// token is unusable and the caller must re-authenticate; there is no retry.
func (v *Validator) Validate(ctx context.Context, token string) (*ValidationInfo, error) {
	if token == "" {
		return nil, &APIError{Kind: KindAuth, Message: "empty token"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://id.twitch.tv/oauth2/validate", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+token)
	resp, err := v.http().Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "token validation request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Kind: KindAuth, Status: resp.StatusCode,
			Message: fmt.Sprintf("token rejected: %s: %s", resp.Status, string(b))}
	}
	var info ValidationInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "validation response decode failed", Err: err}
	}
	return &info, nil
}
