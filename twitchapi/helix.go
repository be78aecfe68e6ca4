// Package twitchapi contains the Twitch Helix and id.twitch.tv helpers used
// by StreamSupport: user/stream/game lookups, OAuth URL building and code
// exchange, token introspection, and an app access token source.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TokenProvider yields a bearer token for Helix calls. Both the app
// credentials TokenSource and the user token manager satisfy it.
type TokenProvider interface {
	Get(ctx context.Context) (string, error)
}

// User is a Twitch user as returned by GET /helix/users.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Stream is a live stream as returned by GET /helix/streams.
type Stream struct {
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	UserName    string    `json:"user_name"`
	GameID      string    `json:"game_id"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// Game is a category as returned by GET /helix/games.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// HelixClient provides the Helix lookups StreamSupport needs.
type HelixClient struct {
	TokenSource TokenProvider
	ClientID    string
	HTTPClient  *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) get(ctx context.Context, rawURL string, query map[string][]string, out any) error {
	tok, err := hc.TokenSource.Get(ctx)
	if err != nil {
		return &APIError{Kind: KindAuth, Message: "no usable token", Err: err}
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	q := req.URL.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: "helix request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode,
			Message: fmt.Sprintf("helix: %s: %s", resp.Status, string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindNetwork, Message: "helix response decode failed", Err: err}
	}
	return nil
}

// GetUser resolves a login name to its user record. A missing user is a
// NotFound condition, not a transport failure.
func (hc *HelixClient) GetUser(ctx context.Context, login string) (*User, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	var body struct {
		Data []User `json:"data"`
	}
	if err := hc.get(ctx, "https://api.twitch.tv/helix/users", map[string][]string{"login": {login}}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("user %q not found", login)}
	}
	return &body.Data[0], nil
}

// GetStreams returns the currently live streams among the given logins.
// Logins absent from the result are offline. An empty input returns an empty
// slice without a network call.
func (hc *HelixClient) GetStreams(ctx context.Context, logins ...string) ([]Stream, error) {
	if len(logins) == 0 {
		return []Stream{}, nil
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.get(ctx, "https://api.twitch.tv/helix/streams", map[string][]string{"user_login": logins}, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		body.Data = []Stream{}
	}
	return body.Data, nil
}

// GetGame resolves a game/category id to its metadata.
func (hc *HelixClient) GetGame(ctx context.Context, id string) (*Game, error) {
	if id == "" {
		return nil, fmt.Errorf("game id empty")
	}
	var body struct {
		Data []Game `json:"data"`
	}
	if err := hc.get(ctx, "https://api.twitch.tv/helix/games", map[string][]string{"id": {id}}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, &APIError{Kind: KindNotFound, Message: fmt.Sprintf("game %q not found", id)}
	}
	return &body.Data[0], nil
}
