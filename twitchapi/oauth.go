package twitchapi

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthConfig builds the x/oauth2 config for the Twitch authorization code
// grant used by the server-side popup flow.
func OAuthConfig(clientID, clientSecret, redirectURI, scopes string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(strings.ReplaceAll(scopes, ",", " ")),
		Endpoint:     endpoints.Twitch,
	}
}

// BuildImplicitAuthorizeURL constructs the implicit-grant authorization URL
// (response_type=token) used when the browser talks to Twitch directly and
// receives the token in the redirect fragment.
func BuildImplicitAuthorizeURL(clientID, redirectURI, scopes, state string) (string, error) {
	if clientID == "" || redirectURI == "" {
		return "", errors.New("missing clientID or redirectURI")
	}
	v := url.Values{}
	v.Set("response_type", "token")
	v.Set("client_id", clientID)
	v.Set("redirect_uri", redirectURI)
	if scopes != "" {
		v.Set("scope", strings.TrimSpace(strings.ReplaceAll(scopes, ",", " ")))
	}
	if state != "" {
		v.Set("state", state)
	}
	return "https://id.twitch.tv/oauth2/authorize?" + v.Encode(), nil
}

// ExtractTokenFromFragment pulls access_token and state out of a redirect
// URL's fragment. Returns empty strings when no token is present; a URL
// without a token is not an error.
func ExtractTokenFromFragment(rawURL string) (token, state string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Fragment == "" {
		return "", ""
	}
	vals, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", ""
	}
	return vals.Get("access_token"), vals.Get("state")
}

// ExchangeAuthCode exchanges an authorization code for tokens via the code
// grant. The returned token carries the absolute expiry computed by x/oauth2.
func ExchangeAuthCode(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || code == "" {
		return nil, errors.New("missing required parameter for auth code exchange")
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &APIError{Kind: KindAuth, Message: "auth code exchange failed", Err: err}
	}
	return tok, nil
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to
// +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}
