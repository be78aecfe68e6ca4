package twitchapi

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil error", nil, KindUnknown},
		{"api error auth", &APIError{Kind: KindAuth, Status: 401, Message: "invalid token"}, KindAuth},
		{"api error not found", &APIError{Kind: KindNotFound, Status: 404}, KindNotFound},
		{"wrapped api error", fmt.Errorf("get user: %w", &APIError{Kind: KindNetwork, Status: 502}), KindNetwork},
		{"unauthorized string", errors.New("request failed: 401 Unauthorized"), KindAuth},
		{"invalid token string", errors.New("Invalid access token"), KindAuth},
		{"state mismatch", errors.New("oauth state mismatch"), KindAuth},
		{"not found string", errors.New("channel does not exist"), KindNotFound},
		{"404 string", errors.New("helix returned 404"), KindNotFound},
		{"connection refused", errors.New("dial tcp: connection refused"), KindNetwork},
		{"timeout", errors.New("context deadline exceeded: timeout"), KindNetwork},
		{"dns failure", errors.New("lookup api.twitch.tv: temporary failure in name resolution"), KindNetwork},
		{"server error code", errors.New("unexpected status 503"), KindNetwork},
		{"rate limited", errors.New("too many requests"), KindNetwork},
		{"unrelated error", errors.New("json: cannot unmarshal"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{404, KindNotFound},
		{429, KindNetwork},
		{500, KindNetwork},
		{503, KindNetwork},
		{400, KindUnknown},
		{422, KindUnknown},
	}
	for _, tt := range tests {
		if got := kindForStatus(tt.status); got != tt.want {
			t.Errorf("kindForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := &APIError{Kind: KindNetwork, Message: "helix request", Err: base}
	if !errors.Is(err, base) {
		t.Error("errors.Is should reach wrapped cause")
	}
	if !IsNetworkError(err) {
		t.Error("IsNetworkError should be true for KindNetwork")
	}
	if IsAuthError(err) {
		t.Error("IsAuthError should be false for KindNetwork")
	}
}
