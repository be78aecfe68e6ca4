package twitchapi

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an API failure for the caller's error policy.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindNetwork covers transport failures: connection errors, timeouts, 5xx.
	KindNetwork
	// KindAuth covers invalid or expired tokens and state mismatches.
	KindAuth
	// KindNotFound covers missing channels, users, or games.
	KindNotFound
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// APIError is a classified Twitch API failure. Message is safe to show to
// the user; Err carries the underlying cause when there is one.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500 || status == http.StatusTooManyRequests:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Classify maps an arbitrary error into a Kind. Typed APIErrors keep their
// kind; everything else is matched on message patterns, the way transient
// transport failures usually surface.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	lower := strings.ToLower(err.Error())

	authPatterns := []string{"401", "403", "unauthorized", "invalid access token", "access denied", "login required", "state mismatch"}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) {
			return KindAuth
		}
	}

	notFoundPatterns := []string{"404", "not found", "does not exist"}
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return KindNotFound
		}
	}

	networkPatterns := []string{
		"connection reset",
		"connection refused",
		"connection timed out",
		"timeout",
		"no route to host",
		"network unreachable",
		"temporary failure in name resolution",
		"dns",
		"eof",
		"broken pipe",
		"500", "502", "503", "504",
		"too many requests", "429",
	}
	for _, p := range networkPatterns {
		if strings.Contains(lower, p) {
			return KindNetwork
		}
	}

	return KindUnknown
}

// IsAuthError reports whether err is an authentication/authorization failure.
func IsAuthError(err error) bool { return Classify(err) == KindAuth }

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool { return Classify(err) == KindNotFound }

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool { return Classify(err) == KindNetwork }
