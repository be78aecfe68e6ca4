package auth

import "fmt"

// Event types delivered to the opener window by the popup callback page.
const (
	EventAuthSuccess = "AUTH_SUCCESS"
	EventAuthError   = "AUTH_ERROR"
)

// Event is the message posted back from the OAuth popup flow.
type Event struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// SuccessEvent builds an AUTH_SUCCESS event carrying the token.
func SuccessEvent(token, state string) Event {
	return Event{Type: EventAuthSuccess, Token: token, State: state}
}

// ErrorEvent builds an AUTH_ERROR event with a human-readable reason.
func ErrorEvent(reason string) Event {
	return Event{Type: EventAuthError, Error: reason}
}

// CheckEvent verifies an incoming event against the expected state value.
// Only AUTH_SUCCESS events with a matching state yield a token.
func CheckEvent(ev Event, wantState string) (string, error) {
	switch ev.Type {
	case EventAuthSuccess:
		if wantState != "" && ev.State != wantState {
			return "", fmt.Errorf("auth event state mismatch")
		}
		if ev.Token == "" {
			return "", fmt.Errorf("auth event missing token")
		}
		return ev.Token, nil
	case EventAuthError:
		if ev.Error == "" {
			return "", fmt.Errorf("authentication failed")
		}
		return "", fmt.Errorf("authentication failed: %s", ev.Error)
	default:
		return "", fmt.Errorf("unknown auth event type %q", ev.Type)
	}
}
