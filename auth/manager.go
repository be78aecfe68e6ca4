// Package auth manages the lifecycle of the user's Twitch access token:
// receiving it from the browser, validating it against the identity provider,
// tracking its absolute expiry deadline, and clearing state on logout or
// validation failure. Persisted state survives restarts via a Store.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

// State is the authentication lifecycle phase.
type State int

const (
	// Unauthenticated means no token is held.
	Unauthenticated State = iota
	// PendingValidation means a token was received but not yet introspected.
	PendingValidation
	// Authenticated means the held token passed introspection.
	Authenticated
	// Expiring means the token's deadline is within the expiry window;
	// the token has been cleared and the user must re-authenticate.
	Expiring
)

func (s State) String() string {
	switch s {
	case PendingValidation:
		return "pending_validation"
	case Authenticated:
		return "authenticated"
	case Expiring:
		return "expiring"
	default:
		return "unauthenticated"
	}
}

// ExpiryWindow is how close to the deadline a token is considered expiring.
const ExpiryWindow = 60 * time.Second

// ValidationRecord is the persisted result of a successful introspection.
// ExpiresAt is the absolute deadline derived at validation time; it stays
// meaningful across restarts in a way the provider's relative expires_in
// would not.
type ValidationRecord struct {
	ClientID  string    `json:"client_id"`
	Login     string    `json:"login"`
	UserID    string    `json:"user_id"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists auth state between restarts.
type Store interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	SaveValidation(ctx context.Context, rec ValidationRecord) error
	LoadValidation(ctx context.Context) (*ValidationRecord, error)
	ClearAuth(ctx context.Context) error
}

// TokenValidator introspects a user token. *twitchapi.Validator satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*twitchapi.ValidationInfo, error)
}

// Manager owns the token lifecycle state machine.
type Manager struct {
	mu        sync.Mutex
	state     State
	token     string
	info      *ValidationRecord
	store     Store
	validator TokenValidator
	clock     clockwork.Clock

	// ExpiredFunc, when set, is called (outside the lock) after CheckExpiry
	// moves the manager to Expiring.
	ExpiredFunc func()
}

// NewManager builds a Manager. A nil clock means the real clock.
func NewManager(store Store, validator TokenValidator, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		state:     Unauthenticated,
		store:     store,
		validator: validator,
		clock:     clock,
	}
}

// Restore loads persisted token and validation state. A stored token without
// validation info lands in PendingValidation; stored validation info past its
// deadline is discarded.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return nil
	}
	rec, err := m.store.LoadValidation(ctx)
	if err != nil {
		return fmt.Errorf("load validation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	if rec != nil && m.clock.Now().Before(rec.ExpiresAt) {
		m.info = rec
		m.state = Authenticated
		slog.Info("auth state restored", slog.String("login", rec.Login), slog.Time("expires_at", rec.ExpiresAt))
	} else {
		m.state = PendingValidation
		slog.Info("stored token pending validation")
	}
	return nil
}

// ReceiveToken stores a raw token handed over by the browser and moves to
// PendingValidation. The token is persisted before the state changes so a
// crash between the two cannot lose it.
func (m *Manager) ReceiveToken(ctx context.Context, raw string) error {
	if raw == "" {
		return fmt.Errorf("receive token: empty token")
	}
	if err := m.store.SaveToken(ctx, raw); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	m.mu.Lock()
	m.token = raw
	m.info = nil
	m.state = PendingValidation
	m.mu.Unlock()
	return nil
}

// Validate introspects the held token. Success records {clientId, login,
// userId, scopes} plus an absolute deadline and moves to Authenticated.
// Failure clears everything, moves to Unauthenticated, and returns the
// classified error; there is no retry.
func (m *Manager) Validate(ctx context.Context) (*ValidationRecord, error) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return nil, &twitchapi.APIError{Kind: twitchapi.KindAuth, Message: "validate: no token held"}
	}

	info, err := m.validator.Validate(ctx, token)
	if err != nil {
		if clearErr := m.clearLocked(ctx); clearErr != nil {
			slog.Warn("clearing auth state after failed validation", slog.Any("err", clearErr))
		}
		return nil, fmt.Errorf("token validation: %w", err)
	}

	rec := ValidationRecord{
		ClientID:  info.ClientID,
		Login:     info.Login,
		UserID:    info.UserID,
		Scopes:    info.Scopes,
		ExpiresAt: m.clock.Now().Add(time.Duration(info.ExpiresIn) * time.Second),
	}
	if err := m.store.SaveValidation(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist validation: %w", err)
	}

	m.mu.Lock()
	m.info = &rec
	m.state = Authenticated
	m.mu.Unlock()
	slog.Info("token validated", slog.String("login", rec.Login), slog.Time("expires_at", rec.ExpiresAt))
	return &rec, nil
}

// CheckExpiry compares the recorded deadline against the clock. Within the
// expiry window the token is cleared, the state becomes Expiring, and
// ExpiredFunc (if set) fires. Returns the state after the check.
func (m *Manager) CheckExpiry(ctx context.Context) State {
	m.mu.Lock()
	if m.state != Authenticated || m.info == nil {
		s := m.state
		m.mu.Unlock()
		return s
	}
	remaining := m.info.ExpiresAt.Sub(m.clock.Now())
	if remaining > ExpiryWindow {
		m.mu.Unlock()
		return Authenticated
	}
	login := m.info.Login
	m.token = ""
	m.info = nil
	m.state = Expiring
	m.mu.Unlock()

	if err := m.store.ClearAuth(ctx); err != nil {
		slog.Warn("clearing persisted auth on expiry", slog.Any("err", err))
	}
	slog.Info("token expiring, cleared", slog.String("login", login), slog.Duration("remaining", remaining))
	if m.ExpiredFunc != nil {
		m.ExpiredFunc()
	}
	return Expiring
}

// Logout clears all auth state unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.clearLocked(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	slog.Info("logged out")
	return nil
}

func (m *Manager) clearLocked(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.info = nil
	m.state = Unauthenticated
	m.mu.Unlock()
	return m.store.ClearAuth(ctx)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the held token, empty when not authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Get implements twitchapi.TokenProvider with the user token, so Helix
// calls can run under the signed-in user's credentials.
func (m *Manager) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated || m.token == "" {
		return "", &twitchapi.APIError{Kind: twitchapi.KindAuth, Message: "no authenticated user token"}
	}
	return m.token, nil
}

// Info returns a copy of the current validation record, nil when absent.
func (m *Manager) Info() *ValidationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.info == nil {
		return nil
	}
	rec := *m.info
	return &rec
}
