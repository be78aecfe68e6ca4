package support

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// PointsPerMinute is credited every time the session crosses a minute boundary.
	PointsPerMinute = 5
	// PointsPerInteraction is credited for each detected chat interaction.
	PointsPerInteraction = 10

	tickInterval = time.Second
)

// Session is the ephemeral state of one running support session. At most one
// session is active at a time.
type Session struct {
	Active           bool      `json:"active"`
	Streamer         string    `json:"streamer"`
	StreamerName     string    `json:"streamer_name"`
	StartTime        time.Time `json:"start_time"`
	PointsEarned     int       `json:"points_earned"`
	CommentsDetected int       `json:"comments_detected"`
}

// Summary is returned by StopSession for display.
type Summary struct {
	TotalMinutes     int `json:"total_minutes"`
	PointsEarned     int `json:"points_earned"`
	CommentsDetected int `json:"comments_detected"`
}

// Engine owns the account and the single active session. All mutation goes
// through it; ticks, HTTP handlers and the interaction feed never touch the
// state directly.
type Engine struct {
	mu              sync.Mutex
	clock           clockwork.Clock
	source          InteractionSource
	account         *Account
	session         Session
	minutesCredited int
}

// NewEngine wraps an account with a scoring engine. The source supplies
// interaction events; the clock drives minute accrual (real clock in
// production, fake in tests).
func NewEngine(account *Account, source InteractionSource, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	account.RecomputeMetrics()
	return &Engine{clock: clock, source: source, account: account}
}

// StartSession begins a session for the given channel. If a session is
// already active it fails with ErrSessionActive unless replace is set, in
// which case the running session is stopped (folding its points into the
// account) before the new one starts. The returned summary is non-nil only
// when a session was displaced, so callers can persist the folded points.
func (e *Engine) StartSession(channel, name string, replace bool) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var displaced *Summary
	if e.session.Active {
		if !replace {
			return nil, ErrSessionActive
		}
		sum := e.stopLocked()
		displaced = &sum
	}
	e.session = Session{
		Active:       true,
		Streamer:     channel,
		StreamerName: name,
		StartTime:    e.clock.Now(),
	}
	e.minutesCredited = 0
	return displaced, nil
}

// Tick advances the session by one scoring step: credits 5 points per newly
// completed minute and polls the interaction source once (+10 per event).
// No-op while no session is active.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.session.Active {
		return
	}
	elapsed := int(e.clock.Now().Sub(e.session.StartTime) / time.Minute)
	if elapsed > e.minutesCredited {
		e.session.PointsEarned += PointsPerMinute * (elapsed - e.minutesCredited)
		e.minutesCredited = elapsed
	}
	if e.source != nil && e.source.Poll() {
		e.session.CommentsDetected++
		e.session.PointsEarned += PointsPerInteraction
	}
}

// StopSession ends the active session, folds its points into the account,
// recomputes the derived metrics and returns the session totals. Fails with
// ErrNoActiveSession when nothing is running.
func (e *Engine) StopSession() (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.session.Active {
		return Summary{}, ErrNoActiveSession
	}
	return e.stopLocked(), nil
}

func (e *Engine) stopLocked() Summary {
	sum := Summary{
		TotalMinutes:     int(e.clock.Now().Sub(e.session.StartTime) / time.Minute),
		PointsEarned:     e.session.PointsEarned,
		CommentsDetected: e.session.CommentsDetected,
	}
	e.account.Points += e.session.PointsEarned
	e.account.RecomputeMetrics()
	e.session = Session{}
	e.minutesCredited = 0
	return sum
}

// BookSlot books a weekly slot against the account quota.
func (e *Engine) BookSlot(hour, day string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account.BookSlot(hour, day)
}

// Account returns a snapshot copy of the account state.
func (e *Engine) Account() Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := *e.account
	acc.ScheduledSlots = append([]Slot(nil), e.account.ScheduledSlots...)
	return acc
}

// CurrentSession returns a snapshot of the session state.
func (e *Engine) CurrentSession() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// SetAccount replaces the account state (used when restoring persisted state
// at startup) and recomputes derived metrics.
func (e *Engine) SetAccount(acc Account) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc.RecomputeMetrics()
	*e.account = acc
}

// Run drives the per-second tick loop until ctx is cancelled. Ticks are
// strictly ordered; a slow tick delays the next rather than overlapping it.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(tickInterval)
	defer ticker.Stop()
	slog.Debug("support engine tick loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Tick()
		}
	}
}
