// Package support implements the StreamSupport engagement engine: the timed
// support session with point accrual, the derived account metrics that gate
// weekly slot booking, and the ranking built from persisted support records.
package support

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned by BookSlot when the weekly hour quota is full.
	ErrQuotaExceeded = errors.New("weekly slot quota exceeded")
	// ErrDuplicateSlot is returned by BookSlot for an already-booked hour/day pair.
	ErrDuplicateSlot = errors.New("slot already booked")
	// ErrNoActiveSession is returned by StopSession when no session is running.
	ErrNoActiveSession = errors.New("no active support session")
	// ErrSessionActive is returned by StartSession when a session is already
	// running and the caller did not ask for a replacement.
	ErrSessionActive = errors.New("support session already active")
)

// Slot is a booked weekly support hour.
type Slot struct {
	Hour string `json:"hour"`
	Day  string `json:"day"`
}

// Account is the local user state mutated by the engine. Points only grow via
// completed sessions; SupportPercentage and HoursAllowed are derived from
// Points and never set directly.
type Account struct {
	Name              string `json:"name"`
	Channel           string `json:"channel"`
	Points            int    `json:"points"`
	SupportPercentage int    `json:"support_percentage"`
	HoursAllowed      int    `json:"hours_allowed"`
	ScheduledSlots    []Slot `json:"scheduled_slots"`
}

const (
	maxSupportPercentage = 95
	maxHoursAllowed      = 5
)

// RecomputeMetrics derives SupportPercentage and HoursAllowed from Points.
// Both use floor truncation and are capped (95% and 5h respectively).
// Idempotent for unchanged Points.
func (a *Account) RecomputeMetrics() {
	pct := a.Points / 20
	if pct > maxSupportPercentage {
		pct = maxSupportPercentage
	}
	a.SupportPercentage = pct
	hours := pct / 20
	if hours > maxHoursAllowed {
		hours = maxHoursAllowed
	}
	a.HoursAllowed = hours
}

// BookSlot appends an hour/day pair to the schedule. It fails without
// mutation when the quota is reached or the pair is already booked.
func (a *Account) BookSlot(hour, day string) error {
	if len(a.ScheduledSlots) >= a.HoursAllowed {
		return fmt.Errorf("%w: %d/%d slots used", ErrQuotaExceeded, len(a.ScheduledSlots), a.HoursAllowed)
	}
	for _, s := range a.ScheduledSlots {
		if s.Hour == hour && s.Day == day {
			return fmt.Errorf("%w: %s %s", ErrDuplicateSlot, day, hour)
		}
	}
	a.ScheduledSlots = append(a.ScheduledSlots, Slot{Hour: hour, Day: day})
	return nil
}
