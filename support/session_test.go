package support

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// tickSeconds advances the fake clock one second at a time, ticking after
// each step like the engine's run loop does.
func tickSeconds(e *Engine, clk *clockwork.FakeClock, n int) {
	for i := 0; i < n; i++ {
		clk.Advance(time.Second)
		e.Tick()
	}
}

func TestStartSessionAlreadyActive(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e := NewEngine(&Account{}, nil, clk)

	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	_, err := e.StartSession("streamer_b", "StreamerB", false)
	if !errors.Is(err, ErrSessionActive) {
		t.Errorf("second StartSession error = %v, want ErrSessionActive", err)
	}
	if got := e.CurrentSession().Streamer; got != "streamer_a" {
		t.Errorf("active streamer = %q, want streamer_a (unchanged)", got)
	}
}

func TestStartSessionReplace(t *testing.T) {
	clk := clockwork.NewFakeClock()
	acc := &Account{}
	e := NewEngine(acc, nil, clk)

	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tickSeconds(e, clk, 120) // two minutes accrued

	displaced, err := e.StartSession("streamer_b", "StreamerB", true)
	if err != nil {
		t.Fatalf("replace StartSession: %v", err)
	}
	if displaced == nil {
		t.Fatal("replace should return the displaced session summary")
	}
	if displaced.PointsEarned != 2*PointsPerMinute || displaced.TotalMinutes != 2 {
		t.Errorf("displaced summary = %+v, want 2 minutes and %d points", *displaced, 2*PointsPerMinute)
	}
	// Replacement folds the first session's points into the account.
	if acc.Points != 2*PointsPerMinute {
		t.Errorf("account points after replace = %d, want %d", acc.Points, 2*PointsPerMinute)
	}
	s := e.CurrentSession()
	if s.Streamer != "streamer_b" || s.PointsEarned != 0 {
		t.Errorf("new session = %+v, want fresh session for streamer_b", s)
	}
}

func TestTickMinuteAccrual(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e := NewEngine(&Account{}, nil, clk)
	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	tickSeconds(e, clk, 59)
	if got := e.CurrentSession().PointsEarned; got != 0 {
		t.Errorf("points before first minute = %d, want 0", got)
	}
	tickSeconds(e, clk, 1)
	if got := e.CurrentSession().PointsEarned; got != PointsPerMinute {
		t.Errorf("points after one minute = %d, want %d", got, PointsPerMinute)
	}
	tickSeconds(e, clk, 60)
	if got := e.CurrentSession().PointsEarned; got != 2*PointsPerMinute {
		t.Errorf("points after two minutes = %d, want %d", got, 2*PointsPerMinute)
	}
}

func TestTickCreditsMissedMinutes(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e := NewEngine(&Account{}, nil, clk)
	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// A stalled loop catching up still credits every crossed boundary.
	clk.Advance(3 * time.Minute)
	e.Tick()
	if got := e.CurrentSession().PointsEarned; got != 3*PointsPerMinute {
		t.Errorf("points after catch-up tick = %d, want %d", got, 3*PointsPerMinute)
	}
}

func TestTickInteractionEvents(t *testing.T) {
	clk := clockwork.NewFakeClock()
	events := []bool{false, true, false, true, true}
	i := 0
	src := SourceFunc(func() bool {
		v := events[i%len(events)]
		i++
		return v
	})
	e := NewEngine(&Account{}, src, clk)
	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	tickSeconds(e, clk, 5)
	s := e.CurrentSession()
	if s.CommentsDetected != 3 {
		t.Errorf("CommentsDetected = %d, want 3", s.CommentsDetected)
	}
	if s.PointsEarned != 3*PointsPerInteraction {
		t.Errorf("PointsEarned = %d, want %d", s.PointsEarned, 3*PointsPerInteraction)
	}
}

func TestStopSession(t *testing.T) {
	clk := clockwork.NewFakeClock()
	acc := &Account{}
	e := NewEngine(acc, nil, clk)
	if _, err := e.StartSession("streamer_a", "StreamerA", false); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	tickSeconds(e, clk, 150) // 2.5 minutes

	sum, err := e.StopSession()
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if sum.TotalMinutes != 2 {
		t.Errorf("TotalMinutes = %d, want 2 (floor)", sum.TotalMinutes)
	}
	if sum.PointsEarned != 2*PointsPerMinute {
		t.Errorf("PointsEarned = %d, want %d", sum.PointsEarned, 2*PointsPerMinute)
	}
	if acc.Points != sum.PointsEarned {
		t.Errorf("account points = %d, want %d", acc.Points, sum.PointsEarned)
	}
	if e.CurrentSession().Active {
		t.Error("session still active after StopSession")
	}
}

func TestStopSessionNoActive(t *testing.T) {
	clk := clockwork.NewFakeClock()
	acc := &Account{Points: 123}
	e := NewEngine(acc, nil, clk)

	_, err := e.StopSession()
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("StopSession error = %v, want ErrNoActiveSession", err)
	}
	if acc.Points != 123 {
		t.Errorf("account points changed on no-op stop: %d", acc.Points)
	}
}

func TestTickInactiveNoop(t *testing.T) {
	clk := clockwork.NewFakeClock()
	e := NewEngine(&Account{}, SourceFunc(func() bool { return true }), clk)
	tickSeconds(e, clk, 10)
	if s := e.CurrentSession(); s.PointsEarned != 0 || s.CommentsDetected != 0 {
		t.Errorf("inactive tick mutated session: %+v", s)
	}
}

func TestSimulatedSourceDisabled(t *testing.T) {
	src := NewSimulatedSource(0, 1)
	for i := 0; i < 100; i++ {
		if src.Poll() {
			t.Fatal("disabled source emitted an event")
		}
	}
}

func TestSimulatedSourceAlwaysFires(t *testing.T) {
	src := NewSimulatedSource(1.0, 1)
	for i := 0; i < 10; i++ {
		if !src.Poll() {
			t.Fatal("p=1 source failed to emit")
		}
	}
}
