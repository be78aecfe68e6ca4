package support

import (
	"errors"
	"testing"
)

func TestRecomputeMetrics(t *testing.T) {
	tests := []struct {
		name      string
		points    int
		wantPct   int
		wantHours int
	}{
		{name: "zero points", points: 0, wantPct: 0, wantHours: 0},
		{name: "mid-range points", points: 750, wantPct: 37, wantHours: 1},
		{name: "floor not round", points: 39, wantPct: 1, wantHours: 0},
		{name: "percentage capped at 95", points: 100000, wantPct: 95, wantHours: 4},
		{name: "hours from high percentage", points: 1900, wantPct: 95, wantHours: 4},
		{name: "just below percentage cap", points: 1899, wantPct: 94, wantHours: 4},
		{name: "capped percentage keeps hours at four", points: 2000, wantPct: 95, wantHours: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Points: tt.points}
			a.RecomputeMetrics()
			if a.SupportPercentage != tt.wantPct {
				t.Errorf("SupportPercentage = %d, want %d", a.SupportPercentage, tt.wantPct)
			}
			if a.HoursAllowed != tt.wantHours {
				t.Errorf("HoursAllowed = %d, want %d", a.HoursAllowed, tt.wantHours)
			}
		})
	}
}

func TestRecomputeMetricsIdempotent(t *testing.T) {
	a := &Account{Points: 750}
	a.RecomputeMetrics()
	pct, hours := a.SupportPercentage, a.HoursAllowed
	a.RecomputeMetrics()
	if a.SupportPercentage != pct || a.HoursAllowed != hours {
		t.Errorf("second recompute changed output: %d%%/%dh, want %d%%/%dh",
			a.SupportPercentage, a.HoursAllowed, pct, hours)
	}
}

func TestBookSlotQuota(t *testing.T) {
	a := &Account{Points: 800} // 40% -> 2 hours allowed
	a.RecomputeMetrics()
	if a.HoursAllowed != 2 {
		t.Fatalf("HoursAllowed = %d, want 2", a.HoursAllowed)
	}

	if err := a.BookSlot("20:00", "Mon"); err != nil {
		t.Fatalf("first BookSlot: %v", err)
	}
	if err := a.BookSlot("21:00", "Tue"); err != nil {
		t.Fatalf("second BookSlot: %v", err)
	}

	err := a.BookSlot("22:00", "Wed")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("third BookSlot error = %v, want ErrQuotaExceeded", err)
	}
	if len(a.ScheduledSlots) != 2 {
		t.Errorf("ScheduledSlots mutated on failed booking: %d entries", len(a.ScheduledSlots))
	}
}

func TestBookSlotDuplicate(t *testing.T) {
	a := &Account{Points: 2000}
	a.RecomputeMetrics()
	if err := a.BookSlot("20:00", "Mon"); err != nil {
		t.Fatalf("BookSlot: %v", err)
	}
	err := a.BookSlot("20:00", "Mon")
	if !errors.Is(err, ErrDuplicateSlot) {
		t.Errorf("duplicate BookSlot error = %v, want ErrDuplicateSlot", err)
	}
	if len(a.ScheduledSlots) != 1 {
		t.Errorf("ScheduledSlots = %d entries, want 1", len(a.ScheduledSlots))
	}
}

func TestBookSlotZeroQuota(t *testing.T) {
	a := &Account{}
	a.RecomputeMetrics()
	if err := a.BookSlot("20:00", "Mon"); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("BookSlot with zero quota error = %v, want ErrQuotaExceeded", err)
	}
}
