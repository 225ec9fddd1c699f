package clocks

import (
	"testing"
	"time"

	"github.com/juju/clock"
)

func TestManualClocksAdvanceIndependently(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)

	if !m.WallclockNow().Equal(start) {
		t.Fatalf("WallclockNow() = %v, want %v", m.WallclockNow(), start)
	}
	if m.MonotonicNow() != 0 {
		t.Fatalf("MonotonicNow() = %v, want 0", m.MonotonicNow())
	}

	m.Advance(time.Hour)
	if !m.WallclockNow().Equal(start.Add(time.Hour)) {
		t.Errorf("WallclockNow() = %v after Advance", m.WallclockNow())
	}
	if m.MonotonicNow() != time.Hour {
		t.Errorf("MonotonicNow() = %v after Advance", m.MonotonicNow())
	}

	// An NTP step moves only the wall clock.
	m.AdvanceWall(30 * time.Minute)
	if m.MonotonicNow() != time.Hour {
		t.Errorf("MonotonicNow() = %v, wall adjustment must not move it", m.MonotonicNow())
	}

	m.AdvanceUptime(10 * time.Minute)
	if !m.WallclockNow().Equal(start.Add(90 * time.Minute)) {
		t.Errorf("WallclockNow() = %v, uptime advance must not move it", m.WallclockNow())
	}
	if m.MonotonicNow() != 70*time.Minute {
		t.Errorf("MonotonicNow() = %v, want 70m", m.MonotonicNow())
	}
}

func TestSystemProviderMonotonicNeverRegresses(t *testing.T) {
	p := NewSystem(clock.WallClock)
	a := p.MonotonicNow()
	b := p.MonotonicNow()
	if b < a {
		t.Errorf("monotonic clock went backwards: %v then %v", a, b)
	}
}
