// Package clocks supplies the two independent clocks the attempt state
// machine depends on: wall-clock time (subject to NTP and user adjustment)
// and a monotonic uptime clock that is not. Comparing the two is how the
// state machine detects wall-clock tampering in persisted timestamps.
package clocks

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/clock/testclock"
)

// Provider supplies wall-clock and monotonic time.
type Provider interface {
	// WallclockNow returns the current wall-clock time.
	WallclockNow() time.Time
	// MonotonicNow returns time elapsed on a clock unaffected by
	// wall-clock adjustments.
	MonotonicNow() time.Duration
}

type systemProvider struct {
	wall    clock.Clock
	started time.Time
}

// NewSystem returns a Provider reading wall time from the given clock
// (clock.WallClock in production) and monotonic time from Go's monotonic
// reading relative to process start.
func NewSystem(wall clock.Clock) Provider {
	return &systemProvider{wall: wall, started: time.Now()}
}

func (p *systemProvider) WallclockNow() time.Time {
	return p.wall.Now()
}

func (p *systemProvider) MonotonicNow() time.Duration {
	return time.Since(p.started)
}

// Manual is a Provider for tests, with independently advanceable wall and
// monotonic clocks. The wall side is a testclock so anything else holding a
// clock.Clock can share it.
type Manual struct {
	Wall   *testclock.Clock
	uptime time.Duration
}

// NewManual returns a Manual provider with the wall clock at start and zero
// uptime.
func NewManual(start time.Time) *Manual {
	return &Manual{Wall: testclock.NewClock(start)}
}

func (m *Manual) WallclockNow() time.Time {
	return m.Wall.Now()
}

func (m *Manual) MonotonicNow() time.Duration {
	return m.uptime
}

// Advance moves both clocks forward together, as real elapsed time would.
func (m *Manual) Advance(d time.Duration) {
	m.Wall.Advance(d)
	m.uptime += d
}

// AdvanceWall moves only the wall clock, simulating an NTP or user
// adjustment.
func (m *Manual) AdvanceWall(d time.Duration) {
	m.Wall.Advance(d)
}

// AdvanceUptime moves only the monotonic clock.
func (m *Manual) AdvanceUptime(d time.Duration) {
	m.uptime += d
}
