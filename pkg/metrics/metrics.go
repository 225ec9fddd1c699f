// Package metrics defines the write-only sink the attempt state machine
// reports to. Emission is fire-and-forget: a sink must never return an error
// or otherwise fail a state transition.
package metrics

import (
	"time"

	"github.com/fleetota/fleetota/pkg/failure"
	"github.com/fleetota/fleetota/pkg/release"
)

// AttemptReport describes one finished (or failed) update attempt.
type AttemptReport struct {
	AttemptNumber   int64
	Code            failure.Code
	Source          release.Source
	PayloadSize     int64
	BytesDownloaded int64
	DurationUptime  time.Duration
	IsDelta         bool
}

// SuccessReport describes a whole successful update, aggregated across all
// attempts since the offer was first seen.
type SuccessReport struct {
	AttemptCount       int64
	AbandonedCount     int64
	SourceSwitchCount  int64
	RebootCount        int64
	PayloadSize        int64
	BytesBySource      map[release.Source]int64
	OverheadPercentage int64
	Duration           time.Duration
	DurationUptime     time.Duration
	IsDelta            bool
}

// Sink receives scalar and counter events from the state machine.
type Sink interface {
	ReportAttempt(AttemptReport)
	ReportSuccessfulUpdate(SuccessReport)
	ReportAbandonedResponses(count int64)
	ReportTimeToReboot(d time.Duration)
	ReportFailedBootAttempts(count int64)
}

// Noop discards every report.
type Noop struct{}

func (Noop) ReportAttempt(AttemptReport)          {}
func (Noop) ReportSuccessfulUpdate(SuccessReport) {}
func (Noop) ReportAbandonedResponses(int64)       {}
func (Noop) ReportTimeToReboot(time.Duration)     {}
func (Noop) ReportFailedBootAttempts(int64)       {}

// Recording captures every report in memory, for tests.
type Recording struct {
	Attempts      []AttemptReport
	Successes     []SuccessReport
	Abandoned     []int64
	TimesToReboot []time.Duration
	FailedBoots   []int64
}

func (r *Recording) ReportAttempt(a AttemptReport)          { r.Attempts = append(r.Attempts, a) }
func (r *Recording) ReportSuccessfulUpdate(s SuccessReport) { r.Successes = append(r.Successes, s) }
func (r *Recording) ReportAbandonedResponses(n int64)       { r.Abandoned = append(r.Abandoned, n) }
func (r *Recording) ReportTimeToReboot(d time.Duration) {
	r.TimesToReboot = append(r.TimesToReboot, d)
}
func (r *Recording) ReportFailedBootAttempts(n int64) { r.FailedBoots = append(r.FailedBoots, n) }
