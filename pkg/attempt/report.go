package attempt

import (
	"log/slog"
	"time"

	"github.com/fleetota/fleetota/pkg/failure"
	"github.com/fleetota/fleetota/pkg/metrics"
	"github.com/fleetota/fleetota/pkg/release"
)

// Metric emission is fire-and-forget; the sink contract forbids it from
// failing a transition.

func (s *State) reportAttemptMetrics(code failure.Code) {
	s.metrics.ReportAttempt(metrics.AttemptReport{
		AttemptNumber:   s.payloadAttemptNumber,
		Code:            code,
		Source:          s.currentSource,
		PayloadSize:     s.response.PayloadSize,
		BytesDownloaded: s.attemptBytes,
		DurationUptime:  s.clock.MonotonicNow() - s.attemptStartUptime,
		IsDelta:         s.response.IsDelta,
	})
}

// reportSuccessfulUpdateMetrics reads out the byte ledgers and per-update
// counters, emits them, and only then clears them.
func (s *State) reportSuccessfulUpdateMetrics() {
	bySource := make(map[release.Source]int64, release.NumSources)
	var successfulBytes, totalBytes int64
	for src := release.Source(0); src < release.NumSources; src++ {
		successfulBytes += s.currentBytes[src]
		totalBytes += s.totalBytes[src]
		bySource[src] = s.totalBytes[src]
	}

	var overhead int64
	if successfulBytes > 0 {
		overhead = (totalBytes - successfulBytes) * 100 / successfulBytes
	}

	s.metrics.ReportSuccessfulUpdate(metrics.SuccessReport{
		AttemptCount:       s.payloadAttemptNumber,
		AbandonedCount:     s.numResponsesSeen - 1,
		SourceSwitchCount:  s.sourceSwitchCount,
		RebootCount:        s.numReboots,
		PayloadSize:        s.response.PayloadSize,
		BytesBySource:      bySource,
		OverheadPercentage: overhead,
		Duration:           s.updateDuration(),
		DurationUptime:     s.durationUptime,
		IsDelta:            s.response.IsDelta,
	})

	s.resetAllBytes()
	s.setNumReboots(0)
	s.deleteKey(keyUpdateTimestampStart)
	s.deleteKey(keyUpdateDurationUptime)
}

// reportAbandonedResponses emits how many earlier offers were abandoned
// since the last successful update. Nothing is emitted for the first offer.
func (s *State) reportAbandonedResponses() {
	abandoned := s.numResponsesSeen - 1
	if abandoned <= 0 {
		return
	}
	slog.Info("responses_abandoned", "count", abandoned)
	s.metrics.ReportAbandonedResponses(abandoned)
}

// writeSystemUpdatedMarker stamps the moment an update was applied so the
// next boot can report time-to-reboot.
func (s *State) writeSystemUpdatedMarker() {
	s.persistTime(keySystemUpdatedMarker, s.clock.WallclockNow())
}

// EngineStarted runs the first-start-after-reboot bookkeeping: reporting
// time-to-reboot if we just booted into an applied update, and detecting
// reboots that landed back on the old version.
func (s *State) EngineStarted() {
	s.mustInit()
	if !s.systemRebooted {
		return
	}

	if exists, err := s.main.Exists(keySystemUpdatedMarker); err == nil && exists {
		updatedAt := s.loadTime(keySystemUpdatedMarker, durationSlack, time.Time{})
		if !updatedAt.IsZero() {
			d := s.clock.WallclockNow().Sub(updatedAt)
			if d < 0 {
				slog.Error("time_to_reboot_negative", "updated_at", updatedAt)
			} else {
				slog.Info("booted_into_update", "time_to_reboot", d.String())
				s.metrics.ReportTimeToReboot(d)
			}
		}
		s.deleteKey(keySystemUpdatedMarker)
	}

	s.reportFailedBootIfNeeded()
}

// reportFailedBootIfNeeded checks whether an update that was ready before
// the last reboot actually booted. Ending up on the same boot slot the
// update was installed from means the new version failed to boot.
func (s *State) reportFailedBootIfNeeded() {
	installedFrom, ok, err := s.main.Int64(keyTargetVersionInstalledFrom)
	if err != nil {
		slog.Error("prefs_read_failed", "key", keyTargetVersionInstalledFrom, "error", err)
		return
	}
	if !ok {
		return
	}

	if installedFrom == s.bootSlot {
		attempts, ok, err := s.main.Int64(keyTargetVersionAttempt)
		if err != nil || !ok {
			attempts = 1
		}
		slog.Warn("boot_into_new_version_failed",
			"boot_slot", s.bootSlot, "attempts", attempts)
		s.metrics.ReportFailedBootAttempts(attempts)
	} else {
		s.deleteKey(keyTargetVersionAttempt)
		s.deleteKey(keyTargetVersionUniqueID)
	}
	s.deleteKey(keyTargetVersionInstalledFrom)
}

// ExpectRebootInNewVersion records that an applied payload is pending a
// reboot, counting how many times the same target version has been attempted.
func (s *State) ExpectRebootInNewVersion(targetVersionUID string) {
	s.mustInit()

	var attempts int64
	stored, ok, err := s.main.String(keyTargetVersionUniqueID)
	if err == nil && ok && stored == targetVersionUID {
		attempts = s.persistedInt64(keyTargetVersionAttempt)
	} else {
		s.persistString(keyTargetVersionUniqueID, targetVersionUID)
	}
	s.persistInt64(keyTargetVersionAttempt, attempts+1)
	s.persistInt64(keyTargetVersionInstalledFrom, s.bootSlot)

	slog.Info("expecting_reboot_into_new_version",
		"target_version", targetVersionUID, "attempt", attempts+1)
}

// ResetUpdateStatus withdraws a pending-reboot expectation so the next boot
// is not misread as a failed boot into the new version.
func (s *State) ResetUpdateStatus() {
	s.mustInit()
	s.deleteKey(keyTargetVersionInstalledFrom)

	if attempts, ok, err := s.main.Int64(keyTargetVersionAttempt); err == nil && ok {
		s.persistInt64(keyTargetVersionAttempt, attempts-1)
	}
}
