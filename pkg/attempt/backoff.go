package attempt

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

func (s *State) incrementPayloadAttemptNumber() {
	s.setPayloadAttemptNumber(s.payloadAttemptNumber + 1)
}

// incrementFullPayloadAttemptNumber bumps the counter that drives backoff.
// Delta payloads are exempt: if a delta fails we want a fast fallback to the
// full payload, not an exponential wait.
func (s *State) incrementFullPayloadAttemptNumber() {
	if s.response.IsDelta {
		slog.Info("full_payload_attempt_not_counted", "reason", "delta_payload")
		return
	}
	s.setFullPayloadAttemptNumber(s.fullPayloadAttemptNumber + 1)
	s.recomputeBackoff()
}

// backoffApplies reports whether backoff is in force at all for the current
// offer and request.
func (s *State) backoffApplies() bool {
	switch {
	case s.response.BackoffDisabled:
		return false
	case s.response.IsDelta:
		return false
	case s.interactive:
		return false
	case s.usingPeerDownload:
		return false
	case !s.policy.IsOfficialBuild():
		return false
	}
	return true
}

// recomputeBackoff derives the next backoff expiry from the full-payload
// attempt number: min(2^(n-1), 16) days plus up to 12 hours of fuzz.
func (s *State) recomputeBackoff() {
	if !s.backoffApplies() || s.fullPayloadAttemptNumber == 0 {
		s.setBackoffExpiry(time.Time{})
		return
	}

	// Guard the shift: the exponent never needs to exceed what an int64
	// can hold, and the day count saturates at maxBackoffDays anyway.
	const maxShift = 62
	power := s.fullPayloadAttemptNumber - 1
	if power > maxShift {
		power = maxShift
	}
	days := int64(1) << power
	if days > maxBackoffDays {
		days = maxBackoffDays
	}

	fuzz := time.Duration(rand.Int64N(int64(maxBackoffFuzz)))
	window := time.Duration(days)*24*time.Hour + fuzz
	slog.Info("backoff_window_computed", "days", days, "window", window.String())
	s.setBackoffExpiry(s.clock.WallclockNow().Add(window))
}

// ShouldBackoffDownload reports whether a new attempt must wait for the
// backoff window to elapse.
func (s *State) ShouldBackoffDownload() bool {
	s.mustInit()
	if !s.backoffApplies() {
		return false
	}
	if s.backoffExpiry.IsZero() {
		return false
	}
	if !s.backoffExpiry.After(s.clock.WallclockNow()) {
		slog.Info("backoff_window_elapsed", "expiry", s.backoffExpiry)
		return false
	}
	slog.Info("backoff_in_effect", "expiry", s.backoffExpiry)
	return true
}
