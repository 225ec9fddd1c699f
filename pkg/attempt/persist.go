package attempt

import (
	"log/slog"
	"time"
)

// Persistence is fire-and-forget: the store is trusted to make individual
// scalar writes durable, and a failed write must never fail a state
// transition. Errors are logged and the in-memory value stands.

func (s *State) persistInt64(key string, value int64) {
	if err := s.main.SetInt64(key, value); err != nil {
		slog.Error("prefs_write_failed", "key", key, "error", err)
	}
}

func (s *State) persistString(key, value string) {
	if err := s.main.SetString(key, value); err != nil {
		slog.Error("prefs_write_failed", "key", key, "error", err)
	}
}

func (s *State) persistTime(key string, t time.Time) {
	var v int64
	if !t.IsZero() {
		v = t.UnixNano()
	}
	s.persistInt64(key, v)
}

func (s *State) deleteKey(key string) {
	if err := s.main.Delete(key); err != nil {
		slog.Error("prefs_delete_failed", "key", key, "error", err)
	}
}

// persistedInt64 reads a counter, treating an absent, unreadable or negative
// value as 0. Negative counters can only come from corruption and are
// self-healed rather than propagated.
func (s *State) persistedInt64(key string) int64 {
	v, ok, err := s.main.Int64(key)
	if err != nil {
		slog.Error("prefs_read_failed", "key", key, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	if v < 0 {
		slog.Error("prefs_value_negative", "key", key, "value", v)
		return 0
	}
	return v
}

// loadTime reads a persisted wall-clock timestamp. A stored value more than
// maxFuture ahead of now cannot have been written by a sane clock and is
// replaced by fallback. A zero stored value means "null".
func (s *State) loadTime(key string, maxFuture time.Duration, fallback time.Time) time.Time {
	v, ok, err := s.main.Int64(key)
	if err != nil {
		slog.Error("prefs_read_failed", "key", key, "error", err)
		return fallback
	}
	if !ok || v == 0 {
		return fallback
	}
	t := time.Unix(0, v)
	if t.Sub(s.clock.WallclockNow()) > maxFuture {
		slog.Error("persisted_time_in_future", "key", key, "value", t)
		return fallback
	}
	return t
}

func (s *State) loadResponseSignature() {
	sig, ok, err := s.main.String(keyResponseSignature)
	if err != nil {
		slog.Error("prefs_read_failed", "key", keyResponseSignature, "error", err)
		return
	}
	if ok {
		s.responseSignature = sig
	}
}

func (s *State) setResponseSignature(sig string) {
	s.responseSignature = sig
	slog.Info("response_signature_updated")
	s.persistString(keyResponseSignature, sig)
}

func (s *State) loadPayloadAttemptNumber() {
	s.setPayloadAttemptNumber(s.persistedInt64(keyPayloadAttemptNumber))
}

func (s *State) setPayloadAttemptNumber(value int64) {
	s.payloadAttemptNumber = value
	slog.Info("payload_attempt_number", "value", value)
	s.persistInt64(keyPayloadAttemptNumber, value)
}

func (s *State) loadFullPayloadAttemptNumber() {
	s.setFullPayloadAttemptNumber(s.persistedInt64(keyFullPayloadAttemptNumber))
}

func (s *State) setFullPayloadAttemptNumber(value int64) {
	s.fullPayloadAttemptNumber = value
	slog.Info("full_payload_attempt_number", "value", value)
	s.persistInt64(keyFullPayloadAttemptNumber, value)
}

func (s *State) loadSourceIndex() {
	s.setSourceIndex(s.persistedInt64(keySourceIndex))
}

func (s *State) setSourceIndex(value int64) {
	s.sourceIndex = value
	slog.Info("current_source_index", "value", value)
	s.persistInt64(keySourceIndex, value)

	// The active source kind depends on the index alone.
	s.updateCurrentSource()
}

func (s *State) loadSourceFailureCount() {
	s.setSourceFailureCount(s.persistedInt64(keySourceFailureCount))
}

func (s *State) setSourceFailureCount(value int64) {
	s.sourceFailureCount = value
	slog.Info("source_failure_count",
		"source_index", s.sourceIndex, "value", value)
	s.persistInt64(keySourceFailureCount, value)
}

func (s *State) loadSourceSwitchCount() {
	s.setSourceSwitchCount(s.persistedInt64(keySourceSwitchCount))
}

func (s *State) setSourceSwitchCount(value int64) {
	s.sourceSwitchCount = value
	slog.Info("source_switch_count", "value", value)
	s.persistInt64(keySourceSwitchCount, value)
}

func (s *State) loadBackoffExpiry() {
	// Anything beyond the largest window we could ever compute is
	// corruption.
	maxFuture := maxBackoffDays*24*time.Hour + maxBackoffFuzz
	s.setBackoffExpiry(s.loadTime(keyBackoffExpiryTime, maxFuture, time.Time{}))
}

func (s *State) setBackoffExpiry(t time.Time) {
	s.backoffExpiry = t
	slog.Info("backoff_expiry_time", "value", t)
	s.persistTime(keyBackoffExpiryTime, t)
}

func (s *State) loadNumResponsesSeen() {
	s.setNumResponsesSeen(s.persistedInt64(keyNumResponsesSeen))
}

func (s *State) setNumResponsesSeen(value int64) {
	s.numResponsesSeen = value
	slog.Info("num_responses_seen", "value", value)
	s.persistInt64(keyNumResponsesSeen, value)
}

func (s *State) loadNumReboots() {
	s.setNumReboots(s.persistedInt64(keyNumReboots))
}

func (s *State) setNumReboots(value int64) {
	s.numReboots = value
	slog.Info("num_reboots", "value", value)
	s.persistInt64(keyNumReboots, value)
}

func (s *State) loadRollbackVersion() {
	v, ok, err := s.powerwash.String(keyRollbackVersion)
	if err != nil {
		slog.Error("prefs_read_failed", "key", keyRollbackVersion, "error", err)
		return
	}
	if ok {
		s.rollbackVersion = v
	}
}

func (s *State) loadUpdateTimestampStart() {
	now := s.clock.WallclockNow()
	s.setUpdateTimestampStart(s.loadTime(keyUpdateTimestampStart, durationSlack, now))
}

func (s *State) setUpdateTimestampStart(t time.Time) {
	s.updateStart = t
	slog.Info("update_timestamp_start", "value", t)
	s.persistTime(keyUpdateTimestampStart, t)
}

func (s *State) setUpdateTimestampEnd(t time.Time) {
	s.updateEnd = t
	slog.Info("update_timestamp_end", "value", t)
}

// updateDuration is the wall time spent on the current update so far, or
// until it ended.
func (s *State) updateDuration() time.Duration {
	end := s.updateEnd
	if end.IsZero() {
		end = s.clock.WallclockNow()
	}
	return end.Sub(s.updateStart)
}

// loadUpdateDurationUptime restores the accrued uptime, sanity-checked
// against the wall-clock duration: uptime can never exceed it (modulo
// slack), since the device cannot be up longer than the update has existed.
func (s *State) loadUpdateDurationUptime() {
	stored := time.Duration(s.persistedInt64(keyUpdateDurationUptime))
	if stored-s.updateDuration() > durationSlack {
		slog.Error("update_duration_uptime_exceeds_wallclock",
			"stored", stored.String(), "wallclock", s.updateDuration().String())
		stored = 0
	}
	s.setUpdateDurationUptime(stored)
}

func (s *State) setUpdateDurationUptime(value time.Duration) {
	s.durationUptime = value
	s.durationUptimeMark = s.clock.MonotonicNow()
	slog.Info("update_duration_uptime", "value", value.String())
	s.persistInt64(keyUpdateDurationUptime, int64(value))
}

// accrueDurationUptime folds the uptime elapsed since the last accrual into
// the running total. Called frequently, so it does not log.
func (s *State) accrueDurationUptime() {
	now := s.clock.MonotonicNow()
	s.durationUptime += now - s.durationUptimeMark
	s.durationUptimeMark = now
	s.persistInt64(keyUpdateDurationUptime, int64(s.durationUptime))
}
