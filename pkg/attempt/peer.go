package attempt

import (
	"log/slog"
	"time"
)

// PeerAttempted records one peer-assisted download attempt. The first call
// for an offer also pins the start of the admission window.
func (s *State) PeerAttempted() {
	s.mustInit()
	if s.peerFirstAttempt.IsZero() {
		s.setPeerFirstAttempt(s.clock.WallclockNow())
	}
	s.setPeerNumAttempts(s.peerAttemptCount + 1)
}

// PeerAttemptAllowed reports whether another peer-assisted attempt is
// admitted: the attempt cap must not be exceeded and the first attempt must
// lie within the admission window. A first-attempt timestamp in the future
// means the wall clock moved backwards; peer download is disallowed rather
// than trusted with a tampered clock.
func (s *State) PeerAttemptAllowed() bool {
	s.mustInit()

	if s.peerAttemptCount > MaxPeerAttempts {
		slog.Info("peer_download_disallowed",
			"reason", "attempt_cap", "attempts", s.peerAttemptCount)
		return false
	}

	if !s.peerFirstAttempt.IsZero() {
		elapsed := s.clock.WallclockNow().Sub(s.peerFirstAttempt)
		if elapsed < 0 {
			slog.Error("peer_download_disallowed",
				"reason", "clock_moved_backwards", "elapsed", elapsed.String())
			return false
		}
		if elapsed > MaxPeerAttemptWindow {
			slog.Info("peer_download_disallowed",
				"reason", "window_expired", "elapsed", elapsed.String())
			return false
		}
	}

	return true
}

func (s *State) setPeerNumAttempts(value int64) {
	s.peerAttemptCount = value
	slog.Info("peer_attempt_count", "value", value)
	s.persistInt64(keyPeerNumAttempts, value)
}

func (s *State) loadPeerNumAttempts() {
	s.setPeerNumAttempts(s.persistedInt64(keyPeerNumAttempts))
}

func (s *State) setPeerFirstAttempt(t time.Time) {
	s.peerFirstAttempt = t
	slog.Info("peer_first_attempt_timestamp", "value", t)
	s.persistTime(keyPeerFirstAttemptTimestamp, t)
}

func (s *State) loadPeerFirstAttempt() {
	// No future bound here: a timestamp ahead of the wall clock is kept
	// and rejected by PeerAttemptAllowed as clock tampering.
	v := s.persistedInt64(keyPeerFirstAttemptTimestamp)
	if v == 0 {
		s.setPeerFirstAttempt(time.Time{})
		return
	}
	s.setPeerFirstAttempt(time.Unix(0, v))
}
