package attempt

import (
	"log/slog"

	"github.com/fleetota/fleetota/pkg/release"
)

// advanceSource moves to the next candidate. Wrapping past the last
// candidate signals that every source was tried this cycle, which counts as
// a finished attempt for backoff purposes.
func (s *State) advanceSource() {
	next := s.sourceIndex + 1
	if next < int64(len(s.candidates)) {
		slog.Info("advancing_download_source", "source_index", next)
		s.setSourceIndex(next)
	} else {
		slog.Info("download_sources_exhausted",
			"num_candidates", len(s.candidates))
		s.setSourceIndex(0)
		s.incrementPayloadAttemptNumber()
		s.incrementFullPayloadAttemptNumber()
	}

	if len(s.candidates) > 1 {
		s.setSourceSwitchCount(s.sourceSwitchCount + 1)
	}

	// A fresh source starts with a clean failure budget.
	s.setSourceFailureCount(0)
}

// penalizeSource accrues a failure on the current source, advancing once its
// budget is exhausted.
func (s *State) penalizeSource() {
	next := s.sourceFailureCount + 1
	if next < int64(s.response.MaxFailuresPerSource) {
		slog.Info("source_failure_recorded",
			"source_index", s.sourceIndex, "failure_count", next)
		s.setSourceFailureCount(next)
		return
	}
	slog.Info("source_failure_budget_exhausted",
		"source_index", s.sourceIndex,
		"max_failures", s.response.MaxFailuresPerSource)
	s.advanceSource()
}

// updateCurrentSource recomputes the kind of the active download source from
// the peer flag and the current candidate.
func (s *State) updateCurrentSource() {
	s.currentSource = release.NumSources

	if s.usingPeerDownload {
		s.currentSource = release.SourceHTTPPeer
	} else if s.sourceIndex < int64(len(s.candidates)) {
		s.currentSource = s.candidates[s.sourceIndex].Kind
	}

	slog.Info("download_source_selected", "source", s.currentSource.String())
}
