package attempt

import (
	"log/slog"

	"github.com/fleetota/fleetota/pkg/release"
)

// recordBytesDownloaded adds count to the active source's ledgers and to the
// per-attempt tally used by metrics.
func (s *State) recordBytesDownloaded(count int64) {
	src := s.currentSource
	if src < release.NumSources {
		s.setCurrentBytes(src, s.currentBytes[src]+count, false)
		s.setTotalBytes(src, s.totalBytes[src]+count, false)
	}
	s.attemptBytes += count
}

// resetCurrentBytes zeroes the current-cycle counters only. Lifetime totals
// keep accumulating until the update finally succeeds.
func (s *State) resetCurrentBytes() {
	for src := release.Source(0); src < release.NumSources; src++ {
		s.setCurrentBytes(src, 0, true)
	}
}

// resetAllBytes zeroes both ledgers. Called once per successful update,
// after the metrics were read out.
func (s *State) resetAllBytes() {
	for src := release.Source(0); src < release.NumSources; src++ {
		s.setCurrentBytes(src, 0, true)
		s.setTotalBytes(src, 0, true)
	}
}

func (s *State) setCurrentBytes(src release.Source, value int64, log bool) {
	if src >= release.NumSources {
		return
	}
	s.currentBytes[src] = value
	s.persistInt64(bytesKey(keyCurrentBytesPrefix, src), value)
	if log {
		slog.Info("current_bytes_downloaded", "source", src.String(), "bytes", value)
	}
}

func (s *State) setTotalBytes(src release.Source, value int64, log bool) {
	if src >= release.NumSources {
		return
	}
	s.totalBytes[src] = value
	s.persistInt64(bytesKey(keyTotalBytesPrefix, src), value)
	if log {
		slog.Info("total_bytes_downloaded", "source", src.String(), "bytes", value)
	}
}

func (s *State) loadCurrentBytes(src release.Source) {
	s.setCurrentBytes(src, s.persistedInt64(bytesKey(keyCurrentBytesPrefix, src)), true)
}

func (s *State) loadTotalBytes(src release.Source) {
	s.setTotalBytes(src, s.persistedInt64(bytesKey(keyTotalBytesPrefix, src)), true)
}
