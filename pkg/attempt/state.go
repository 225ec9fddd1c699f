// Package attempt implements the update attempt state machine: the component
// that decides, across repeated attempts and device reboots, which download
// source to use next, when to back off before retrying, how bytes already
// downloaded are accounted, and whether peer-assisted download is still
// permitted.
//
// The state machine is single-threaded and synchronous by contract. Exactly
// one public operation runs at a time, operations never block, and every
// failure is absorbed into persisted counters rather than returned: the only
// error surface is Initialize, and the only fatal misuse is calling any
// other operation before it.
package attempt

import (
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/fleetota/fleetota/pkg/clocks"
	"github.com/fleetota/fleetota/pkg/failure"
	"github.com/fleetota/fleetota/pkg/metrics"
	"github.com/fleetota/fleetota/pkg/prefs"
	"github.com/fleetota/fleetota/pkg/release"
)

const (
	// Backoff saturates at 16 days.
	maxBackoffDays = 16
	// Fuzz added to a computed backoff window so fleets don't retry in
	// lockstep.
	maxBackoffFuzz = 12 * time.Hour

	// MaxPeerAttempts is how many peer-assisted attempts are admitted per
	// update offer.
	MaxPeerAttempts = 10
	// MaxPeerAttemptWindow bounds how long after the first peer attempt
	// further ones are admitted.
	MaxPeerAttemptWindow = 5 * 24 * time.Hour

	// Slack tolerated between persisted timestamps/durations and the
	// clocks before the value is treated as corrupt.
	durationSlack = 10 * time.Minute
)

// Policy supplies the device-policy inputs the state machine consults.
type Policy interface {
	// HTTPDownloadsAllowed reports whether unencrypted download sources
	// are permitted.
	HTTPDownloadsAllowed() bool
	// IsOfficialBuild reports whether this is an official build. Backoff
	// and peer-sharing limits apply to official builds only.
	IsOfficialBuild() bool
}

// Params carries the external collaborators of the state machine.
type Params struct {
	Store   *prefs.Store
	Clock   clocks.Provider
	Policy  Policy
	Metrics metrics.Sink

	// SystemRebooted reports whether this process start is the first
	// since the device last rebooted.
	SystemRebooted bool
	// BootSlot identifies the partition slot the system booted from,
	// used to detect reboots that landed back on the old version.
	BootSlot int64
}

// State is the update attempt state machine. It is owned by the update
// orchestration loop and must not be shared across goroutines.
type State struct {
	store     *prefs.Store
	main      *prefs.Namespace
	powerwash *prefs.Namespace
	clock     clocks.Provider
	policy    Policy
	metrics   metrics.Sink

	systemRebooted bool
	bootSlot       int64

	initialized bool

	response          release.Response
	candidates        []release.Candidate
	responseSignature string

	usingPeerDownload bool
	interactive       bool

	payloadAttemptNumber     int64
	fullPayloadAttemptNumber int64
	sourceIndex              int64
	sourceFailureCount       int64
	sourceSwitchCount        int64
	backoffExpiry            time.Time
	currentSource            release.Source

	currentBytes [release.NumSources]int64
	totalBytes   [release.NumSources]int64

	numResponsesSeen int64
	numReboots       int64

	updateStart        time.Time
	updateEnd          time.Time
	durationUptime     time.Duration
	durationUptimeMark time.Duration

	attemptStartUptime time.Duration
	attemptBytes       int64

	peerAttemptCount int64
	peerFirstAttempt time.Time

	rollbackVersion string
}

// New creates a State wired to its collaborators. Initialize must be called
// before any other operation.
func New(p Params) *State {
	if p.Clock == nil {
		p.Clock = clocks.NewSystem(clock.WallClock)
	}
	if p.Metrics == nil {
		p.Metrics = metrics.Noop{}
	}
	return &State{
		store:          p.Store,
		main:           p.Store.Namespace(prefs.NamespaceMain),
		powerwash:      p.Store.Namespace(prefs.NamespacePowerwash),
		clock:          p.Clock,
		policy:         p.Policy,
		metrics:        p.Metrics,
		systemRebooted: p.SystemRebooted,
		bootSlot:       p.BootSlot,
		currentSource:  release.NumSources,
	}
}

// Initialize loads every persisted field, healing corrupt values (negative
// counters, impossible timestamps) back to defaults. It must be called once
// per process start before any other operation.
func (s *State) Initialize() error {
	s.initialized = true

	s.loadResponseSignature()
	s.loadPayloadAttemptNumber()
	s.loadFullPayloadAttemptNumber()
	s.loadSourceIndex()
	s.loadSourceFailureCount()
	s.loadSourceSwitchCount()
	s.loadBackoffExpiry()
	s.loadUpdateTimestampStart()
	// Relies on the update start timestamp being loaded first.
	s.loadUpdateDurationUptime()
	for src := release.Source(0); src < release.NumSources; src++ {
		s.loadCurrentBytes(src)
		s.loadTotalBytes(src)
	}
	s.loadNumReboots()
	s.loadNumResponsesSeen()
	s.loadRollbackVersion()
	s.loadPeerFirstAttempt()
	s.loadPeerNumAttempts()
	return nil
}

func (s *State) mustInit() {
	if !s.initialized {
		panic("attempt: state machine used before Initialize")
	}
}

// SetResponse installs a new update offer. A materially changed offer (by
// response signature) resets all attempt state; an unchanged one triggers
// the persisted-index corruption check instead.
func (s *State) SetResponse(resp release.Response) {
	s.mustInit()
	s.response = resp

	// Candidates feed the signature, so a policy flip on HTTP downloads
	// takes effect on the very next check.
	s.computeCandidates()

	sig := release.ComputeSignature(s.candidates, resp)
	if sig != s.responseSignature {
		slog.Info("new_response_seen", "num_candidates", len(s.candidates))
		s.setNumResponsesSeen(s.numResponsesSeen + 1)
		s.setResponseSignature(sig)
		s.resetPersistedState()
		s.reportAbandonedResponses()
		return
	}

	// Earliest point at which the loaded source index can be validated.
	// Same signature but an out-of-range index means the persisted state
	// is stale or tampered with.
	if s.sourceIndex >= int64(len(s.candidates)) {
		slog.Warn("source_index_out_of_range",
			"source_index", s.sourceIndex,
			"num_candidates", len(s.candidates))
		s.resetPersistedState()
		return
	}

	s.updateCurrentSource()
}

func (s *State) computeCandidates() {
	httpAllowed := true
	if s.policy.IsOfficialBuild() {
		httpAllowed = s.policy.HTTPDownloadsAllowed()
	}
	s.candidates = release.ComputeCandidates(s.response, httpAllowed)
	slog.Info("candidate_sources_computed",
		"num_candidates", len(s.candidates),
		"num_urls", len(s.response.PayloadURLs),
		"http_allowed", httpAllowed)
}

// resetPersistedState wipes every counter tied to the previous offer. The
// response signature itself is deliberately not touched.
func (s *State) resetPersistedState() {
	s.setPayloadAttemptNumber(0)
	s.setFullPayloadAttemptNumber(0)
	s.setSourceIndex(0)
	s.setSourceFailureCount(0)
	s.setSourceSwitchCount(0)
	s.recomputeBackoff() // attempts are zero, so this clears the expiry
	s.setUpdateTimestampStart(s.clock.WallclockNow())
	s.setUpdateTimestampEnd(time.Time{})
	s.setUpdateDurationUptime(0)
	s.resetCurrentBytes()
	s.resetRollbackVersion()
	s.setPeerNumAttempts(0)
	s.setPeerFirstAttempt(time.Time{})
}

// UpdateFailed records a failed attempt and lets the failure classifier
// drive source failover. Before a usable offer exists every failure is
// ignored: there is nothing to advance.
func (s *State) UpdateFailed(code failure.Code) {
	s.mustInit()
	slog.Info("update_failed", "code", code.String())

	if len(s.candidates) == 0 {
		slog.Info("failure_ignored_no_candidates", "code", code.String())
		return
	}

	s.reportAttemptMetrics(code)

	switch verdict := failure.Classify(code); verdict {
	case failure.VerdictAdvanceSource:
		s.advanceSource()
	case failure.VerdictPenalizeSource:
		s.penalizeSource()
	case failure.VerdictIgnore:
		slog.Info("failure_leaves_source_untouched", "code", code.String())
	default:
		slog.Warn("unexpected_verdict", "code", code.String(), "verdict", verdict.String())
	}
}

// DownloadProgress accounts freshly received payload bytes to the active
// source. Receiving any bytes is evidence the source works, so a non-zero
// failure count is reset.
func (s *State) DownloadProgress(count int64) {
	s.mustInit()
	if count <= 0 {
		return
	}

	s.accrueDurationUptime()
	s.recordBytesDownloaded(count)

	if s.sourceFailureCount == 0 {
		return
	}
	slog.Info("source_failure_count_reset",
		"source_index", s.sourceIndex, "bytes", count)
	s.setSourceFailureCount(0)
}

// DownloadComplete records a fully downloaded payload, bumping the attempt
// counters that feed backoff.
func (s *State) DownloadComplete() {
	s.mustInit()
	slog.Info("payload_download_complete")
	s.incrementPayloadAttemptNumber()
	s.incrementFullPayloadAttemptNumber()
}

// AttemptStarted marks the start of a new download attempt for metric
// bookkeeping.
func (s *State) AttemptStarted() {
	s.mustInit()
	s.attemptStartUptime = s.clock.MonotonicNow()
	s.attemptBytes = 0
}

// UpdateResumed is called when a previously started update continues after
// a process restart or reboot.
func (s *State) UpdateResumed() {
	s.mustInit()
	slog.Info("update_resumed")
	if s.systemRebooted {
		s.setNumReboots(s.numReboots + 1)
	}
	s.AttemptStarted()
}

// UpdateRestarted is called when a fresh attempt cycle begins. Bytes of the
// current cycle are zeroed; lifetime totals are kept until success.
func (s *State) UpdateRestarted() {
	s.mustInit()
	slog.Info("update_restarted")
	s.resetCurrentBytes()
	s.setNumReboots(0)
	s.AttemptStarted()
}

// UpdateSucceeded reports the final metrics for the whole update and then
// clears every per-update counter, including the lifetime byte totals.
func (s *State) UpdateSucceeded() {
	s.mustInit()
	slog.Info("update_succeeded")

	s.accrueDurationUptime()
	s.setUpdateTimestampEnd(s.clock.WallclockNow())

	s.reportAttemptMetrics(failure.CodeSuccess)
	s.reportSuccessfulUpdateMetrics()

	// Responses seen counts from the last successful update, e.g. now.
	s.setNumResponsesSeen(0)

	s.writeSystemUpdatedMarker()
}

// SetUsingPeerDownload switches the active source to or from the local
// peer.
func (s *State) SetUsingPeerDownload(value bool) {
	s.mustInit()
	s.usingPeerDownload = value
	s.updateCurrentSource()
}

// SetInteractive marks the current check as user-initiated. Interactive
// checks are never subject to backoff.
func (s *State) SetInteractive(value bool) {
	s.mustInit()
	s.interactive = value
}

// Rollback blacklists version in the powerwash-safe namespace so it is not
// reinstalled even after a factory reset.
func (s *State) Rollback(version string) {
	s.mustInit()
	slog.Info("rollback_version_blacklisted", "version", version)
	s.rollbackVersion = version
	if err := s.powerwash.SetString(keyRollbackVersion, version); err != nil {
		slog.Error("prefs_write_failed", "key", keyRollbackVersion, "error", err)
	}
}

func (s *State) resetRollbackVersion() {
	s.rollbackVersion = ""
	if err := s.powerwash.Delete(keyRollbackVersion); err != nil {
		slog.Error("prefs_delete_failed", "key", keyRollbackVersion, "error", err)
	}
}

// CurrentCandidate returns the candidate the next attempt would download
// from, if any.
func (s *State) CurrentCandidate() (release.Candidate, bool) {
	s.mustInit()
	if s.sourceIndex < 0 || s.sourceIndex >= int64(len(s.candidates)) {
		return release.Candidate{}, false
	}
	return s.candidates[s.sourceIndex], true
}

// CurrentSource returns the kind of the active download source, or
// release.NumSources when none is active.
func (s *State) CurrentSource() release.Source {
	s.mustInit()
	return s.currentSource
}

// Snapshot is a read-only view of the persisted counters, for operator
// tooling.
type Snapshot struct {
	ResponseSignature        string
	PayloadAttemptNumber     int64
	FullPayloadAttemptNumber int64
	SourceIndex              int64
	SourceFailureCount       int64
	SourceSwitchCount        int64
	BackoffExpiry            time.Time
	NumResponsesSeen         int64
	NumReboots               int64
	RollbackVersion          string
	PeerAttemptCount         int64
	PeerFirstAttempt         time.Time
	CurrentBytes             map[release.Source]int64
	TotalBytes               map[release.Source]int64
}

// Snapshot returns the current counter values.
func (s *State) Snapshot() Snapshot {
	s.mustInit()
	snap := Snapshot{
		ResponseSignature:        s.responseSignature,
		PayloadAttemptNumber:     s.payloadAttemptNumber,
		FullPayloadAttemptNumber: s.fullPayloadAttemptNumber,
		SourceIndex:              s.sourceIndex,
		SourceFailureCount:       s.sourceFailureCount,
		SourceSwitchCount:        s.sourceSwitchCount,
		BackoffExpiry:            s.backoffExpiry,
		NumResponsesSeen:         s.numResponsesSeen,
		NumReboots:               s.numReboots,
		RollbackVersion:          s.rollbackVersion,
		PeerAttemptCount:         s.peerAttemptCount,
		PeerFirstAttempt:         s.peerFirstAttempt,
		CurrentBytes:             make(map[release.Source]int64, release.NumSources),
		TotalBytes:               make(map[release.Source]int64, release.NumSources),
	}
	for src := release.Source(0); src < release.NumSources; src++ {
		snap.CurrentBytes[src] = s.currentBytes[src]
		snap.TotalBytes[src] = s.totalBytes[src]
	}
	return snap
}
