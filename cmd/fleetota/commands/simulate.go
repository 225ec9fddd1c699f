package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"

	"github.com/fleetota/fleetota/internal/config"
	"github.com/fleetota/fleetota/pkg/attempt"
	"github.com/fleetota/fleetota/pkg/errors"
	"github.com/fleetota/fleetota/pkg/failure"
	"github.com/fleetota/fleetota/pkg/metrics"
	"github.com/fleetota/fleetota/pkg/release"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <version> <url>...",
	Short: "Drive one update attempt cycle against the persisted state",
	Long:  `Runs a synthetic check/download/apply/report cycle through the attempt state machine, persisting exactly what a real attempt would. Useful for inspecting failover and backoff behavior on a real prefs store.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSimulate,
}

var simInjectTransferError bool

func init() {
	simulateCmd.Flags().BoolVar(&simInjectTransferError, "inject-transfer-error", false,
		"Inject one transient transfer failure before the download succeeds")
	rootCmd.AddCommand(simulateCmd)
}

// SimRequest is the simulation FSM input
type SimRequest struct {
	Version     string
	URLs        []string
	PayloadSize int64

	InjectTransferError bool
}

// SimResponse is the simulation FSM output (accumulated across transitions)
type SimResponse struct {
	// From Download
	BytesDownloaded int64
	SourceUsed      string

	// From Report
	Attempts       int64
	SourceSwitches int64
	BackoffUntil   string
	Status         string
}

// State names
const (
	stateCheck    = "check"
	stateDownload = "download"
	stateApply    = "apply"
	stateReport   = "report"
	stateFailed   = "failed"
)

// simMachine holds dependencies for the simulation FSM transitions
type simMachine struct {
	state                *attempt.State
	maxFailuresPerSource int
}

// Register registers the update simulation FSM
func (m *simMachine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[SimRequest, SimResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[SimRequest, SimResponse](manager, "update-attempt").
		Start(stateCheck, m.handleCheck).
		To(stateDownload, m.handleDownload).
		To(stateApply, m.handleApply).
		To(stateReport, m.handleReport).
		End(stateFailed).
		Build(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}
	return start, resume, nil
}

// handleCheck installs the synthetic update offer and honors any backoff
// window already in force.
func (m *simMachine) handleCheck(ctx context.Context, req *fsm.Request[SimRequest, SimResponse]) (*fsm.Response[SimResponse], error) {
	slog.Info("sim_state_check", "version", req.Msg.Version)

	resp := req.W.Msg
	if resp == nil {
		resp = &SimResponse{}
	}

	m.state.SetResponse(release.Response{
		PayloadURLs:          req.Msg.URLs,
		PayloadSize:          req.Msg.PayloadSize,
		PayloadHash:          fmt.Sprintf("sim-%s", req.Msg.Version),
		MaxFailuresPerSource: m.maxFailuresPerSource,
	})

	if m.state.ShouldBackoffDownload() {
		snap := m.state.Snapshot()
		resp.BackoffUntil = snap.BackoffExpiry.String()
		resp.Status = "backed-off"
		slog.Info("sim_backed_off", "until", resp.BackoffUntil)
		return nil, fsm.Abort(fmt.Errorf("backoff in effect until %s", resp.BackoffUntil))
	}

	if _, ok := m.state.CurrentCandidate(); !ok {
		m.state.UpdateFailed(failure.CodeCheckResponseEmpty)
		return nil, fsm.Abort(fmt.Errorf("no usable download sources"))
	}

	return fsm.NewResponse(resp), nil
}

// handleDownload simulates the payload transfer, feeding progress into the
// byte ledger and optionally a transient failure into the failover
// controller.
func (m *simMachine) handleDownload(ctx context.Context, req *fsm.Request[SimRequest, SimResponse]) (*fsm.Response[SimResponse], error) {
	slog.Info("sim_state_download", "version", req.Msg.Version)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	m.state.UpdateRestarted()

	if req.Msg.InjectTransferError {
		slog.Info("sim_injecting_transfer_error")
		m.state.UpdateFailed(failure.CodeDownloadTransferFailed)
	}

	candidate, ok := m.state.CurrentCandidate()
	if !ok {
		return nil, fsm.Abort(fmt.Errorf("no download source available"))
	}
	slog.Info("sim_download_started", "url", candidate.URL, "source", candidate.Kind.String())

	const chunks = 8
	chunk := req.Msg.PayloadSize / chunks
	for i := 0; i < chunks; i++ {
		m.state.DownloadProgress(chunk)
		resp.BytesDownloaded += chunk
	}
	if rem := req.Msg.PayloadSize - resp.BytesDownloaded; rem > 0 {
		m.state.DownloadProgress(rem)
		resp.BytesDownloaded += rem
	}
	resp.SourceUsed = m.state.CurrentSource().String()

	slog.Info("sim_download_complete",
		"bytes", resp.BytesDownloaded, "source", resp.SourceUsed)

	return fsm.NewResponse(resp), nil
}

// handleApply records the completed download and the pending reboot.
func (m *simMachine) handleApply(ctx context.Context, req *fsm.Request[SimRequest, SimResponse]) (*fsm.Response[SimResponse], error) {
	slog.Info("sim_state_apply", "version", req.Msg.Version)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	m.state.DownloadComplete()
	m.state.ExpectRebootInNewVersion(req.Msg.Version)

	return fsm.NewResponse(resp), nil
}

// handleReport finalizes the cycle as a successful update.
func (m *simMachine) handleReport(ctx context.Context, req *fsm.Request[SimRequest, SimResponse]) (*fsm.Response[SimResponse], error) {
	slog.Info("sim_state_report", "version", req.Msg.Version)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	snap := m.state.Snapshot()
	resp.Attempts = snap.PayloadAttemptNumber
	resp.SourceSwitches = snap.SourceSwitchCount

	m.state.UpdateSucceeded()
	resp.Status = "succeeded"

	return fsm.NewResponse(resp), nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	version := args[0]
	urls := args[1:]

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}
	if err := ensureDirectories(cfg.PrefsPath, cfg.FSMDBPath); err != nil {
		return err
	}

	sink := metrics.NewPrometheus(prometheus.NewRegistry())
	state, store, err := openState(cfg, sink)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := &simMachine{state: state, maxFailuresPerSource: cfg.MaxFailuresPerSource}
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	req := &SimRequest{
		Version:             version,
		URLs:                urls,
		PayloadSize:         cfg.SimPayloadSize,
		InjectTransferError: simInjectTransferError,
	}
	resp := &SimResponse{}

	fsmVersion, err := start(ctx, version, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "version", fsmVersion)

	if err := manager.Wait(ctx, fsmVersion); err != nil {
		return errors.Wrap(err, "FSM execution failed")
	}

	slog.Info("simulation completed",
		"status", resp.Status,
		"attempts", resp.Attempts,
		"source_switches", resp.SourceSwitches,
		"bytes", resp.BytesDownloaded)

	return nil
}
