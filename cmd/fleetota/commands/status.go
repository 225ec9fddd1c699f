package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetota/fleetota/internal/config"
	"github.com/fleetota/fleetota/pkg/errors"
	"github.com/fleetota/fleetota/pkg/metrics"
	"github.com/fleetota/fleetota/pkg/release"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted update attempt state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := ensureDirectories(cfg.PrefsPath, ""); err != nil {
		return err
	}

	state, store, err := openState(cfg, metrics.Noop{})
	if err != nil {
		return err
	}
	defer store.Close()

	snap := state.Snapshot()

	fmt.Printf("%-30s %d\n", "Payload attempt number", snap.PayloadAttemptNumber)
	fmt.Printf("%-30s %d\n", "Full payload attempt number", snap.FullPayloadAttemptNumber)
	fmt.Printf("%-30s %d\n", "Source index", snap.SourceIndex)
	fmt.Printf("%-30s %d\n", "Source failure count", snap.SourceFailureCount)
	fmt.Printf("%-30s %d\n", "Source switch count", snap.SourceSwitchCount)
	fmt.Printf("%-30s %d\n", "Responses seen", snap.NumResponsesSeen)
	fmt.Printf("%-30s %d\n", "Reboots this update", snap.NumReboots)
	fmt.Printf("%-30s %d\n", "Peer attempts", snap.PeerAttemptCount)

	backoff := "-"
	if !snap.BackoffExpiry.IsZero() {
		backoff = snap.BackoffExpiry.String()
	}
	fmt.Printf("%-30s %s\n", "Backoff expiry", backoff)

	rollback := snap.RollbackVersion
	if rollback == "" {
		rollback = "-"
	}
	fmt.Printf("%-30s %s\n", "Rollback version", rollback)

	fmt.Printf("\n%-15s %15s %15s\n", "SOURCE", "CURRENT BYTES", "TOTAL BYTES")
	for src := release.Source(0); src < release.NumSources; src++ {
		fmt.Printf("%-15s %15d %15d\n", src.String(), snap.CurrentBytes[src], snap.TotalBytes[src])
	}

	return nil
}
