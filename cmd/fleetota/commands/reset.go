package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetota/fleetota/internal/config"
	"github.com/fleetota/fleetota/pkg/errors"
	"github.com/fleetota/fleetota/pkg/prefs"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the persisted attempt state (keeps the powerwash-safe namespace)",
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := ensureDirectories(cfg.PrefsPath, ""); err != nil {
		return err
	}

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return errors.Wrap(err, "prefs open failed")
	}
	defer store.Close()

	if err := store.Wipe(prefs.NamespaceMain); err != nil {
		return errors.Wrap(err, "wipe failed")
	}

	fmt.Println("Attempt state wiped")
	return nil
}
