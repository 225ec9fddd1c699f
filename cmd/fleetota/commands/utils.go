package commands

import (
	"os"
	"path/filepath"

	"github.com/fleetota/fleetota/internal/config"
	"github.com/fleetota/fleetota/pkg/attempt"
	"github.com/fleetota/fleetota/pkg/errors"
	"github.com/fleetota/fleetota/pkg/metrics"
	"github.com/fleetota/fleetota/pkg/prefs"
)

// ensureDirectories creates the directories the store paths live in
func ensureDirectories(prefsPath, fsmDBPath string) error {
	if err := os.MkdirAll(filepath.Dir(prefsPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create prefs directory")
	}
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}
	return nil
}

// openState opens the persisted store and loads an initialized state
// machine over it.
func openState(cfg *config.Config, sink metrics.Sink) (*attempt.State, *prefs.Store, error) {
	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "prefs open failed")
	}

	state := attempt.New(attempt.Params{
		Store:    store,
		Policy:   cfg.Policy(),
		Metrics:  sink,
		BootSlot: cfg.BootSlot,
	})
	if err := state.Initialize(); err != nil {
		store.Close()
		return nil, nil, errors.Wrap(err, "state initialize failed")
	}
	return state, store, nil
}
