package attempt

import (
	"testing"
	"time"
)

func TestEngineStartedReportsTimeToReboot(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.DownloadProgress(1000)
	env.state.DownloadComplete()
	env.state.UpdateSucceeded()

	env.clock.Advance(30 * time.Minute)
	env.newState(true, 0)
	env.state.EngineStarted()

	if len(env.sink.TimesToReboot) != 1 || env.sink.TimesToReboot[0] != 30*time.Minute {
		t.Errorf("time-to-reboot reports = %v, want [30m]", env.sink.TimesToReboot)
	}

	// Reported once: the marker is consumed.
	if exists, err := env.main().Exists(keySystemUpdatedMarker); err != nil || exists {
		t.Errorf("system-updated marker still present (exists=%v, err=%v)", exists, err)
	}
}

func TestEngineStartedWithoutRebootDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.UpdateSucceeded()

	env.newState(false, 0)
	env.state.EngineStarted()

	if len(env.sink.TimesToReboot) != 0 {
		t.Errorf("time-to-reboot reports = %v, want none without a reboot", env.sink.TimesToReboot)
	}
	if exists, _ := env.main().Exists(keySystemUpdatedMarker); !exists {
		t.Error("marker must survive until the reboot actually happens")
	}
}

func TestFailedBootDetectedOnSameSlot(t *testing.T) {
	env := newTestEnv(t)
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")

	// Booting from the slot the update was installed from means the new
	// version never came up.
	env.newState(true, 0)
	env.state.EngineStarted()

	if len(env.sink.FailedBoots) != 1 || env.sink.FailedBoots[0] != 1 {
		t.Errorf("failed-boot reports = %v, want [1]", env.sink.FailedBoots)
	}
	if exists, _ := env.main().Exists(keyTargetVersionInstalledFrom); exists {
		t.Error("installed-from marker should be consumed")
	}
}

func TestSameTargetVersionAccumulatesBootAttempts(t *testing.T) {
	env := newTestEnv(t)
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")

	env.newState(true, 0)
	env.state.EngineStarted()

	if len(env.sink.FailedBoots) != 1 || env.sink.FailedBoots[0] != 2 {
		t.Errorf("failed-boot reports = %v, want [2]", env.sink.FailedBoots)
	}
}

func TestDifferentTargetVersionRestartsBootAttempts(t *testing.T) {
	env := newTestEnv(t)
	env.state.ExpectRebootInNewVersion("13729.0.0-rc1")
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")

	env.newState(true, 0)
	env.state.EngineStarted()

	if len(env.sink.FailedBoots) != 1 || env.sink.FailedBoots[0] != 1 {
		t.Errorf("failed-boot reports = %v, want [1] after the target changed", env.sink.FailedBoots)
	}
}

func TestBootIntoNewSlotClearsExpectation(t *testing.T) {
	env := newTestEnv(t)
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")

	env.newState(true, 1)
	env.state.EngineStarted()

	if len(env.sink.FailedBoots) != 0 {
		t.Errorf("failed-boot reports = %v, want none on a successful slot switch", env.sink.FailedBoots)
	}
	for _, key := range []string{keyTargetVersionInstalledFrom, keyTargetVersionAttempt, keyTargetVersionUniqueID} {
		if exists, _ := env.main().Exists(key); exists {
			t.Errorf("key %q should be cleared after a successful boot", key)
		}
	}
}

func TestResetUpdateStatusWithdrawsExpectation(t *testing.T) {
	env := newTestEnv(t)
	env.state.ExpectRebootInNewVersion("13729.0.0-rc2")
	env.state.ResetUpdateStatus()

	env.newState(true, 0)
	env.state.EngineStarted()

	if len(env.sink.FailedBoots) != 0 {
		t.Errorf("failed-boot reports = %v, want none after the expectation was withdrawn", env.sink.FailedBoots)
	}
}
