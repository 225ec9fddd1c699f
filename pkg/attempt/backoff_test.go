package attempt

import (
	"testing"
	"time"
)

func TestBackoffWindowGrowth(t *testing.T) {
	for n := int64(1); n <= 10; n++ {
		env := newTestEnv(t)
		env.state.SetResponse(twoSourceResponse())

		for i := int64(0); i < n; i++ {
			env.state.DownloadComplete()
		}

		wantDays := int64(1) << (n - 1)
		if wantDays > maxBackoffDays {
			wantDays = maxBackoffDays
		}
		base := time.Duration(wantDays) * 24 * time.Hour

		expiry := env.state.Snapshot().BackoffExpiry
		fuzz := expiry.Sub(testEpoch) - base
		if fuzz < 0 || fuzz >= maxBackoffFuzz {
			t.Errorf("attempt %d: expiry = %v, want %v plus fuzz in [0, %v)",
				n, expiry, testEpoch.Add(base), maxBackoffFuzz)
		}
	}
}

func TestShouldBackoffUntilExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.DownloadComplete()

	if !env.state.ShouldBackoffDownload() {
		t.Fatal("expected backoff right after a failed cycle")
	}

	// One day plus the maximum fuzz is past any possible expiry.
	env.clock.Advance(24*time.Hour + maxBackoffFuzz)
	if env.state.ShouldBackoffDownload() {
		t.Error("backoff still in effect after the window elapsed")
	}
}

func TestDeltaPayloadSkipsFullAttemptCounter(t *testing.T) {
	env := newTestEnv(t)
	resp := twoSourceResponse()
	resp.IsDelta = true
	env.state.SetResponse(resp)

	env.state.DownloadComplete()

	snap := env.state.Snapshot()
	if snap.PayloadAttemptNumber != 1 {
		t.Errorf("payload attempt number = %d, want 1", snap.PayloadAttemptNumber)
	}
	if snap.FullPayloadAttemptNumber != 0 {
		t.Errorf("full payload attempt number = %d, want 0 for a delta", snap.FullPayloadAttemptNumber)
	}
}

func TestBackoffSuppressed(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv)
	}{
		{"response disables backoff", func(env *testEnv) {
			resp := twoSourceResponse()
			resp.BackoffDisabled = true
			env.state.SetResponse(resp)
		}},
		{"delta payload", func(env *testEnv) {
			resp := twoSourceResponse()
			resp.IsDelta = true
			env.state.SetResponse(resp)
		}},
		{"interactive check", func(env *testEnv) {
			env.state.SetResponse(twoSourceResponse())
			env.state.SetInteractive(true)
		}},
		{"peer download", func(env *testEnv) {
			env.state.SetResponse(twoSourceResponse())
			env.state.SetUsingPeerDownload(true)
		}},
		{"unofficial build", func(env *testEnv) {
			env.policy.official = false
			env.state.SetResponse(twoSourceResponse())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env)

			env.state.DownloadComplete()
			env.state.DownloadComplete()

			if got := env.state.Snapshot().BackoffExpiry; !got.IsZero() {
				t.Errorf("backoff expiry = %v, want zero", got)
			}
			if env.state.ShouldBackoffDownload() {
				t.Error("ShouldBackoffDownload() = true, want false")
			}
		})
	}
}

func TestInteractiveCheckBypassesExistingBackoff(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.DownloadComplete()

	if !env.state.ShouldBackoffDownload() {
		t.Fatal("expected backoff to be in effect")
	}

	env.state.SetInteractive(true)
	if env.state.ShouldBackoffDownload() {
		t.Error("interactive check must bypass an existing backoff window")
	}
}
