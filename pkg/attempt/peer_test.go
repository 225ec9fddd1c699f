package attempt

import (
	"testing"
	"time"
)

func TestPeerAttemptCap(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())

	for i := 0; i < MaxPeerAttempts; i++ {
		if !env.state.PeerAttemptAllowed() {
			t.Fatalf("attempt %d disallowed before the cap", i+1)
		}
		env.state.PeerAttempted()
	}
	// The cap counts attempts made, so the tenth is still admitted.
	if !env.state.PeerAttemptAllowed() {
		t.Fatal("attempt at the cap should still be allowed")
	}

	env.state.PeerAttempted()
	if env.state.PeerAttemptAllowed() {
		t.Error("attempt past the cap should be disallowed")
	}
}

func TestPeerWindowExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.PeerAttempted()

	env.clock.Advance(MaxPeerAttemptWindow - time.Hour)
	if !env.state.PeerAttemptAllowed() {
		t.Fatal("attempt inside the window should be allowed")
	}

	env.clock.Advance(2 * time.Hour)
	if env.state.PeerAttemptAllowed() {
		t.Error("attempt past the window should be disallowed")
	}
}

func TestPeerFirstAttemptInFutureDisallowed(t *testing.T) {
	env := newTestEnv(t)
	future := testEpoch.Add(time.Hour)
	if err := env.main().SetInt64(keyPeerFirstAttemptTimestamp, future.UnixNano()); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}

	// The timestamp survives the reload and is treated as clock tampering.
	env.newState(false, 0)

	if env.state.PeerAttemptAllowed() {
		t.Error("first attempt in the future means the clock moved backwards; disallow")
	}
}

func TestNewOfferResetsPeerState(t *testing.T) {
	env := newTestEnv(t)
	env.state.SetResponse(twoSourceResponse())
	env.state.PeerAttempted()
	env.state.PeerAttempted()

	changed := twoSourceResponse()
	changed.PayloadHash = "def456"
	env.state.SetResponse(changed)

	snap := env.state.Snapshot()
	if snap.PeerAttemptCount != 0 {
		t.Errorf("peer attempt count = %d, want 0 for a new offer", snap.PeerAttemptCount)
	}
	if !snap.PeerFirstAttempt.IsZero() {
		t.Errorf("peer first attempt = %v, want zero for a new offer", snap.PeerFirstAttempt)
	}
	if !env.state.PeerAttemptAllowed() {
		t.Error("fresh offer should admit peer attempts again")
	}
}
