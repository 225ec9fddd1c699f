package attempt

import "github.com/fleetota/fleetota/pkg/release"

// Persisted key names. These form a versioned schema (pkg/prefs owns the
// version); renaming one orphans the old value.
const (
	keyPayloadAttemptNumber       = "payload-attempt-number"
	keyFullPayloadAttemptNumber   = "full-payload-attempt-number"
	keySourceIndex                = "current-source-index"
	keySourceFailureCount         = "current-source-failure-count"
	keySourceSwitchCount          = "source-switch-count"
	keyBackoffExpiryTime          = "backoff-expiry-time"
	keyResponseSignature          = "current-response-signature"
	keyNumResponsesSeen           = "num-responses-seen"
	keyNumReboots                 = "num-reboots"
	keyUpdateTimestampStart       = "update-timestamp-start"
	keyUpdateDurationUptime       = "update-duration-uptime"
	keySystemUpdatedMarker        = "system-updated-marker"
	keyTargetVersionUniqueID      = "target-version-unique-id"
	keyTargetVersionAttempt       = "target-version-attempt"
	keyTargetVersionInstalledFrom = "target-version-installed-from"
	keyPeerNumAttempts            = "p2p-num-attempts"
	keyPeerFirstAttemptTimestamp  = "p2p-first-attempt-timestamp"

	// Lives in the powerwash-safe namespace, unlike everything above.
	keyRollbackVersion = "rollback-version"

	keyCurrentBytesPrefix = "current-bytes-downloaded"
	keyTotalBytesPrefix   = "total-bytes-downloaded"
)

func bytesKey(prefix string, source release.Source) string {
	return prefix + "-from-" + source.String()
}
