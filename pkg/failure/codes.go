// Package failure defines the closed set of failure codes an update attempt
// can end with, and classifies each one into the retry verdict that drives
// download-source failover.
package failure

// Code is a closed enum of attempt failure conditions. New codes must be
// added to both the names table and the verdict table in classify.go;
// TestClassifyCoversAllCodes fails the build's test run otherwise.
type Code int

const (
	CodeSuccess Code = iota

	// Generic failure with no more specific code.
	CodeError

	// Codes indicating the source delivered bad data. Retrying the same
	// source is pointless; the controller advances to the next one.
	CodePayloadHashMismatch
	CodePayloadSizeMismatch
	CodePayloadVerificationFailed
	CodePayloadSignatureFailed
	CodeDeltaSignatureExpected
	CodePayloadTypeMismatch
	CodeMetadataMagicInvalid
	CodeMetadataSizeInvalid
	CodeMetadataSignatureMissing
	CodeMetadataSignatureMismatch
	CodeMetadataSignatureFailed
	CodeManifestParseFailed
	CodeOperationHashMismatch
	CodeOperationHashMissing
	CodeOperationExecutionFailed
	CodeUnsupportedMajorVersion
	CodeUnsupportedMinorVersion

	// Codes indicating a transient transport or local-write condition.
	// The current source keeps its position but accrues a failure.
	CodeDownloadTransferFailed
	CodeDownloadWriteFailed
	CodeDownloadStateInitFailed
	CodeServerHTTPError

	// Codes unrelated to any particular source. Source selection state
	// must not be perturbed by these.
	CodeCheckRequestFailed
	CodeCheckResponseInvalid
	CodeCheckResponseEmpty
	CodeResponseHandlerFailed
	CodeFilesystemCopyFailed
	CodeInstallDeviceOpenFailed
	CodeKernelDeviceOpenFailed
	CodeNewPartitionInfoFailed
	CodeNewRootVerificationFailed
	CodeNewKernelVerificationFailed
	CodePostInstallFailed
	CodePostInstallBootedFromFallback
	CodePostInstallFirmwareNotUpdatable
	CodePowerwashFailed
	CodeUpdateIgnoredPerPolicy
	CodeUpdateDeferredPerPolicy
	CodeUpdateDeferredForBackoff
	CodeUpdateCanceled

	NumCodes
)

var codeNames = [NumCodes]string{
	CodeSuccess:                         "success",
	CodeError:                           "error",
	CodePayloadHashMismatch:             "payload-hash-mismatch",
	CodePayloadSizeMismatch:             "payload-size-mismatch",
	CodePayloadVerificationFailed:       "payload-verification-failed",
	CodePayloadSignatureFailed:          "payload-signature-failed",
	CodeDeltaSignatureExpected:          "delta-signature-expected",
	CodePayloadTypeMismatch:             "payload-type-mismatch",
	CodeMetadataMagicInvalid:            "metadata-magic-invalid",
	CodeMetadataSizeInvalid:             "metadata-size-invalid",
	CodeMetadataSignatureMissing:        "metadata-signature-missing",
	CodeMetadataSignatureMismatch:       "metadata-signature-mismatch",
	CodeMetadataSignatureFailed:         "metadata-signature-failed",
	CodeManifestParseFailed:             "manifest-parse-failed",
	CodeOperationHashMismatch:           "operation-hash-mismatch",
	CodeOperationHashMissing:            "operation-hash-missing",
	CodeOperationExecutionFailed:        "operation-execution-failed",
	CodeUnsupportedMajorVersion:         "unsupported-major-version",
	CodeUnsupportedMinorVersion:         "unsupported-minor-version",
	CodeDownloadTransferFailed:          "download-transfer-failed",
	CodeDownloadWriteFailed:             "download-write-failed",
	CodeDownloadStateInitFailed:         "download-state-init-failed",
	CodeServerHTTPError:                 "server-http-error",
	CodeCheckRequestFailed:              "check-request-failed",
	CodeCheckResponseInvalid:            "check-response-invalid",
	CodeCheckResponseEmpty:              "check-response-empty",
	CodeResponseHandlerFailed:           "response-handler-failed",
	CodeFilesystemCopyFailed:            "filesystem-copy-failed",
	CodeInstallDeviceOpenFailed:         "install-device-open-failed",
	CodeKernelDeviceOpenFailed:          "kernel-device-open-failed",
	CodeNewPartitionInfoFailed:          "new-partition-info-failed",
	CodeNewRootVerificationFailed:       "new-root-verification-failed",
	CodeNewKernelVerificationFailed:     "new-kernel-verification-failed",
	CodePostInstallFailed:               "post-install-failed",
	CodePostInstallBootedFromFallback:   "post-install-booted-from-fallback",
	CodePostInstallFirmwareNotUpdatable: "post-install-firmware-not-updatable",
	CodePowerwashFailed:                 "powerwash-failed",
	CodeUpdateIgnoredPerPolicy:          "update-ignored-per-policy",
	CodeUpdateDeferredPerPolicy:         "update-deferred-per-policy",
	CodeUpdateDeferredForBackoff:        "update-deferred-for-backoff",
	CodeUpdateCanceled:                  "update-canceled",
}

func (c Code) String() string {
	if c < 0 || c >= NumCodes {
		return "invalid"
	}
	return codeNames[c]
}
