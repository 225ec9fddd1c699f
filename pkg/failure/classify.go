package failure

import "log/slog"

// Verdict is the retry policy a failure code maps to.
type Verdict int

const (
	// VerdictUnknown is the zero value. No code may map to it; the
	// exhaustiveness test treats it as a missing table entry.
	VerdictUnknown Verdict = iota

	// VerdictAdvanceSource moves to the next candidate source.
	VerdictAdvanceSource

	// VerdictPenalizeSource accrues a failure on the current source,
	// advancing only once its failure budget is exhausted.
	VerdictPenalizeSource

	// VerdictIgnore leaves source selection untouched.
	VerdictIgnore
)

func (v Verdict) String() string {
	switch v {
	case VerdictAdvanceSource:
		return "advance-source"
	case VerdictPenalizeSource:
		return "penalize-source"
	case VerdictIgnore:
		return "ignore"
	}
	return "unknown"
}

// verdicts is the total mapping from failure code to retry verdict. Every
// Code must have an entry here.
var verdicts = [NumCodes]Verdict{
	CodePayloadHashMismatch:       VerdictAdvanceSource,
	CodePayloadSizeMismatch:       VerdictAdvanceSource,
	CodePayloadVerificationFailed: VerdictAdvanceSource,
	CodePayloadSignatureFailed:    VerdictAdvanceSource,
	CodeDeltaSignatureExpected:    VerdictAdvanceSource,
	CodePayloadTypeMismatch:       VerdictAdvanceSource,
	CodeMetadataMagicInvalid:      VerdictAdvanceSource,
	CodeMetadataSizeInvalid:       VerdictAdvanceSource,
	CodeMetadataSignatureMissing:  VerdictAdvanceSource,
	CodeMetadataSignatureMismatch: VerdictAdvanceSource,
	CodeMetadataSignatureFailed:   VerdictAdvanceSource,
	CodeManifestParseFailed:       VerdictAdvanceSource,
	CodeOperationHashMismatch:     VerdictAdvanceSource,
	CodeOperationHashMissing:      VerdictAdvanceSource,
	CodeOperationExecutionFailed:  VerdictAdvanceSource,
	CodeUnsupportedMajorVersion:   VerdictAdvanceSource,
	CodeUnsupportedMinorVersion:   VerdictAdvanceSource,

	CodeError:                   VerdictPenalizeSource,
	CodeDownloadTransferFailed:  VerdictPenalizeSource,
	CodeDownloadWriteFailed:     VerdictPenalizeSource,
	CodeDownloadStateInitFailed: VerdictPenalizeSource,
	CodeServerHTTPError:         VerdictPenalizeSource,

	CodeSuccess:                         VerdictIgnore,
	CodeCheckRequestFailed:              VerdictIgnore,
	CodeCheckResponseInvalid:            VerdictIgnore,
	CodeCheckResponseEmpty:              VerdictIgnore,
	CodeResponseHandlerFailed:           VerdictIgnore,
	CodeFilesystemCopyFailed:            VerdictIgnore,
	CodeInstallDeviceOpenFailed:         VerdictIgnore,
	CodeKernelDeviceOpenFailed:          VerdictIgnore,
	CodeNewPartitionInfoFailed:          VerdictIgnore,
	CodeNewRootVerificationFailed:       VerdictIgnore,
	CodeNewKernelVerificationFailed:     VerdictIgnore,
	CodePostInstallFailed:               VerdictIgnore,
	CodePostInstallBootedFromFallback:   VerdictIgnore,
	CodePostInstallFirmwareNotUpdatable: VerdictIgnore,
	CodePowerwashFailed:                 VerdictIgnore,
	CodeUpdateIgnoredPerPolicy:          VerdictIgnore,
	CodeUpdateDeferredPerPolicy:         VerdictIgnore,
	CodeUpdateDeferredForBackoff:        VerdictIgnore,
	CodeUpdateCanceled:                  VerdictIgnore,
}

// Classify returns the retry verdict for a failure code. Out-of-range codes
// are ignored rather than allowed to perturb source selection.
func Classify(c Code) Verdict {
	if c < 0 || c >= NumCodes {
		slog.Warn("failure_code_out_of_range", "code", int(c))
		return VerdictIgnore
	}
	v := verdicts[c]
	if v == VerdictUnknown {
		slog.Warn("failure_code_unclassified", "code", c.String())
		return VerdictIgnore
	}
	return v
}
