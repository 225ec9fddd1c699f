package failure

import "testing"

// TestClassifyCoversAllCodes is the enforcement half of the closed-enum
// design: every code must have both a name and a non-unknown verdict.
func TestClassifyCoversAllCodes(t *testing.T) {
	for c := Code(0); c < NumCodes; c++ {
		if codeNames[c] == "" {
			t.Errorf("code %d has no name", c)
		}
		if verdicts[c] == VerdictUnknown {
			t.Errorf("code %s (%d) has no verdict table entry", c, c)
		}
	}
}

func TestClassifyVerdictGroups(t *testing.T) {
	tests := []struct {
		code Code
		want Verdict
	}{
		{CodePayloadHashMismatch, VerdictAdvanceSource},
		{CodePayloadSizeMismatch, VerdictAdvanceSource},
		{CodeManifestParseFailed, VerdictAdvanceSource},
		{CodeMetadataSignatureMismatch, VerdictAdvanceSource},
		{CodeUnsupportedMajorVersion, VerdictAdvanceSource},

		{CodeError, VerdictPenalizeSource},
		{CodeDownloadTransferFailed, VerdictPenalizeSource},
		{CodeDownloadWriteFailed, VerdictPenalizeSource},
		{CodeServerHTTPError, VerdictPenalizeSource},

		{CodeSuccess, VerdictIgnore},
		{CodeCheckRequestFailed, VerdictIgnore},
		{CodePostInstallFailed, VerdictIgnore},
		{CodeUpdateDeferredPerPolicy, VerdictIgnore},
		{CodeUpdateCanceled, VerdictIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := Classify(tt.code); got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassifyOutOfRange(t *testing.T) {
	if got := Classify(Code(-1)); got != VerdictIgnore {
		t.Errorf("Classify(-1) = %s, want ignore", got)
	}
	if got := Classify(NumCodes); got != VerdictIgnore {
		t.Errorf("Classify(NumCodes) = %s, want ignore", got)
	}
}
