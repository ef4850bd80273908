package duplication

import "testing"

func TestClassifyTransient(t *testing.T) {
	if got := Classify(OpAcquireNextFrame, HResultDXGIErrorWaitTimeout); got != KindTransient {
		t.Fatalf("want transient, got %s", got)
	}
}

func TestClassifyRecoverableAcquireFrame(t *testing.T) {
	cases := []HRESULT{HResultDXGIErrorDeviceRemoved, HResultDXGIErrorAccessLost, HResultDXGIErrorInvalidCall}
	for _, hr := range cases {
		if got := Classify(OpAcquireNextFrame, hr); got != KindRecoverable {
			t.Fatalf("hr=0x%08X: want recoverable, got %s", uint32(hr), got)
		}
	}
}

func TestClassifyRecoverableDuplicateOutput(t *testing.T) {
	cases := []HRESULT{HResultDXGIErrorDeviceRemoved, HResultEAccessDenied, HResultDXGIErrorUnsupported, HResultDXGIErrorSessionDisc}
	for _, hr := range cases {
		if got := Classify(OpDuplicateOutput, hr); got != KindRecoverable {
			t.Fatalf("hr=0x%08X: want recoverable, got %s", uint32(hr), got)
		}
	}
}

func TestClassifyDeviceResetRemapsToRecoverable(t *testing.T) {
	if got := Classify(OpAcquireNextFrame, HResultDXGIErrorDeviceReset); got != KindRecoverable {
		t.Fatalf("device reset should remap to device-removed recoverable, got %s", got)
	}
	if got := Classify(OpAcquireNextFrame, HResultEOutOfMemory); got != KindRecoverable {
		t.Fatalf("out-of-memory should remap to device-removed recoverable, got %s", got)
	}
}

func TestClassifyFatalForUnlistedCode(t *testing.T) {
	// Unsupported is only recoverable for DuplicateOutput, not AcquireNextFrame.
	if got := Classify(OpAcquireNextFrame, HResultDXGIErrorUnsupported); got != KindFatal {
		t.Fatalf("want fatal, got %s", got)
	}
}

func TestClassifyOK(t *testing.T) {
	if got := Classify(OpAcquireNextFrame, HResultOK); got != KindNone {
		t.Fatalf("want none, got %s", got)
	}
}

func TestNewErrorMessage(t *testing.T) {
	err := NewError(OpAcquireNextFrame, HResultDXGIErrorAccessLost)
	if err.Kind != KindRecoverable {
		t.Fatalf("want recoverable, got %s", err.Kind)
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
