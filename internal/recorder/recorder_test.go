package recorder

import "testing"

func TestNextFileNameFirstAttemptIsUnchanged(t *testing.T) {
	if got := nextFileName("capture.mp4", 0); got != "capture.mp4" {
		t.Fatalf("nextFileName(attempt=0) = %q, want unchanged", got)
	}
}

func TestNextFileNameAppendsSuffixBeforeExtension(t *testing.T) {
	got := nextFileName("capture.mp4", 1)
	want := "capture-1.mp4"
	if got != want {
		t.Fatalf("nextFileName(attempt=1) = %q, want %q", got, want)
	}
}

func TestNextFileNameWithNoExtension(t *testing.T) {
	got := nextFileName("capture", 2)
	want := "capture-2"
	if got != want {
		t.Fatalf("nextFileName(no ext) = %q, want %q", got, want)
	}
}

func TestClampFrameRateRejectsZeroAndBelow(t *testing.T) {
	if got := clampFrameRate(0); got != 1 {
		t.Fatalf("clampFrameRate(0) = %d, want 1", got)
	}
	if got := clampFrameRate(-5); got != 1 {
		t.Fatalf("clampFrameRate(-5) = %d, want 1", got)
	}
}

func TestClampFrameRatePassesThroughPositive(t *testing.T) {
	if got := clampFrameRate(30); got != 30 {
		t.Fatalf("clampFrameRate(30) = %d, want 30", got)
	}
}

type stubNotifier struct {
	code FatalErrorCode
	err  error
	got  bool
}

func (s *stubNotifier) OnRecordingStopped(code FatalErrorCode, err error) {
	s.got = true
	s.code = code
	s.err = err
}

func TestThreadStopIsIdempotentBeforeStart(t *testing.T) {
	th := &Thread{}
	th.Stop()
	th.Stop()
	if !th.stopRequested.Load() {
		t.Fatal("expected stopRequested to be true")
	}
}

func TestThreadLastFatalErrorDefaultsToNone(t *testing.T) {
	th := &Thread{}
	if got := th.LastFatalError(); got != FatalNone {
		t.Fatalf("LastFatalError() = %v, want FatalNone", got)
	}
}

func TestThreadNotifyInvokesNotifier(t *testing.T) {
	n := &stubNotifier{}
	th := &Thread{notifier: n}
	th.notify(FatalDeviceLost, nil)
	if !n.got || n.code != FatalDeviceLost {
		t.Fatalf("notifier not invoked with expected code: %+v", n)
	}
}

func TestThreadNotifyWithNilNotifierDoesNotPanic(t *testing.T) {
	th := &Thread{}
	th.notify(FatalSinkFailure, nil)
}
