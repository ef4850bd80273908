// Package recorder implements the per-recording lifecycle of spec §4.8: a
// recorder thread that attaches to the interactive desktop, builds the
// capture/composite/encode pipeline for one recording, ticks it at the
// configured frame rate, and tears everything down on stop or fatal error.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jgcoded/duplicast/internal/audiocap"
	"github.com/jgcoded/duplicast/internal/config"
)

// ErrAttachTimeout is returned when the recorder could not attach to the
// interactive input desktop within the retry budget.
var ErrAttachTimeout = errors.New("recorder: failed to attach to interactive desktop")

const (
	attachRetryInterval = 100 * time.Millisecond
	attachRetryBudget   = 3 * time.Second
)

// FatalErrorCode enumerates the last-fatal-error values the shell reads
// back after a recording stops on its own.
type FatalErrorCode int32

const (
	FatalNone FatalErrorCode = iota
	FatalAttachTimeout
	FatalDeviceLost
	FatalEncoderFailure
	FatalSinkFailure
)

func (c FatalErrorCode) String() string {
	switch c {
	case FatalNone:
		return "none"
	case FatalAttachTimeout:
		return "attach-timeout"
	case FatalDeviceLost:
		return "device-lost"
	case FatalEncoderFailure:
		return "encoder-failure"
	case FatalSinkFailure:
		return "sink-failure"
	default:
		return "unknown"
	}
}

// notifier is implemented by the owning shell to learn about auto-restart
// eligible failures, per spec §4.8's "the shell is notified" clause.
type Notifier interface {
	OnRecordingStopped(code FatalErrorCode, err error)
}

// Thread runs one recording's lifecycle. The platform-specific
// constructor (NewThread) wires a GPU pipeline, encoder, and optional
// audio reader appropriate to the host OS; this file holds the
// OS-independent state machine around it.
type Thread struct {
	cfg      config.Config
	notifier Notifier

	stopRequested atomic.Bool
	lastFatal     atomic.Int32

	wg sync.WaitGroup

	// platform hook, set by NewThread on supported platforms.
	runTick      func(ctx context.Context) (wroteVideo bool, err error)
	attachDesktop func(ctx context.Context) error
	buildPipeline func() error
	teardown      func()
	audioReader   audiocap.AsyncAudioReader
	onAudioSample func(audiocap.Sample) error
}

// Stop requests cooperative cancellation. Per spec §5, it terminates
// within max(100ms, 1000/framerate ms) plus sink finalization time.
func (t *Thread) Stop() {
	t.stopRequested.Store(true)
}

// Wait blocks until the goroutine launched by Start has returned.
func (t *Thread) Wait() {
	t.wg.Wait()
}

// LastFatalError returns the most recently recorded fatal error code, or
// FatalNone if the recording is still running or ended cleanly.
func (t *Thread) LastFatalError() FatalErrorCode {
	return FatalErrorCode(t.lastFatal.Load())
}

// Start launches the recorder thread's goroutine, which runs the recording
// until Stop or a fatal error, and returns immediately.
func (t *Thread) Start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run()
	}()
}

func (t *Thread) run() {
	ctx, cancel := context.WithTimeout(context.Background(), attachRetryBudget)
	defer cancel()

	if t.attachDesktop != nil {
		if err := t.attachDesktop(ctx); err != nil {
			t.lastFatal.Store(int32(FatalAttachTimeout))
			t.notify(FatalAttachTimeout, err)
			return
		}
	}

	preventIdleSleep()
	defer restoreIdleSleep()

	if t.buildPipeline != nil {
		if err := t.buildPipeline(); err != nil {
			t.lastFatal.Store(int32(FatalDeviceLost))
			t.notify(FatalDeviceLost, err)
			return
		}
	}
	defer func() {
		if t.teardown != nil {
			t.teardown()
		}
	}()

	if t.audioReader != nil && t.onAudioSample != nil {
		if err := t.audioReader.Start(func(s audiocap.Sample) {
			if t.stopRequested.Load() {
				return
			}
			if err := t.onAudioSample(s); err != nil {
				slog.Warn("recorder: audio sample write failed", "error", err)
			}
		}); err != nil {
			slog.Warn("recorder: audio capture unavailable, continuing video-only", "error", err)
		}
	}

	tickInterval := time.Duration(1000/clampFrameRate(t.cfg.FrameRate)) * time.Millisecond

	var fatalErr error
	fatalCode := FatalNone
	for !t.stopRequested.Load() {
		tickCtx, tickCancel := context.WithTimeout(context.Background(), attachRetryBudget)
		_, err := t.runTick(tickCtx)
		tickCancel()
		if err != nil {
			fatalErr = err
			fatalCode = FatalDeviceLost
			break
		}
		time.Sleep(tickInterval)
	}

	if t.audioReader != nil {
		t.audioReader.Stop()
	}

	if fatalCode != FatalNone {
		t.lastFatal.Store(int32(fatalCode))
		if !t.stopRequested.Load() {
			t.notify(fatalCode, fatalErr)
		}
	}
}

func (t *Thread) notify(code FatalErrorCode, err error) {
	if t.notifier != nil {
		t.notifier.OnRecordingStopped(code, err)
	}
}

func clampFrameRate(fps int) int {
	if fps < 1 {
		return 1
	}
	return fps
}

// nextFileName appends a numeric suffix before the extension, for the
// auto-restart "increment filename" behavior of spec §4.8.
func nextFileName(name string, attempt int) string {
	if attempt == 0 {
		return name
	}
	ext := ""
	base := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			ext = name[i:]
			base = name[:i]
			break
		}
	}
	return fmt.Sprintf("%s-%d%s", base, attempt, ext)
}
