// Package audiocap wraps a platform microphone source as an asynchronous
// producer of timestamped PCM samples, delivered via callback from the
// source's own internal thread.
package audiocap

import "errors"

// ErrAlreadyStarted is returned by Start when called on a reader that is
// already capturing.
var ErrAlreadyStarted = errors.New("audiocap: already started")

// Sample is one block of interleaved PCM audio with the source wall-clock
// time it was captured at, in 100-ns units, monotonically non-decreasing
// across successive samples from the same reader.
type Sample struct {
	PCM                   []int16
	TimestampHundredNanos int64
}

// AsyncAudioReader wraps a microphone endpoint: Start begins capture and
// invokes callback once per delivered sample from the source's own
// internal thread, asynchronously with respect to the caller; Stop halts
// capture and blocks until the internal thread has exited.
type AsyncAudioReader interface {
	Start(callback func(Sample)) error
	Stop()
}

// Format describes the PCM layout a reader delivers, resolved from the
// device's mix format at Start time.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}
