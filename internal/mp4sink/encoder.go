package mp4sink

import (
	"fmt"
	"io"
)

// pendingAudioSample is an encoded AAC access unit produced before the
// video track's parameter sets (and therefore moov) were ready to write.
type pendingAudioSample struct {
	data []byte
	ts   int64
}

// Encoder is the single entry point a recorder thread drives: Begin once,
// WriteVideoFrame per composited texture readback, WriteAudioSamples per
// captured PCM block, End once. It owns the H.264 backend, the BGRA->I420
// conversion, the AAC encoder, and the underlying SinkWriter, so callers
// never touch box-level muxing details directly.
type Encoder struct {
	ctx    EncodingContext
	video  videoEncoder
	audio  *audioEncoder
	sink   *SinkWriter
	stride int

	// sps/pps are latched from the first encoded video frame that carries
	// them and moovWritten tracks whether WriteMoov has been called yet —
	// video samples can't be muxed until it has, and audio samples arriving
	// first are buffered in pendingAudio until it catches up.
	sps, pps     []byte
	moovWritten  bool
	pendingAudio []pendingAudioSample
}

// NewEncoder builds an Encoder for ctx, writing the finished container to
// out. audioEnabled controls whether an audio track and AAC encoder are
// constructed at all.
func NewEncoder(out io.WriteCloser, ctx EncodingContext, audioEnabled bool) (*Encoder, error) {
	video, err := newOpenH264Backend(ctx)
	if err != nil {
		return nil, fmt.Errorf("mp4sink: build video encoder: %w", err)
	}

	e := &Encoder{
		ctx:    ctx,
		video:  video,
		sink:   New(out, ctx, audioEnabled),
		stride: ctx.Width * 4,
	}
	if audioEnabled {
		audio, err := newAudioEncoder(ctx.AudioSampleRate, ctx.AudioChannels)
		if err != nil {
			video.Close()
			return nil, fmt.Errorf("mp4sink: build audio encoder: %w", err)
		}
		e.audio = audio
	}
	return e, nil
}

// Begin starts the container.
func (e *Encoder) Begin() error {
	return e.sink.Begin()
}

// WriteVideoFrame converts one BGRA readback (as produced by reading back a
// composited surface snapshot) to I420, encodes it, converts the encoder's
// Annex-B output to AVCC framing, and muxes the result as a video sample.
// The first frame carrying SPS/PPS triggers the deferred moov write (and
// flushes any audio samples buffered ahead of it).
func (e *Encoder) WriteVideoFrame(bgra []byte) error {
	i420 := bgraToI420(bgra, e.ctx.Width, e.ctx.Height, e.stride)
	nal, err := e.video.EncodeI420(i420)
	if err != nil {
		return fmt.Errorf("mp4sink: encode video frame: %w", err)
	}
	if len(nal) == 0 {
		// Reordered frame buffered by the encoder; nothing to mux yet.
		return nil
	}

	avcc, sps, pps := annexBToAVCC(nal)
	if e.sps == nil && sps != nil {
		e.sps, e.pps = sps, pps
	}
	if !e.moovWritten {
		if e.sps == nil {
			// No parameter sets seen yet and nothing but parameter sets in
			// this frame either; nothing left to mux from it.
			return nil
		}
		if err := e.ensureMoov(); err != nil {
			return err
		}
	}
	if len(avcc) == 0 {
		// Parameter-set-only access unit; the coded slice comes later.
		return nil
	}
	return e.sink.WriteSample(Sample{Data: avcc, Kind: KindVideo})
}

// ensureMoov writes the deferred moov box once sps/pps are known and
// flushes any audio samples that were buffered ahead of it.
func (e *Encoder) ensureMoov() error {
	var asc []byte
	if e.audio != nil {
		asc = e.audio.audioSpecificConfig
	}
	if err := e.sink.WriteMoov(e.sps, e.pps, asc); err != nil {
		return fmt.Errorf("mp4sink: write moov: %w", err)
	}
	e.moovWritten = true

	pending := e.pendingAudio
	e.pendingAudio = nil
	for _, p := range pending {
		if err := e.sink.WriteSample(Sample{Data: p.data, Kind: KindAudio, TimestampHundredNanos: p.ts}); err != nil {
			return fmt.Errorf("mp4sink: flush buffered audio sample: %w", err)
		}
	}
	return nil
}

// WriteAudioSamples encodes one block of interleaved PCM captured at
// timestampHundredNanos (100-ns units since the Unix epoch, matching the
// capture clock) to AAC and muxes each resulting access unit as an audio
// sample. Access units produced before the video track's parameter sets are
// known are buffered and flushed once WriteVideoFrame establishes them.
func (e *Encoder) WriteAudioSamples(pcm []int16, timestampHundredNanos int64) error {
	if e.audio == nil {
		return nil
	}
	units, err := e.audio.Encode(pcm)
	if err != nil {
		return fmt.Errorf("mp4sink: encode audio frame: %w", err)
	}
	for _, frame := range units {
		if !e.moovWritten {
			e.pendingAudio = append(e.pendingAudio, pendingAudioSample{data: frame, ts: timestampHundredNanos})
			continue
		}
		if err := e.sink.WriteSample(Sample{
			Data:                  frame,
			Kind:                  KindAudio,
			TimestampHundredNanos: timestampHundredNanos,
		}); err != nil {
			return fmt.Errorf("mp4sink: write audio sample: %w", err)
		}
	}
	return nil
}

// SignalGap forwards to the underlying sink, keeping the container's
// duration accurate across a period with no captured video frame.
func (e *Encoder) SignalGap() error {
	return e.sink.SignalGap()
}

// End closes the video and audio encoders and then ends the underlying
// container. The encoders are not drained first: frames either encoder
// still holds, and PCM shorter than one AAC frame, are discarded.
func (e *Encoder) End() error {
	if e.video != nil {
		e.video.Close()
	}
	if e.audio != nil {
		e.audio.Close()
	}
	return e.sink.End()
}
