package mp4sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// SampleKind distinguishes a video sample from an audio sample for
// timestamp computation and track routing, per spec §4.7.
type SampleKind int

const (
	KindVideo SampleKind = iota
	KindAudio
)

// ErrNotBegun is returned by WriteSample/SignalGap/End when called before
// Begin, per spec §4.7's "begin() must precede any write" rule.
var ErrNotBegun = errors.New("mp4sink: write before Begin")

// Sample is one encoded access unit handed to the sink.
type Sample struct {
	Data []byte
	Kind SampleKind
	// TimestampHundredNanos is only read for audio samples: the source
	// wall-clock time the sample was captured at, in 100-ns units, to be
	// re-based onto the stream's begin time.
	TimestampHundredNanos int64
}

// SinkWriter implements the SinkWriter contract of spec §4.7: begin,
// write_sample, signal_gap, end, each mutually exclusive under one mutex,
// muxing into a fragmented MP4 container with one H.264 video track and,
// if enabled, one AAC audio track.
type SinkWriter struct {
	mu    sync.Mutex
	out   io.WriteCloser
	ctx   EncodingContext
	clock func() time.Time

	began        bool
	moovWritten  bool
	writeStart   time.Time
	videoSeq     uint32
	audioEnabled bool

	fragmentSeq uint32
}

// New creates a SinkWriter that will write a fragmented MP4 to out once
// Begin is called. audioEnabled controls whether an AAC track is declared.
func New(out io.WriteCloser, ctx EncodingContext, audioEnabled bool) *SinkWriter {
	return &SinkWriter{out: out, ctx: ctx, clock: time.Now, audioEnabled: audioEnabled}
}

// Begin starts the file: writes ftyp and latches the monotonic
// write-start reference time every subsequent timestamp is relative to.
// moov is written separately, by WriteMoov, once the video track's SPS/PPS
// are known — see WriteMoov's comment.
func (s *SinkWriter) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.began {
		return fmt.Errorf("mp4sink: Begin called twice")
	}
	s.writeStart = s.clock()
	s.began = true

	if _, err := s.out.Write(buildFtyp()); err != nil {
		return fmt.Errorf("write ftyp: %w", err)
	}
	return nil
}

// WriteMoov writes the deferred movie box. moov's avc1 sample entry
// embeds the video track's SPS/PPS as an avcC AVCDecoderConfigurationRecord,
// which the H.264 encoder doesn't produce until its first frame — so moov
// can't be written at Begin time the way a non-fragmented muxer's moov
// (which follows all the mdat data) could. It's a no-op on a second call,
// since by the time Encoder knows sps/pps it can safely call this once per
// sample until it sticks.
func (s *SinkWriter) WriteMoov(sps, pps, audioSpecificConfig []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began {
		return ErrNotBegun
	}
	if s.moovWritten {
		return nil
	}
	if _, err := s.out.Write(buildMoov(s.ctx, s.audioEnabled, sps, pps, audioSpecificConfig)); err != nil {
		return fmt.Errorf("write moov: %w", err)
	}
	s.moovWritten = true
	return nil
}

// WriteSample computes the stream-relative timestamp per spec §4.7 and
// writes one moof+mdat fragment containing the sample.
//
//	video: t = (now - writeStart), duration = 10e6 / frameRate (100-ns units)
//	audio: t = sample.TimestampHundredNanos - writeStart_in_100ns
func (s *SinkWriter) WriteSample(sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began {
		return ErrNotBegun
	}
	if !s.moovWritten {
		return fmt.Errorf("mp4sink: WriteSample called before WriteMoov")
	}

	var t int64
	var duration int64
	switch sample.Kind {
	case KindVideo:
		t = s.clock().Sub(s.writeStart).Nanoseconds() / 100
		duration = 10_000_000 / int64(s.ctx.FrameRate)
	case KindAudio:
		t = sample.TimestampHundredNanos - s.writeStart.UnixNano()/100
	}

	trackID := uint32(1)
	if sample.Kind == KindAudio {
		trackID = 2
	}

	s.fragmentSeq++
	frag := buildFragment(s.fragmentSeq, trackID, sample.Data, uint64(t), uint32(duration))
	if _, err := s.out.Write(frag); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}
	return nil
}

// SignalGap emits a stream-tick fragment carrying no sample data, at the
// current stream time — used to keep the container's duration accurate
// across a period with no captured frames (e.g. a stalled duplication
// recovery).
func (s *SinkWriter) SignalGap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began {
		return ErrNotBegun
	}
	if !s.moovWritten {
		// No video frame has established the track's parameter sets yet;
		// there's no timeline to signal a gap in.
		return nil
	}
	t := s.clock().Sub(s.writeStart).Nanoseconds() / 100
	s.fragmentSeq++
	frag := buildFragment(s.fragmentSeq, 1, nil, uint64(t), 0)
	_, err := s.out.Write(frag)
	return err
}

// End closes the underlying writer. Every fragment has already been
// written by WriteSample/SignalGap, so End writes no further box.
func (s *SinkWriter) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began {
		return ErrNotBegun
	}
	return s.out.Close()
}
