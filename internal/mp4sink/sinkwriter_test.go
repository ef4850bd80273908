package mp4sink

import (
	"bytes"
	"testing"
	"time"
)

type nopWriteCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopWriteCloser) Close() error {
	n.closed = true
	return nil
}

func testContext() EncodingContext {
	return EncodingContext{
		FrameRate: 30,
		BitRate:   4_000_000,
		Width:     1920,
		Height:    1080,
	}
}

func TestWriteSampleBeforeBeginReturnsErrNotBegun(t *testing.T) {
	w := New(&nopWriteCloser{}, testContext(), false)
	if err := w.WriteSample(Sample{Kind: KindVideo}); err != ErrNotBegun {
		t.Fatalf("want ErrNotBegun, got %v", err)
	}
	if err := w.SignalGap(); err != ErrNotBegun {
		t.Fatalf("want ErrNotBegun, got %v", err)
	}
	if err := w.End(); err != ErrNotBegun {
		t.Fatalf("want ErrNotBegun, got %v", err)
	}
}

func TestBeginTwiceIsRejected(t *testing.T) {
	w := New(&nopWriteCloser{}, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if err := w.Begin(); err == nil {
		t.Fatal("want error on second Begin")
	}
}

func TestBeginWritesOnlyFtyp(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	data := out.Bytes()
	if len(data) < 16 {
		t.Fatalf("expected non-trivial output, got %d bytes", len(data))
	}
	if string(data[4:8]) != "ftyp" {
		t.Fatalf("expected leading ftyp box, got %q", data[4:8])
	}
	if w.moovWritten {
		t.Fatal("moov should not be written until WriteMoov is called")
	}
}

func TestWriteSampleBeforeMoovIsRejected(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.WriteSample(Sample{Data: []byte{1, 2, 3}, Kind: KindVideo}); err == nil {
		t.Fatal("expected WriteSample before WriteMoov to fail")
	}
}

func TestWriteMoovIsIdempotent(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	sps := []byte{0x67, 0x42, 0x00, 0x1e}
	pps := []byte{0x68, 0xce, 0x38, 0x80}
	if err := w.WriteMoov(sps, pps, nil); err != nil {
		t.Fatalf("WriteMoov: %v", err)
	}
	afterFirst := out.Len()
	if err := w.WriteMoov(sps, pps, nil); err != nil {
		t.Fatalf("second WriteMoov: %v", err)
	}
	if out.Len() != afterFirst {
		t.Fatal("expected second WriteMoov to be a no-op")
	}
}

func TestWriteSampleVideoTimestampTracksClock(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	w.clock = func() time.Time { return now }

	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.WriteMoov([]byte{0x67, 0x42, 0x00, 0x1e}, []byte{0x68, 0xce, 0x38, 0x80}, nil); err != nil {
		t.Fatalf("WriteMoov: %v", err)
	}
	before := out.Len()
	now = start.Add(33 * time.Millisecond)
	if err := w.WriteSample(Sample{Data: []byte{1, 2, 3}, Kind: KindVideo}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if out.Len() <= before {
		t.Fatal("expected fragment bytes to be written")
	}
	if w.fragmentSeq != 1 {
		t.Fatalf("expected fragment sequence 1, got %d", w.fragmentSeq)
	}
}

func TestEndClosesUnderlyingWriter(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if !out.closed {
		t.Fatal("expected underlying writer to be closed")
	}
}

func TestSignalGapBeforeMoovIsANoop(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.SignalGap(); err != nil {
		t.Fatalf("SignalGap: %v", err)
	}
	if w.fragmentSeq != 0 {
		t.Fatalf("expected no fragment before moov is written, got seq %d", w.fragmentSeq)
	}
}

func TestSignalGapAdvancesFragmentSequenceWithoutSampleData(t *testing.T) {
	out := &nopWriteCloser{}
	w := New(out, testContext(), false)
	if err := w.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.WriteMoov([]byte{0x67, 0x42, 0x00, 0x1e}, []byte{0x68, 0xce, 0x38, 0x80}, nil); err != nil {
		t.Fatalf("WriteMoov: %v", err)
	}
	if err := w.SignalGap(); err != nil {
		t.Fatalf("SignalGap: %v", err)
	}
	if w.fragmentSeq != 1 {
		t.Fatalf("expected fragment sequence 1 after one gap, got %d", w.fragmentSeq)
	}
}
