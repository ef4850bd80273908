package audiocap

import "testing"

func TestSampleCarriesTimestamp(t *testing.T) {
	s := Sample{PCM: []int16{1, 2, 3}, TimestampHundredNanos: 12345}
	if s.TimestampHundredNanos != 12345 {
		t.Fatalf("expected timestamp to round-trip, got %d", s.TimestampHundredNanos)
	}
	if len(s.PCM) != 3 {
		t.Fatalf("expected 3 PCM samples, got %d", len(s.PCM))
	}
}

func TestFormatFieldsAreIndependent(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
	if f.SampleRate != 44100 || f.Channels != 2 || f.BitsPerSample != 16 {
		t.Fatal("expected Format fields to be stored as given")
	}
}
