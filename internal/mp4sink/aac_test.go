package mp4sink

import (
	"testing"

	"github.com/asticode/go-astiav"
)

// buildAudioSpecificConfig and channelLayoutFor are pure logic and don't
// need an opened AAC encoder; audioEncoder itself requires libavcodec to
// be linked and is exercised through the recorder's integration path
// instead.

func TestBuildAudioSpecificConfigKnownSampleRate(t *testing.T) {
	asc := buildAudioSpecificConfig(44100, 2)
	if len(asc) != 2 {
		t.Fatalf("expected a 2-byte AudioSpecificConfig, got %d bytes", len(asc))
	}
	const audioObjectTypeAACLC = 2
	objType := asc[0] >> 3
	if objType != audioObjectTypeAACLC {
		t.Fatalf("expected audioObjectType %d, got %d", audioObjectTypeAACLC, objType)
	}
	freqIdx := (uint16(asc[0]&0x7)<<1 | uint16(asc[1]>>7))
	if freqIdx != 4 { // 44100 Hz is index 4 in the ISO/IEC 14496-3 table
		t.Fatalf("expected sampling frequency index 4 for 44100 Hz, got %d", freqIdx)
	}
	channelConfig := (asc[1] >> 3) & 0xf
	if channelConfig != 2 {
		t.Fatalf("expected channelConfiguration 2, got %d", channelConfig)
	}
}

func TestBuildAudioSpecificConfigUnknownSampleRateFallsBackTo44100(t *testing.T) {
	asc := buildAudioSpecificConfig(123456, 1)
	freqIdx := (uint16(asc[0]&0x7)<<1 | uint16(asc[1]>>7))
	if freqIdx != 4 {
		t.Fatalf("expected fallback sampling frequency index 4, got %d", freqIdx)
	}
}

func TestChannelLayoutForMonoVsStereo(t *testing.T) {
	if channelLayoutFor(1) != astiav.ChannelLayoutMono {
		t.Fatal("expected mono channel layout for 1 channel")
	}
	if channelLayoutFor(2) != astiav.ChannelLayoutStereo {
		t.Fatal("expected stereo channel layout for 2 channels")
	}
}
