//go:build windows

package recorder

import (
	"testing"

	"github.com/jgcoded/duplicast/internal/config"
	"github.com/jgcoded/duplicast/internal/mp4sink"
)

func TestResolveDimensionsFixedPresets(t *testing.T) {
	cases := []struct {
		q            config.Quality
		wantW, wantH int32
	}{
		{config.QualityHD720p, 1280, 720},
		{config.QualityHD1080p, 1920, 1080},
		{config.QualityUHD2160, 3840, 2160},
	}
	for _, c := range cases {
		w, h := resolveDimensions(c.q, 1920, 1080)
		if w != c.wantW || h != c.wantH {
			t.Errorf("resolveDimensions(%v) = (%d,%d), want (%d,%d)", c.q, w, h, c.wantW, c.wantH)
		}
	}
}

func TestResolveDimensionsAutoPassesThroughNative(t *testing.T) {
	w, h := resolveDimensions(config.QualityAuto, 2560, 1440)
	if w != 2560 || h != 1440 {
		t.Fatalf("resolveDimensions(Auto) = (%d,%d), want native (2560,1440)", w, h)
	}
}

func TestResolveDimensionsLowScalesDownFromNative(t *testing.T) {
	w, h := resolveDimensions(config.QualityLow, 1920, 1080)
	if w != 960 || h != 540 {
		t.Fatalf("resolveDimensions(Low) = (%d,%d), want (960,540)", w, h)
	}
}

func TestResolveAudioQualityAutoIsMedium(t *testing.T) {
	if got := resolveAudioQuality(config.QualityAuto); got != config.QualityMedium {
		t.Fatalf("resolveAudioQuality(Auto) = %v, want Medium", got)
	}
	if got := resolveAudioQuality(""); got != config.QualityMedium {
		t.Fatalf("resolveAudioQuality(\"\") = %v, want Medium", got)
	}
}

func TestAudioPresetByQuality(t *testing.T) {
	rate, bits, _ := audioPreset(config.QualityLow)
	if rate != 22050 || bits != 16 {
		t.Fatalf("audioPreset(Low) = (%d,%d), want (22050,16)", rate, bits)
	}
	rate, bits, _ = audioPreset(config.QualityHigh)
	if rate != 48000 || bits != 16 {
		t.Fatalf("audioPreset(High) = (%d,%d), want (48000,16)", rate, bits)
	}
}

func TestResolveResolutionQualityCollapsesHDPresetsToHigh(t *testing.T) {
	for _, q := range []config.Quality{config.QualityHigh, config.QualityHD720p, config.QualityHD1080p, config.QualityUHD2160} {
		if got := resolveResolutionQuality(q); got != mp4sink.QualityHigh {
			t.Errorf("resolveResolutionQuality(%v) = %v, want QualityHigh", q, got)
		}
	}
}

func TestResolveResolutionQualityDefaultsToAuto(t *testing.T) {
	if got := resolveResolutionQuality(""); got != mp4sink.QualityAuto {
		t.Fatalf("resolveResolutionQuality(\"\") = %v, want QualityAuto", got)
	}
}
