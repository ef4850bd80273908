package config

import (
	"strings"
	"testing"
)

func TestValidateFrameRateBelowMinimumClamps(t *testing.T) {
	cfg := Default()
	cfg.FrameRate = 0
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected a validation error for framerate 0")
	}
	if cfg.FrameRate != 1 {
		t.Fatalf("FrameRate = %d, want 1 (clamped)", cfg.FrameRate)
	}
}

func TestValidateFrameRateAboveMaximumClamps(t *testing.T) {
	cfg := Default()
	cfg.FrameRate = 1000
	cfg.Validate()
	if cfg.FrameRate != 240 {
		t.Fatalf("FrameRate = %d, want 240 (clamped)", cfg.FrameRate)
	}
}

func TestValidateBitRateBelowMinimumClamps(t *testing.T) {
	cfg := Default()
	cfg.BitRate = 10
	cfg.Validate()
	if cfg.BitRate != 100_000 {
		t.Fatalf("BitRate = %d, want 100000 (clamped)", cfg.BitRate)
	}
}

func TestValidateNegativeMonitorClampsToZero(t *testing.T) {
	cfg := Default()
	cfg.Monitor = -3
	cfg.Validate()
	if cfg.Monitor != 0 {
		t.Fatalf("Monitor = %d, want 0 (clamped)", cfg.Monitor)
	}
}

func TestValidateUnknownResolutionOptionIsReported(t *testing.T) {
	cfg := Default()
	cfg.ResolutionOption = "bogus"
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "resolution_option") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an error mentioning resolution_option")
	}
}

func TestValidateUnknownAudioQualityIsReported(t *testing.T) {
	cfg := Default()
	cfg.AudioQuality = "bogus"
	errs := cfg.Validate()
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "audio_quality") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an error mentioning audio_quality")
	}
}

func TestValidateUnknownLogLevelIsReported(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected an error for unknown log level")
	}
}

func TestValidateInvalidLogFormatIsReported(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected an error for invalid log format")
	}
}

func TestValidDefaultConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate cleanly, got: %v", errs)
	}
}
