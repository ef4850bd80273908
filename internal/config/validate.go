package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validResolutionOptions = map[Quality]bool{
	QualityAuto: true, QualityLow: true, QualityMedium: true, QualityHigh: true,
	QualityHD720p: true, QualityHD1080p: true, QualityUHD2160: true,
}

var validAudioQualities = map[Quality]bool{
	QualityAuto: true, QualityLow: true, QualityMedium: true, QualityHigh: true,
}

// Validate checks the config for invalid values and returns all errors
// found. Dangerous zero-values that would cause a division-by-zero in the
// tick loop (frame rate) or an unusable bitrate are clamped to safe
// defaults; other validation errors are logged as warnings but do not
// prevent startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.FrameRate < 1 {
		errs = append(errs, fmt.Errorf("framerate %d is below minimum 1, clamping", c.FrameRate))
		c.FrameRate = 1
	} else if c.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("framerate %d exceeds maximum 240, clamping", c.FrameRate))
		c.FrameRate = 240
	}

	if c.BitRate < 100_000 {
		errs = append(errs, fmt.Errorf("bitrate %d is below minimum 100000, clamping", c.BitRate))
		c.BitRate = 100_000
	}

	if c.Monitor < 0 {
		errs = append(errs, fmt.Errorf("monitor %d must not be negative, clamping to 0", c.Monitor))
		c.Monitor = 0
	}

	if c.ResolutionOption != "" && !validResolutionOptions[Quality(strings.ToLower(string(c.ResolutionOption)))] {
		errs = append(errs, fmt.Errorf("resolution_option %q is not valid", c.ResolutionOption))
	}

	if c.AudioQuality != "" && !validAudioQualities[Quality(strings.ToLower(string(c.AudioQuality)))] {
		errs = append(errs, fmt.Errorf("audio_quality %q is not valid", c.AudioQuality))
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
