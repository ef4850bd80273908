// Package mp4sink implements SinkWriter: a fragmented-MP4 muxer that
// accepts composited video samples and PCM audio samples and produces one
// H.264+AAC MP4 file, plus the EncodingContext inputs a RecorderThread
// supplies to configure it.
package mp4sink

// Quality is a coarse encoding-quality preset, applied to both video
// resolution scaling and audio bitrate/sample-rate selection.
type Quality int

const (
	QualityAuto Quality = iota
	QualityLow
	QualityMedium
	QualityHigh
)

// EncodingContext configures one recording's encoder and container,
// mirroring the original's EncodingContext: filename, quality presets,
// frame rate/bitrate, and the device the encoder's input media types are
// bound to.
type EncodingContext struct {
	FileName          string
	ResolutionOption  Quality
	AudioQuality      Quality
	FrameRate         int
	BitRate           int
	Width, Height     int
	AudioSampleRate   int
	AudioChannels     int
	AudioBitsPerSample int

	// Device is the platform GPU device handle of the recording (an
	// ID3D11Device* on Windows). The encoder does not read it: video
	// arrives as BGRA bytes through Encoder.WriteVideoFrame.
	Device uintptr
}

// ResolveAudioQuality maps Auto to Medium, per spec §6.
func ResolveAudioQuality(q Quality) Quality {
	if q == QualityAuto {
		return QualityMedium
	}
	return q
}

// audioPreset returns (sampleRate, bitsPerSample, bitRate) for a resolved
// (non-Auto) audio quality.
func audioPreset(q Quality) (sampleRate, bitsPerSample, bitRate int) {
	switch q {
	case QualityLow:
		return 22050, 16, 64_000
	case QualityHigh:
		return 48000, 16, 192_000
	default: // Medium
		return 44100, 16, 128_000
	}
}
