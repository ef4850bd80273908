package mp4sink

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
)

// audioEncoder drives libavcodec's native AAC-LC encoder through astiav,
// converting interleaved PCM16 samples into raw AAC access units — the
// raw_data_block form mp4a/esds declares, with no ADTS header, since that
// framing belongs to a transport stream container this isn't. Samples
// shorter than the encoder's frame size are buffered across calls.
type audioEncoder struct {
	sampleRate int
	channels   int
	layout     astiav.ChannelLayout

	codecCtx *astiav.CodecContext
	swr      *astiav.SoftwareResampleContext
	srcFrame *astiav.Frame
	dstFrame *astiav.Frame
	pkt      *astiav.Packet

	pending []int16

	// audioSpecificConfig is the ISO/IEC 14496-3 decoder config esds
	// embeds in the audio track's sample entry. sampleRate/channels are
	// fixed for the life of a recording, so it's computed once up front.
	audioSpecificConfig []byte
}

func channelLayoutFor(channels int) astiav.ChannelLayout {
	if channels == 1 {
		return astiav.ChannelLayoutMono
	}
	return astiav.ChannelLayoutStereo
}

// newAudioEncoder opens libavcodec's AAC-LC encoder at sampleRate/channels,
// matching the CodecContext setup go-astiav's own recording path uses:
// sample format taken from the codec's first advertised choice, explicit
// time base of 1/sampleRate, and StrictStdComplianceExperimental (some
// libavcodec builds gate native AAC behind it). It returns an error
// rather than falling back to a degraded framer — per spec §6, a track
// that can't be real AAC shouldn't be produced at all.
func newAudioEncoder(sampleRate, channels int) (*audioEncoder, error) {
	codec := astiav.FindEncoder(astiav.CodecIDAac)
	if codec == nil {
		return nil, errors.New("mp4sink: AAC encoder not available in linked libavcodec")
	}
	codecCtx := astiav.AllocCodecContext(codec)
	if codecCtx == nil {
		return nil, errors.New("mp4sink: AllocCodecContext for AAC failed")
	}

	layout := channelLayoutFor(channels)
	codecCtx.SetChannelLayout(layout)
	codecCtx.SetSampleRate(sampleRate)
	if formats := codec.SampleFormats(); len(formats) > 0 {
		codecCtx.SetSampleFormat(formats[0])
	} else {
		codecCtx.SetSampleFormat(astiav.SampleFormatFltp)
	}
	codecCtx.SetTimeBase(astiav.NewRational(1, sampleRate))
	codecCtx.SetBitRate(128_000)
	codecCtx.SetStrictStdCompliance(astiav.StrictStdComplianceExperimental)

	if err := codecCtx.Open(codec, nil); err != nil {
		codecCtx.Free()
		return nil, fmt.Errorf("mp4sink: open AAC encoder: %w", err)
	}

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		codecCtx.Free()
		return nil, errors.New("mp4sink: AllocSoftwareResampleContext failed")
	}

	srcFrame := astiav.AllocFrame()
	srcFrame.SetSampleFormat(astiav.SampleFormatS16)
	srcFrame.SetChannelLayout(layout)
	srcFrame.SetSampleRate(sampleRate)

	return &audioEncoder{
		sampleRate:          sampleRate,
		channels:            channels,
		layout:              layout,
		codecCtx:            codecCtx,
		swr:                 swr,
		srcFrame:            srcFrame,
		dstFrame:            astiav.AllocFrame(),
		pkt:                 astiav.AllocPacket(),
		audioSpecificConfig: buildAudioSpecificConfig(sampleRate, channels),
	}, nil
}

// Encode accepts one block of interleaved PCM16 samples and returns zero
// or more raw AAC access units, buffering any remainder shorter than the
// encoder's frame size (typically 1024 samples/channel) for the next
// call: resample S16 to the encoder's native sample format via swr, then
// drive it through the standard send-frame/receive-packet sequence.
func (e *audioEncoder) Encode(pcm []int16) ([][]byte, error) {
	e.pending = append(e.pending, pcm...)

	frameSamples := e.codecCtx.FrameSize()
	if frameSamples <= 0 {
		frameSamples = 1024
	}
	stride := frameSamples * e.channels

	var out [][]byte
	for len(e.pending) >= stride {
		chunk := e.pending[:stride]
		e.pending = e.pending[stride:]

		e.srcFrame.SetNbSamples(frameSamples)
		if err := e.srcFrame.AllocBuffer(0); err != nil {
			return out, fmt.Errorf("mp4sink: alloc audio source frame: %w", err)
		}
		raw, err := e.srcFrame.Data().Bytes(0)
		if err != nil {
			return out, fmt.Errorf("mp4sink: audio source frame data: %w", err)
		}
		for i, s := range chunk {
			raw[i*2] = byte(s)
			raw[i*2+1] = byte(s >> 8)
		}

		e.dstFrame.SetSampleFormat(e.codecCtx.SampleFormat())
		e.dstFrame.SetChannelLayout(e.codecCtx.ChannelLayout())
		e.dstFrame.SetSampleRate(e.codecCtx.SampleRate())
		e.dstFrame.SetNbSamples(frameSamples)
		if err := e.dstFrame.AllocBuffer(0); err != nil {
			return out, fmt.Errorf("mp4sink: alloc audio encoder frame: %w", err)
		}
		if err := e.swr.ConvertFrame(e.srcFrame, e.dstFrame); err != nil {
			return out, fmt.Errorf("mp4sink: resample audio frame: %w", err)
		}

		if err := e.codecCtx.SendFrame(e.dstFrame); err != nil && !errors.Is(err, astiav.ErrEagain) {
			return out, fmt.Errorf("mp4sink: AAC SendFrame: %w", err)
		}
		units, err := e.drain()
		out = append(out, units...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (e *audioEncoder) drain() ([][]byte, error) {
	var out [][]byte
	for {
		if err := e.codecCtx.ReceivePacket(e.pkt); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				break
			}
			return out, fmt.Errorf("mp4sink: AAC ReceivePacket: %w", err)
		}
		out = append(out, append([]byte(nil), e.pkt.Data()...))
		e.pkt.Unref()
	}
	return out, nil
}

// Close releases every libav resource the encoder opened.
func (e *audioEncoder) Close() {
	if e.pkt != nil {
		e.pkt.Free()
	}
	if e.dstFrame != nil {
		e.dstFrame.Free()
	}
	if e.srcFrame != nil {
		e.srcFrame.Free()
	}
	if e.swr != nil {
		e.swr.Free()
	}
	if e.codecCtx != nil {
		e.codecCtx.Free()
	}
}

// aacSampleRates is the ISO/IEC 14496-3 Table 1.16 sampling frequency
// index table, in index order.
var aacSampleRates = [...]int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

// buildAudioSpecificConfig encodes the ISO/IEC 14496-3 AudioSpecificConfig
// esds' decoder-specific-info carries: audioObjectType 2 (AAC-LC),
// samplingFrequencyIndex from the table above, and channelConfiguration,
// with frameLengthFlag/dependsOnCoreCoder/extensionFlag all zero
// (1024-sample frames, no dependent core, no SBR/PS extension).
func buildAudioSpecificConfig(sampleRate, channels int) []byte {
	const audioObjectTypeAACLC = 2
	idx := 4 // default: 44100 Hz
	for i, r := range aacSampleRates {
		if r == sampleRate {
			idx = i
			break
		}
	}
	b0 := byte(audioObjectTypeAACLC<<3) | byte(idx>>1)
	b1 := byte(idx&0x1)<<7 | byte(channels&0xf)<<3
	return []byte{b0, b1}
}
