package mp4sink

import (
	"encoding/binary"
	"fmt"

	openh264 "github.com/y9o/go-openh264"
)

// videoEncoder is the narrow interface this package needs from an H.264
// backend, so tests can substitute a fake without linking openh264.
type videoEncoder interface {
	EncodeI420(frame []byte) ([]byte, error)
	Close()
}

// openh264Backend wraps the Cisco OpenH264 binding for the single
// constant-bitrate baseline/main-profile encoder configuration this
// package needs: one I420 frame in, one (possibly empty, on B-frame
// reordering) Annex-B access unit out.
type openh264Backend struct {
	enc *openh264.Encoder
}

// newOpenH264Backend configures the encoder for ctx's resolution/bitrate,
// per the EncodingContext the RecorderThread supplies.
func newOpenH264Backend(ctx EncodingContext) (*openh264Backend, error) {
	cfg := openh264.EncoderConfig{
		Width:      ctx.Width,
		Height:     ctx.Height,
		BitrateBps: ctx.BitRate,
		FrameRate:  float32(ctx.FrameRate),
	}
	enc, err := openh264.NewEncoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("openh264.NewEncoder: %w", err)
	}
	return &openh264Backend{enc: enc}, nil
}

func (b *openh264Backend) EncodeI420(frame []byte) ([]byte, error) {
	nal, err := b.enc.Encode(frame)
	if err != nil {
		return nil, fmt.Errorf("openh264 Encode: %w", err)
	}
	return nal, nil
}

func (b *openh264Backend) Close() {
	if b.enc != nil {
		b.enc.Close()
	}
}

// annexBToAVCC rewrites an Annex-B byte stream (NAL units separated by
// 00 00 01 or 00 00 00 01 start codes, as go-openh264 emits) into AVCC
// length-prefixed framing: a 4-byte big-endian length followed by the raw
// NAL unit, with no start code. SPS (type 7) and PPS (type 8) units are
// stripped out of the sample data entirely — per ISO/IEC 14496-15 they
// belong in avcC, not repeated in every access unit — and returned
// separately so the caller can build avcC once, from whichever frame
// first carries them (OpenH264 prepends them to the first IDR frame by
// default).
func annexBToAVCC(annexB []byte) (avcc, sps, pps []byte) {
	avcc = make([]byte, 0, len(annexB))
	for _, nal := range splitAnnexB(annexB) {
		if len(nal) == 0 {
			continue
		}
		switch nal[0] & 0x1f {
		case 7:
			if sps == nil {
				sps = append([]byte(nil), nal...)
			}
			continue
		case 8:
			if pps == nil {
				pps = append([]byte(nil), nal...)
			}
			continue
		}
		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(nal)))
		avcc = append(avcc, length[:]...)
		avcc = append(avcc, nal...)
	}
	return avcc, sps, pps
}

// splitAnnexB splits a byte stream on 3- or 4-byte Annex-B start codes,
// returning each NAL unit's payload with the start code stripped.
func splitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	start := -1
	for i := 0; i < len(data); {
		switch {
		case i+3 <= len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 1:
			if start >= 0 {
				nals = append(nals, data[start:i])
			}
			start = i + 3
			i += 3
		case i+4 <= len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 0 && data[i+3] == 1:
			if start >= 0 {
				nals = append(nals, data[start:i])
			}
			start = i + 4
			i += 4
		default:
			i++
		}
	}
	if start >= 0 && start < len(data) {
		nals = append(nals, data[start:])
	}
	return nals
}
