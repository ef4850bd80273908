package mp4sink

import (
	"bytes"
	"testing"
)

// annexBToAVCC/splitAnnexB are pure byte-stream logic; the encoder itself
// needs OpenH264 linked and is exercised through the recorder's
// integration path instead.

func annexB(nals ...[]byte) []byte {
	var out []byte
	for _, n := range nals {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}

func TestAnnexBToAVCCExtractsSPSAndPPS(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1e, 0xab}
	pps := []byte{0x68, 0xce, 0x38, 0x80}
	idr := []byte{0x65, 0x88, 0x84, 0x00}

	avcc, gotSPS, gotPPS := annexBToAVCC(annexB(sps, pps, idr))

	if !bytes.Equal(gotSPS, sps) {
		t.Fatalf("expected SPS %x, got %x", sps, gotSPS)
	}
	if !bytes.Equal(gotPPS, pps) {
		t.Fatalf("expected PPS %x, got %x", pps, gotPPS)
	}

	wantLen := 4 + len(idr)
	if len(avcc) != wantLen {
		t.Fatalf("expected AVCC sample of %d bytes, got %d", wantLen, len(avcc))
	}
	gotLength := uint32(avcc[0])<<24 | uint32(avcc[1])<<16 | uint32(avcc[2])<<8 | uint32(avcc[3])
	if gotLength != uint32(len(idr)) {
		t.Fatalf("expected length prefix %d, got %d", len(idr), gotLength)
	}
	if !bytes.Equal(avcc[4:], idr) {
		t.Fatalf("expected NAL payload %x, got %x", idr, avcc[4:])
	}
}

func TestAnnexBToAVCCWithoutParameterSetsReturnsNilSPSPPS(t *testing.T) {
	idr := []byte{0x65, 0x01, 0x02}
	avcc, sps, pps := annexBToAVCC(annexB(idr))
	if sps != nil || pps != nil {
		t.Fatalf("expected no parameter sets, got sps=%x pps=%x", sps, pps)
	}
	if len(avcc) != 4+len(idr) {
		t.Fatalf("expected single length-prefixed NAL, got %d bytes", len(avcc))
	}
}

func TestSplitAnnexBHandlesThreeAndFourByteStartCodes(t *testing.T) {
	data := append([]byte{0, 0, 1, 0x67, 0xaa}, []byte{0, 0, 0, 1, 0x68, 0xbb}...)
	nals := splitAnnexB(data)
	if len(nals) != 2 {
		t.Fatalf("expected 2 NAL units, got %d", len(nals))
	}
	if !bytes.Equal(nals[0], []byte{0x67, 0xaa}) {
		t.Fatalf("unexpected first NAL: %x", nals[0])
	}
	if !bytes.Equal(nals[1], []byte{0x68, 0xbb}) {
		t.Fatalf("unexpected second NAL: %x", nals[1])
	}
}
