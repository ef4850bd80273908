package mp4sink

// buildFtyp writes the file-type box declaring fragmented MP4, ISO base
// media compatibility.
func buildFtyp() []byte {
	b := newBox("ftyp")
	b.writeFourCC("isom")
	b.writeUint32(512)
	b.writeFourCC("isom")
	b.writeFourCC("iso2")
	b.writeFourCC("avc1")
	b.writeFourCC("mp41")
	return b.Bytes()
}

// buildMoov writes the movie box: mvhd plus one trak per enabled stream
// and an mvex declaring the default fragment behavior, per the fragmented
// MP4 layout (moov carries no sample data; every sample lives in a
// subsequent moof+mdat pair). sps/pps are the parameter sets extracted
// from the video encoder's first frame; the caller defers this call until
// they're known, since avc1's avcC box can't be built without them.
// audioSpecificConfig is nil unless audioEnabled.
func buildMoov(ctx EncodingContext, audioEnabled bool, sps, pps, audioSpecificConfig []byte) []byte {
	moov := newBox("moov")
	moov.addChild(buildMvhd())
	moov.addChild(buildVideoTrak(ctx, sps, pps))

	mvex := newBox("mvex")
	mvex.addChild(buildTrex(1))
	if audioEnabled {
		moov.addChild(buildAudioTrak(ctx, audioSpecificConfig))
		mvex.addChild(buildTrex(2))
	}
	moov.addChild(mvex)
	return moov.Bytes()
}

func buildMvhd() *box {
	b := newBox("mvhd")
	b.writeUint32(0) // version + flags
	b.writeUint32(0) // creation time
	b.writeUint32(0) // modification time
	b.writeUint32(10_000_000) // timescale: 100-ns units per spec §4.7
	b.writeUint32(0)          // duration, unknown for fragmented output
	b.writeUint32(0x00010000) // rate 1.0
	b.writeUint16(0x0100)     // volume 1.0
	b.writeUint16(0)          // reserved
	b.writeUint64(0)          // reserved
	for _, v := range [9]uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		b.writeUint32(v) // unity transformation matrix
	}
	for i := 0; i < 6; i++ {
		b.writeUint32(0) // predefined
	}
	b.writeUint32(3) // next track ID
	return b
}

func buildVideoTrak(ctx EncodingContext, sps, pps []byte) *box {
	trak := newBox("trak")
	trak.addChild(buildTkhd(1, uint32(ctx.Width), uint32(ctx.Height)))
	mdia := newBox("mdia")
	mdia.addChild(buildMdhd())
	mdia.addChild(buildHdlr("vide", "VideoHandler"))
	avc1 := buildAvc1(uint16(ctx.Width), uint16(ctx.Height), sps, pps)
	mdia.addChild(buildMinf(true, buildStbl(avc1)))
	trak.addChild(mdia)
	return trak
}

func buildAudioTrak(ctx EncodingContext, audioSpecificConfig []byte) *box {
	trak := newBox("trak")
	trak.addChild(buildTkhd(2, 0, 0))
	mdia := newBox("mdia")
	mdia.addChild(buildMdhd())
	mdia.addChild(buildHdlr("soun", "SoundHandler"))
	mp4a := buildMp4a(ctx.AudioChannels, ctx.AudioSampleRate, audioSpecificConfig)
	mdia.addChild(buildMinf(false, buildStbl(mp4a)))
	trak.addChild(mdia)
	return trak
}

func buildTkhd(trackID uint32, width, height uint32) *box {
	b := newBox("tkhd")
	b.writeUint32(0x00000007) // version 0, flags: enabled|in movie|in preview
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeUint32(trackID)
	b.writeUint32(0) // reserved
	b.writeUint32(0) // duration
	b.writeUint64(0) // reserved
	b.writeUint16(0) // layer
	b.writeUint16(0) // alternate group
	b.writeUint16(0) // volume
	b.writeUint16(0) // reserved
	for _, v := range [9]uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		b.writeUint32(v)
	}
	b.writeUint32(width << 16)
	b.writeUint32(height << 16)
	return b
}

func buildMdhd() *box {
	b := newBox("mdhd")
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeUint32(10_000_000) // timescale matches mvhd: 100-ns units
	b.writeUint32(0)
	b.writeUint16(0x55c4) // language: und
	b.writeUint16(0)
	return b
}

func buildHdlr(handlerType, name string) *box {
	b := newBox("hdlr")
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeFourCC(handlerType)
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeUint32(0)
	b.writeBytes(append([]byte(name), 0))
	return b
}

func buildMinf(video bool, stbl *box) *box {
	minf := newBox("minf")
	if video {
		vmhd := newBox("vmhd")
		vmhd.writeUint32(1)
		vmhd.writeUint16(0)
		vmhd.writeUint16(0)
		vmhd.writeUint16(0)
		vmhd.writeUint16(0)
		minf.addChild(vmhd)
	} else {
		smhd := newBox("smhd")
		smhd.writeUint32(0)
		smhd.writeUint16(0)
		smhd.writeUint16(0)
		minf.addChild(smhd)
	}
	minf.addChild(stbl)
	return minf
}

// buildStbl writes the sample table a fragmented track needs in moov: one
// real sample description entry (an avc1 or mp4a box, built by the
// caller) so a standalone parser can decode the track at all, plus empty
// stts/stsc/stsz/stco — sample timing and layout are described per
// fragment by moof/traf/trun instead, since every sample actually lives
// in a subsequent moof+mdat pair.
func buildStbl(sampleEntry *box) *box {
	stbl := newBox("stbl")

	stsd := newBox("stsd")
	stsd.writeUint32(0) // version + flags
	stsd.writeUint32(1) // entry count
	stsd.addChild(sampleEntry)
	stbl.addChild(stsd)

	for _, kind := range []string{"stts", "stsc", "stsz", "stco"} {
		b := newBox(kind)
		b.writeUint32(0)
		b.writeUint32(0)
		if kind == "stsz" {
			b.writeUint32(0) // uniform sample size: 0 means use the size table (empty)
		}
		stbl.addChild(b)
	}
	return stbl
}

// buildAvc1 writes the avc1 sample entry a video stsd needs: the visual
// sample entry header (width/height/depth) plus an avcC box carrying the
// AVCDecoderConfigurationRecord built from the encoder's own SPS/PPS, per
// ISO/IEC 14496-15.
func buildAvc1(width, height uint16, sps, pps []byte) *box {
	avc1 := newBox("avc1")
	avc1.writeBytes(make([]byte, 6)) // SampleEntry reserved
	avc1.writeUint16(1)              // data_reference_index

	avc1.writeUint16(0) // pre_defined
	avc1.writeUint16(0) // reserved
	for i := 0; i < 3; i++ {
		avc1.writeUint32(0) // pre_defined
	}
	avc1.writeUint16(width)
	avc1.writeUint16(height)
	avc1.writeUint32(0x00480000)      // horizresolution: 72 dpi
	avc1.writeUint32(0x00480000)      // vertresolution: 72 dpi
	avc1.writeUint32(0)               // reserved
	avc1.writeUint16(1)               // frame_count
	avc1.writeBytes(make([]byte, 32)) // compressorname, empty Pascal string
	avc1.writeUint16(0x0018)          // depth: 24-bit color, no alpha
	avc1.writeUint16(0xffff)          // pre_defined

	avc1.addChild(buildAvcC(sps, pps))
	return avc1
}

// buildAvcC writes the AVCDecoderConfigurationRecord. Profile/level come
// straight from the SPS's own profile_idc/constraint_flags/level_idc
// bytes, so they always match what the encoder actually produced.
// lengthSizeMinusOne is 3 (4-byte lengths), matching the AVCC framing
// annexBToAVCC converts every sample to before it reaches mdat.
func buildAvcC(sps, pps []byte) *box {
	b := newBox("avcC")
	profileIdc, profileCompat, levelIdc := byte(0), byte(0), byte(0)
	if len(sps) >= 4 {
		profileIdc, profileCompat, levelIdc = sps[1], sps[2], sps[3]
	}
	b.writeBytes([]byte{
		1,             // configurationVersion
		profileIdc,    // AVCProfileIndication
		profileCompat, // profile_compatibility
		levelIdc,      // AVCLevelIndication
		0xfc | 3,      // reserved(6) + lengthSizeMinusOne(2): 4-byte NAL lengths
	})

	b.writeBytes([]byte{0xe0 | 1}) // reserved(3) + numOfSequenceParameterSets(5)
	b.writeUint16(uint16(len(sps)))
	b.writeBytes(sps)

	b.writeBytes([]byte{1}) // numOfPictureParameterSets
	b.writeUint16(uint16(len(pps)))
	b.writeBytes(pps)
	return b
}

// buildMp4a writes the mp4a sample entry an audio stsd needs: the audio
// sample entry header (channel count/sample rate) plus an esds box
// carrying the AudioSpecificConfig the AAC encoder was opened with.
func buildMp4a(channels, sampleRate int, audioSpecificConfig []byte) *box {
	mp4a := newBox("mp4a")
	mp4a.writeBytes(make([]byte, 6)) // SampleEntry reserved
	mp4a.writeUint16(1)              // data_reference_index

	mp4a.writeUint32(0) // reserved
	mp4a.writeUint32(0) // reserved
	mp4a.writeUint16(uint16(channels))
	mp4a.writeUint16(16) // samplesize: 16-bit PCM is what the encoder was fed
	mp4a.writeUint16(0)  // pre_defined
	mp4a.writeUint16(0)  // reserved
	mp4a.writeUint32(uint32(sampleRate) << 16)

	mp4a.addChild(buildEsds(audioSpecificConfig))
	return mp4a
}

// MPEG-4 descriptor tags (ISO/IEC 14496-1 §8.3.3) esds needs.
const (
	descriptorTagESDescriptor    = 0x03
	descriptorTagDecConfig       = 0x04
	descriptorTagDecSpecificInfo = 0x05
	descriptorTagSLConfig        = 0x06
)

// buildEsds writes the MPEG-4 ES_Descriptor (ISO/IEC 14496-14 §5.6)
// wrapping the AAC AudioSpecificConfig: objectTypeIndication 0x40
// (MPEG-4 Audio), streamType audio, and the DecoderSpecificInfo a decoder
// needs to know the sample rate/channel count/object type without
// touching the bitstream.
func buildEsds(audioSpecificConfig []byte) *box {
	b := newBox("esds")
	b.writeUint32(0) // version + flags

	decoderSpecificInfo := appendDescriptor(nil, descriptorTagDecSpecificInfo, audioSpecificConfig)

	decoderConfig := make([]byte, 0, 13+len(decoderSpecificInfo))
	decoderConfig = append(decoderConfig, 0x40)       // objectTypeIndication: MPEG-4 Audio
	decoderConfig = append(decoderConfig, 0x15)       // streamType audio(5)<<2 | upStream(0)<<1 | reserved(1)
	decoderConfig = append(decoderConfig, 0, 0, 0)    // bufferSizeDB
	decoderConfig = append(decoderConfig, 0, 0, 0, 0) // maxBitrate
	decoderConfig = append(decoderConfig, 0, 0, 0, 0) // avgBitrate
	decoderConfig = append(decoderConfig, decoderSpecificInfo...)
	decoderConfigDescriptor := appendDescriptor(nil, descriptorTagDecConfig, decoderConfig)

	slConfigDescriptor := appendDescriptor(nil, descriptorTagSLConfig, []byte{0x02})

	esDescriptorPayload := make([]byte, 0, 3+len(decoderConfigDescriptor)+len(slConfigDescriptor))
	esDescriptorPayload = append(esDescriptorPayload, 0, 0, 0) // ES_ID(2) + flags(1)
	esDescriptorPayload = append(esDescriptorPayload, decoderConfigDescriptor...)
	esDescriptorPayload = append(esDescriptorPayload, slConfigDescriptor...)

	b.writeBytes(appendDescriptor(nil, descriptorTagESDescriptor, esDescriptorPayload))
	return b
}

// appendDescriptor writes a tag/length/payload descriptor using the
// single-byte length form — no descriptor this package emits exceeds 127
// bytes, so the multi-byte continuation form ISO/IEC 14496-1 allows is
// never needed.
func appendDescriptor(dst []byte, tag byte, payload []byte) []byte {
	dst = append(dst, tag, byte(len(payload)))
	dst = append(dst, payload...)
	return dst
}

func buildTrex(trackID uint32) *box {
	b := newBox("trex")
	b.writeUint32(0)
	b.writeUint32(trackID)
	b.writeUint32(1) // default sample description index
	b.writeUint32(0) // default sample duration
	b.writeUint32(0) // default sample size
	b.writeUint32(0) // default sample flags
	return b
}

// buildFragment writes one moof+mdat pair carrying a single sample, per
// spec §4.7's per-sample write_sample contract. A nil data slice (used by
// SignalGap) still advances the fragment sequence but writes an empty
// mdat, keeping the timeline continuous without adding sample data.
func buildFragment(seq, trackID uint32, data []byte, baseDecodeTime uint64, duration uint32) []byte {
	moof := newBox("moof")
	mfhd := newBox("mfhd")
	mfhd.writeUint32(0)
	mfhd.writeUint32(seq)
	moof.addChild(mfhd)

	traf := newBox("traf")
	tfhd := newBox("tfhd")
	tfhd.writeUint32(0x00020000) // default-base-is-moof
	tfhd.writeUint32(trackID)
	traf.addChild(tfhd)

	tfdt := newBox("tfdt")
	tfdt.writeUint32(1) // version 1: 64-bit base media decode time
	tfdt.writeUint64(baseDecodeTime)
	traf.addChild(tfdt)

	trun := newBox("trun")
	sampleCount := uint32(0)
	if len(data) > 0 {
		sampleCount = 1
	}
	trun.writeUint32(0x00000301) // flags: data-offset, sample-duration, sample-size present
	trun.writeUint32(sampleCount)
	trun.writeUint32(0) // data offset, patched below
	if sampleCount == 1 {
		trun.writeUint32(duration)
		trun.writeUint32(uint32(len(data)))
	}
	traf.addChild(trun)
	moof.addChild(traf)

	moofBytes := moof.Bytes()

	mdat := newBox("mdat")
	mdat.writeBytes(data)
	mdatBytes := mdat.Bytes()

	// data offset in trun is relative to the start of moof; mdat's payload
	// starts 8 bytes into mdatBytes, immediately after moofBytes.
	dataOffset := uint32(len(moofBytes) + 8)
	patchTrunDataOffset(moofBytes, dataOffset)

	out := make([]byte, 0, len(moofBytes)+len(mdatBytes))
	out = append(out, moofBytes...)
	out = append(out, mdatBytes...)
	return out
}

// patchTrunDataOffset overwrites the data-offset field inside an already
// serialized moof's trun box in place. The offset sits at a fixed location
// given this package's fixed box-writing order: moof header(8) + mfhd(16)
// + traf header(8) + tfhd(16) + tfdt(20) + trun header(8) + flags(4) +
// sampleCount(4).
func patchTrunDataOffset(moof []byte, offset uint32) {
	const trunFixedHeaderStart = 8 + 16 + 8 + 16 + 20 + 8 + 4 + 4
	if len(moof) < trunFixedHeaderStart+4 {
		return
	}
	moof[trunFixedHeaderStart+0] = byte(offset >> 24)
	moof[trunFixedHeaderStart+1] = byte(offset >> 16)
	moof[trunFixedHeaderStart+2] = byte(offset >> 8)
	moof[trunFixedHeaderStart+3] = byte(offset)
}
