package mp4sink

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// box is an in-memory ISO base media file format box: a 4-byte size, a
// 4-byte type, and a payload that may itself contain nested boxes. Sizes
// are fixed up on Bytes(), so callers build the tree top-down without
// knowing child sizes in advance.
type box struct {
	kind     string
	payload  []byte
	children []*box
}

func newBox(kind string) *box { return &box{kind: kind} }

func (b *box) writeUint32(v uint32) *box {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.payload = append(b.payload, buf[:]...)
	return b
}

func (b *box) writeUint64(v uint64) *box {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.payload = append(b.payload, buf[:]...)
	return b
}

func (b *box) writeUint16(v uint16) *box {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.payload = append(b.payload, buf[:]...)
	return b
}

func (b *box) writeBytes(p []byte) *box {
	b.payload = append(b.payload, p...)
	return b
}

func (b *box) writeFourCC(cc string) *box {
	if len(cc) != 4 {
		panic(fmt.Sprintf("mp4sink: fourcc %q must be 4 bytes", cc))
	}
	return b.writeBytes([]byte(cc))
}

func (b *box) addChild(c *box) *box {
	b.children = append(b.children, c)
	return b
}

// Bytes serializes the box (and its children) depth-first.
func (b *box) Bytes() []byte {
	var body bytes.Buffer
	body.Write(b.payload)
	for _, c := range b.children {
		body.Write(c.Bytes())
	}

	size := uint32(8 + body.Len())
	var out bytes.Buffer
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], size)
	out.Write(sizeBuf[:])
	out.WriteString(b.kind)
	out.Write(body.Bytes())
	return out.Bytes()
}
