package cursorfx

// Shape is a fully decoded cursor sprite, ready to upload into a
// shader-resource texture: tightly packed top-down BGRA rows.
type Shape struct {
	Width, Height int
	HotSpotX      int
	HotSpotY      int
	BGRA          []byte // width*height*4 bytes
}

// BackgroundReader returns the BGRA pixel currently underneath the cursor
// at local coordinates (x, y) within the sprite's bounding rect, used by
// the monochrome decoder's AND/XOR composite.
type BackgroundReader func(x, y int) [4]byte

// DecodeColor copies a DXGI_OUTDUPL_POINTER_SHAPE_TYPE_COLOR buffer
// (BGRA, width*height*4 bytes, rows of pitch bytes) as-is, per spec §4.4.
func DecodeColor(buf []byte, width, height int, pitch uint32, hotspotX, hotspotY int) Shape {
	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		srcRow := buf[int(pitch)*y : int(pitch)*y+width*4]
		copy(out[y*width*4:(y+1)*width*4], srcRow)
	}
	return Shape{Width: width, Height: height, HotSpotX: hotspotX, HotSpotY: hotspotY, BGRA: out}
}

// DecodeMonochrome decodes a DXGI_OUTDUPL_POINTER_SHAPE_TYPE_MONOCHROME
// buffer: the first half of the rows (by the packed height, shapeHeight/2)
// is the AND mask, the second half the XOR mask, each 1 bit per pixel,
// MSB-first, rows of pitch bytes. bg supplies the composited-beneath pixel
// for each sprite coordinate.
//
// Truth table per spec §4.4 / Open Question #3 (the correct table, not the
// simplified one some DXGI sample code implements):
//
//	and=0 xor=0 -> opaque black
//	and=0 xor=1 -> opaque white
//	and=1 xor=0 -> transparent: background shows through unmodified
//	and=1 xor=1 -> invert: background RGB inverted, alpha opaque
func DecodeMonochrome(buf []byte, width int, shapeHeight int, pitch uint32, hotspotX, hotspotY int, bg BackgroundReader) Shape {
	height := shapeHeight / 2
	andOffset := 0
	xorOffset := int(pitch) * height

	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			andBit := readBit(buf, andOffset, int(pitch), x, y)
			xorBit := readBit(buf, xorOffset, int(pitch), x, y)

			var b, g, r, a byte
			switch {
			case !andBit && !xorBit:
				b, g, r, a = 0, 0, 0, 255
			case !andBit && xorBit:
				b, g, r, a = 255, 255, 255, 255
			case andBit && !xorBit:
				px := bg(x, y)
				b, g, r, a = px[0], px[1], px[2], px[3]
			default: // andBit && xorBit
				px := bg(x, y)
				b, g, r, a = 255-px[0], 255-px[1], 255-px[2], 255
			}

			i := (y*width + x) * 4
			out[i+0], out[i+1], out[i+2], out[i+3] = b, g, r, a
		}
	}
	return Shape{Width: width, Height: height, HotSpotX: hotspotX, HotSpotY: hotspotY, BGRA: out}
}

// DecodeMaskedColor decodes a DXGI_OUTDUPL_POINTER_SHAPE_TYPE_MASKED_COLOR
// buffer: 32-bit ARGB rows of pitch bytes. alpha=0 replaces the background
// with RGB; alpha=0xFF XORs RGB with the background; any other alpha value
// is treated as alpha=0xFF, per spec §4.4.
func DecodeMaskedColor(buf []byte, width, height int, pitch uint32, hotspotX, hotspotY int, bg BackgroundReader) Shape {
	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		row := buf[int(pitch)*y:]
		for x := 0; x < width; x++ {
			i := x * 4
			b, g, r, a := row[i+0], row[i+1], row[i+2], row[i+3]

			var ob, og, or byte
			switch a {
			case 0:
				ob, og, or = b, g, r
			default:
				px := bg(x, y)
				ob, og, or = px[0]^b, px[1]^g, px[2]^r
			}

			o := (y*width + x) * 4
			out[o+0], out[o+1], out[o+2], out[o+3] = ob, og, or, 255
		}
	}
	return Shape{Width: width, Height: height, HotSpotX: hotspotX, HotSpotY: hotspotY, BGRA: out}
}

func readBit(buf []byte, rowOffset, pitch, x, y int) bool {
	byteIdx := rowOffset + y*pitch + x/8
	bit := 7 - uint(x%8)
	return buf[byteIdx]&(1<<bit) != 0
}
