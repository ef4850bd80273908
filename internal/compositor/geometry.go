// Package compositor implements Pipeline: the per-tick replay of move/dirty
// rects onto the shared surface and the cursor composite pass. This file
// holds the pure geometry — rotation transforms, NDC placement, and UV
// assignment — kept separate from the D3D11 draw-call glue so it is
// directly unit-testable without a GPU.
package compositor

import "github.com/jgcoded/duplicast/internal/duplication"

// Vertex matches the input layout ShaderCache builds: POSITION (R32G32B32)
// followed by TEXCOORD (R32G32).
type Vertex struct {
	X, Y, Z float32
	U, V    float32
}

// corner names index the four UV values spec §4.5's rotation table refers
// to: top-left, top-right, bottom-left, bottom-right of the source rect in
// desktop-texture UV space.
type corner int

const (
	cornerTL corner = iota
	cornerTR
	cornerBL
	cornerBR
)

var cornerUV = map[corner][2]float32{
	cornerTL: {0, 0},
	cornerTR: {1, 0},
	cornerBL: {0, 1},
	cornerBR: {1, 1},
}

// rotationUVOrder gives, for v0/v1/v2/v5 of the standard two-triangle quad
// (v0,v1,v2) + (v0,v2,v5), which source corner's UV to assign — the table
// from spec §4.5.
var rotationUVOrder = map[duplication.Rotation][4]corner{
	duplication.RotationUnspecified: {cornerBL, cornerTL, cornerBR, cornerTR},
	duplication.RotationIdentity:    {cornerBL, cornerTL, cornerBR, cornerTR},
	duplication.Rotation90:          {cornerBR, cornerBL, cornerTR, cornerTL},
	duplication.Rotation180:         {cornerTR, cornerBR, cornerTL, cornerBL},
	duplication.Rotation270:         {cornerTL, cornerTR, cornerBL, cornerBR},
}

// NativeToDesktopRect maps a rect expressed in a rotated output's native
// (pre-rotation) texture coordinates into desktop (post-rotation, logical)
// coordinates, matching the swapped-dimension convention DXGI reports via
// DXGI_OUTDUPL_DESC.Rotation.
func NativeToDesktopRect(r duplication.Rect, rotation duplication.Rotation, nativeW, nativeH int32) duplication.Rect {
	switch rotation {
	case duplication.Rotation90:
		return duplication.Rect{
			Left:   r.Top,
			Top:    nativeW - r.Right,
			Right:  r.Bottom,
			Bottom: nativeW - r.Left,
		}
	case duplication.Rotation180:
		return duplication.Rect{
			Left:   nativeW - r.Right,
			Top:    nativeH - r.Bottom,
			Right:  nativeW - r.Left,
			Bottom: nativeH - r.Top,
		}
	case duplication.Rotation270:
		return duplication.Rect{
			Left:   nativeH - r.Bottom,
			Top:    r.Left,
			Right:  nativeH - r.Top,
			Bottom: r.Right,
		}
	default:
		return r
	}
}

// NativeToDesktopPoint maps a point the same way NativeToDesktopRect maps a
// rect's corners, used for MoveRect source points.
func NativeToDesktopPoint(p duplication.Point, rotation duplication.Rotation, nativeW, nativeH int32) duplication.Point {
	switch rotation {
	case duplication.Rotation90:
		return duplication.Point{X: p.Y, Y: nativeW - p.X}
	case duplication.Rotation180:
		return duplication.Point{X: nativeW - p.X, Y: nativeH - p.Y}
	case duplication.Rotation270:
		return duplication.Point{X: nativeH - p.Y, Y: p.X}
	default:
		return p
	}
}

// DirtyRectVertices builds the two-triangle (6-vertex) quad for one dirty
// rect, in the shared surface's NDC space, per spec §4.5 step C.
//
// dirty is in the monitor's native texture coordinates; monitorBounds is
// that monitor's placement within the virtual desktop; virtualOrigin,
// virtualWidth and virtualHeight describe the shared surface itself.
func DirtyRectVertices(dirty duplication.Rect, monitorBounds duplication.Rect, virtualOrigin duplication.Point, virtualWidth, virtualHeight int32, rotation duplication.Rotation, nativeW, nativeH int32) [6]Vertex {
	desktopDirty := NativeToDesktopRect(dirty, rotation, nativeW, nativeH)

	left := float64(desktopDirty.Left+monitorBounds.Left) - float64(virtualOrigin.X)
	top := float64(desktopDirty.Top+monitorBounds.Top) - float64(virtualOrigin.Y)
	right := float64(desktopDirty.Right+monitorBounds.Left) - float64(virtualOrigin.X)
	bottom := float64(desktopDirty.Bottom+monitorBounds.Top) - float64(virtualOrigin.Y)

	centerX := float64(virtualWidth) / 2
	centerY := float64(virtualHeight) / 2

	ndcX := func(x float64) float32 { return float32((x - centerX) / centerX) }
	// Y is flipped: NDC +Y is up, desktop +Y is down.
	ndcY := func(y float64) float32 { return float32(-(y - centerY) / centerY) }

	posTL := Vertex{X: ndcX(left), Y: ndcY(top), Z: 0}
	posTR := Vertex{X: ndcX(right), Y: ndcY(top), Z: 0}
	posBL := Vertex{X: ndcX(left), Y: ndcY(bottom), Z: 0}
	posBR := Vertex{X: ndcX(right), Y: ndcY(bottom), Z: 0}

	order := rotationUVOrder[rotation]
	uv0 := cornerUV[order[0]]
	uv1 := cornerUV[order[1]]
	uv2 := cornerUV[order[2]]
	uv5 := cornerUV[order[3]]

	v0 := posBL
	v0.U, v0.V = uv0[0], uv0[1]
	v1 := posTL
	v1.U, v1.V = uv1[0], uv1[1]
	v2 := posBR
	v2.U, v2.V = uv2[0], uv2[1]
	v3 := v0
	v4 := v2
	v5 := posTR
	v5.U, v5.V = uv5[0], uv5[1]

	return [6]Vertex{v0, v1, v2, v3, v4, v5}
}

// SpriteVertices builds the two-triangle quad for a cursor sprite already
// decoded into screen-orientation BGRA (cursorfx.DecodeColor/Monochrome/
// MaskedColor never rotate), so unlike DirtyRectVertices no rotation or
// per-corner UV remap is needed: the sprite texture's natural corners map
// straight across.
func SpriteVertices(dest duplication.Rect, virtualWidth, virtualHeight int32) [6]Vertex {
	centerX := float64(virtualWidth) / 2
	centerY := float64(virtualHeight) / 2

	ndcX := func(x float64) float32 { return float32((x - centerX) / centerX) }
	ndcY := func(y float64) float32 { return float32(-(y - centerY) / centerY) }

	left, top := ndcX(float64(dest.Left)), ndcY(float64(dest.Top))
	right, bottom := ndcX(float64(dest.Right)), ndcY(float64(dest.Bottom))

	v0 := Vertex{X: left, Y: bottom, U: 0, V: 1}
	v1 := Vertex{X: left, Y: top, U: 0, V: 0}
	v2 := Vertex{X: right, Y: bottom, U: 1, V: 1}
	v3 := v0
	v4 := v2
	v5 := Vertex{X: right, Y: top, U: 1, V: 0}

	return [6]Vertex{v0, v1, v2, v3, v4, v5}
}
