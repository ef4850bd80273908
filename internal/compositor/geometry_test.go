package compositor

import (
	"testing"

	"github.com/jgcoded/duplicast/internal/duplication"
)

func TestNativeToDesktopRectIdentityIsNoOp(t *testing.T) {
	r := duplication.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}
	got := NativeToDesktopRect(r, duplication.RotationIdentity, 1920, 1080)
	if got != r {
		t.Fatalf("want unchanged rect, got %+v", got)
	}
}

func TestNativeToDesktopRect90And270AreInverses(t *testing.T) {
	r := duplication.Rect{Left: 10, Top: 20, Right: 50, Bottom: 60}
	nativeW, nativeH := int32(1080), int32(1920) // native (pre-rotation) dims for a 90-rotated 1920x1080 desktop

	rotated := NativeToDesktopRect(r, duplication.Rotation90, nativeW, nativeH)
	// Rotating back by 270 with the desktop (swapped) dimensions must
	// recover the original rect.
	back := NativeToDesktopRect(rotated, duplication.Rotation270, nativeH, nativeW)
	if back != r {
		t.Fatalf("90 then 270 should invert: want %+v, got %+v", r, back)
	}
}

func TestNativeToDesktopRect180IsSelfInverse(t *testing.T) {
	r := duplication.Rect{Left: 0, Top: 0, Right: 40, Bottom: 40}
	w, h := int32(1920), int32(1080)
	rotated := NativeToDesktopRect(r, duplication.Rotation180, w, h)
	back := NativeToDesktopRect(rotated, duplication.Rotation180, w, h)
	if back != r {
		t.Fatalf("180 applied twice should be identity: want %+v, got %+v", r, back)
	}
}

func TestDirtyRectVerticesUVsAreExactAtZeroAndOne(t *testing.T) {
	dirty := duplication.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
	bounds := duplication.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}

	for _, rot := range []duplication.Rotation{
		duplication.RotationIdentity, duplication.Rotation90, duplication.Rotation180, duplication.Rotation270,
	} {
		verts := DirtyRectVertices(dirty, bounds, duplication.Point{}, 1920, 1080, rot, 1920, 1080)
		for i, v := range verts {
			if !isEdgeUV(v.U) || !isEdgeUV(v.V) {
				t.Fatalf("rotation %v vertex %d: want UV components exactly 0 or 1, got (%v, %v)", rot, i, v.U, v.V)
			}
		}
	}
}

func isEdgeUV(f float32) bool { return f == 0 || f == 1 }

func TestDirtyRectVerticesIdentityUVOrder(t *testing.T) {
	dirty := duplication.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	bounds := duplication.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	verts := DirtyRectVertices(dirty, bounds, duplication.Point{}, 100, 100, duplication.RotationIdentity, 100, 100)

	// Per the identity row of spec's table: v0=BL, v1=TL, v2=BR, v5=TR.
	if verts[0].U != 0 || verts[0].V != 1 {
		t.Fatalf("v0 want BL (0,1), got (%v,%v)", verts[0].U, verts[0].V)
	}
	if verts[1].U != 0 || verts[1].V != 0 {
		t.Fatalf("v1 want TL (0,0), got (%v,%v)", verts[1].U, verts[1].V)
	}
	if verts[2].U != 1 || verts[2].V != 1 {
		t.Fatalf("v2 want BR (1,1), got (%v,%v)", verts[2].U, verts[2].V)
	}
	if verts[5].U != 1 || verts[5].V != 0 {
		t.Fatalf("v5 want TR (1,0), got (%v,%v)", verts[5].U, verts[5].V)
	}
}

func TestSpriteVerticesUVsAreUnrotated(t *testing.T) {
	dest := duplication.Rect{Left: 100, Top: 100, Right: 132, Bottom: 148}
	verts := SpriteVertices(dest, 1920, 1080)

	// Sprites are already decoded into screen orientation, so the UVs
	// always follow the same BL/TL/BR/.../TR layout regardless of monitor
	// rotation: no rotationUVOrder lookup.
	if verts[0].U != 0 || verts[0].V != 1 {
		t.Fatalf("v0 want BL (0,1), got (%v,%v)", verts[0].U, verts[0].V)
	}
	if verts[1].U != 0 || verts[1].V != 0 {
		t.Fatalf("v1 want TL (0,0), got (%v,%v)", verts[1].U, verts[1].V)
	}
	if verts[2].U != 1 || verts[2].V != 1 {
		t.Fatalf("v2 want BR (1,1), got (%v,%v)", verts[2].U, verts[2].V)
	}
	if verts[5].U != 1 || verts[5].V != 0 {
		t.Fatalf("v5 want TR (1,0), got (%v,%v)", verts[5].U, verts[5].V)
	}
}

func TestSpriteVerticesPlacesQuadAtDestRect(t *testing.T) {
	// A sprite covering the full virtual surface should land exactly on
	// the NDC corners, same as DirtyRectVertices would for an identical
	// full-surface rect.
	dest := duplication.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
	verts := SpriteVertices(dest, 1920, 1080)

	for i, v := range verts {
		if !isEdgeUV(v.U) || !isEdgeUV(v.V) {
			t.Fatalf("vertex %d: want UV components exactly 0 or 1, got (%v, %v)", i, v.U, v.V)
		}
		if v.X < -1 || v.X > 1 || v.Y < -1 || v.Y > 1 {
			t.Fatalf("vertex %d: want NDC coordinates in [-1,1], got (%v, %v)", i, v.X, v.Y)
		}
	}
	// Top-left corner (v1) should map to NDC (-1, 1).
	if verts[1].X != -1 || verts[1].Y != 1 {
		t.Fatalf("v1 want NDC (-1,1), got (%v,%v)", verts[1].X, verts[1].Y)
	}
	// Bottom-right corner (v2) should map to NDC (1, -1).
	if verts[2].X != 1 || verts[2].Y != -1 {
		t.Fatalf("v2 want NDC (1,-1), got (%v,%v)", verts[2].X, verts[2].Y)
	}
}

func TestMoveRectReplayThenInverseIsIdentity(t *testing.T) {
	bounds := duplication.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
	origin := duplication.Point{}

	forward := duplication.MoveRect{
		SourcePoint: duplication.Point{X: 0, Y: 0},
		DestRect:    duplication.Rect{Left: 100, Top: 100, Right: 200, Bottom: 180},
	}
	fwdRegions := MoveRectToSharedSurface(forward, bounds, origin, duplication.RotationIdentity, 1920, 1080)

	inverse := duplication.MoveRect{
		SourcePoint: duplication.Point{X: 100, Y: 100},
		DestRect:    duplication.Rect{Left: 0, Top: 0, Right: 100, Bottom: 80},
	}
	invRegions := MoveRectToSharedSurface(inverse, bounds, origin, duplication.RotationIdentity, 1920, 1080)

	if fwdRegions.DestRect != invRegions.SourceRect {
		t.Fatalf("inverse move's source should equal forward move's dest: %+v vs %+v", invRegions.SourceRect, fwdRegions.DestRect)
	}
	if fwdRegions.SourceRect != invRegions.DestRect {
		t.Fatalf("inverse move's dest should equal forward move's source: %+v vs %+v", invRegions.DestRect, fwdRegions.SourceRect)
	}
}
