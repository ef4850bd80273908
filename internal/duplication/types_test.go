package duplication

import "testing"

func TestRectUnionGrowsToCoverBoth(t *testing.T) {
	a := Rect{Left: 0, Top: 0, Right: 100, Bottom: 50}
	b := Rect{Left: 80, Top: -10, Right: 200, Bottom: 60}
	u := a.Union(b)
	if u.Left != 0 || u.Top != -10 || u.Right != 200 || u.Bottom != 60 {
		t.Fatalf("unexpected union: %+v", u)
	}
}

func TestRectUnionWithEmptyReturnsOther(t *testing.T) {
	empty := Rect{}
	b := Rect{Left: 10, Top: 10, Right: 20, Bottom: 20}
	if got := empty.Union(b); got != b {
		t.Fatalf("want %+v, got %+v", b, got)
	}
	if got := b.Union(empty); got != b {
		t.Fatalf("want %+v, got %+v", b, got)
	}
}

func TestMonitorSameIdentity(t *testing.T) {
	a := Monitor{AdapterName: "A", OutputName: `\\.\DISPLAY1`, OutputIndex: 0}
	b := a
	b.Rotation = Rotation90
	if !a.SameIdentity(b) {
		t.Fatal("identity should be rotation-independent")
	}
	c := a
	c.OutputIndex = 1
	if a.SameIdentity(c) {
		t.Fatal("different output index must not be the same identity")
	}
}

func TestMonitorAvailableForRecovery(t *testing.T) {
	m := Monitor{Rotation: RotationIdentity}
	if !m.AvailableForRecovery() {
		t.Fatal("identity rotation should be available for recovery")
	}
	m.Rotation = Rotation90
	if m.AvailableForRecovery() {
		t.Fatal("rotated monitor must not be available for recovery")
	}
}

func TestDecodeMetadataZeroCountsProduceNilSlices(t *testing.T) {
	moves, dirties := decodeMetadata(0, 0)
	if moves != nil || dirties != nil {
		t.Fatalf("want nil slices for zero counts, got moves=%v dirties=%v", moves, dirties)
	}
}

func TestDecodeMetadataAllocatesRequestedCounts(t *testing.T) {
	moves, dirties := decodeMetadata(2, 3)
	if len(moves) != 2 || len(dirties) != 3 {
		t.Fatalf("want 2 moves, 3 dirties; got %d, %d", len(moves), len(dirties))
	}
}
