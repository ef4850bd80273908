package cursorfx

import "testing"

func TestUpdatePositionFirstUpdateAlwaysApplies(t *testing.T) {
	var s State
	if !s.UpdatePosition(Position{X: 1, Y: 1, Visible: false, Output: 0}) {
		t.Fatal("first update must always apply")
	}
}

func TestUpdatePositionVisibleAlwaysWins(t *testing.T) {
	var s State
	s.UpdatePosition(Position{Output: 0, Visible: true, UpdateTime: 1})
	applied := s.UpdatePosition(Position{Output: 1, Visible: true, UpdateTime: 2})
	if !applied {
		t.Fatal("a visible update must always apply")
	}
	if s.Position().Output != 1 {
		t.Fatalf("want owner 1, got %d", s.Position().Output)
	}
}

func TestUpdatePositionCurrentOwnerAlwaysWins(t *testing.T) {
	var s State
	s.UpdatePosition(Position{Output: 0, Visible: true, UpdateTime: 1})
	applied := s.UpdatePosition(Position{Output: 0, Visible: false, UpdateTime: 0})
	if !applied {
		t.Fatal("an update from the current owner must apply even if invisible")
	}
}

func TestUpdatePositionOtherOutputInvisibleIsIgnored(t *testing.T) {
	var s State
	s.UpdatePosition(Position{Output: 0, Visible: true, UpdateTime: 5})
	applied := s.UpdatePosition(Position{Output: 1, Visible: false, UpdateTime: 6})
	if applied {
		t.Fatal("an invisible update from a non-owning output must be ignored")
	}
	if s.Position().Output != 0 {
		t.Fatalf("owner should remain 0, got %d", s.Position().Output)
	}
}

// Event sequence from spec §8 testable property 6: A:visible, B:visible,
// B:visible, A:invisible with monotonic timestamps.
func TestCursorOwnerTransitionsEventSequence(t *testing.T) {
	var s State
	s.UpdatePosition(Position{Output: 0, Visible: true, UpdateTime: 1})
	if s.Position().Output != 0 {
		t.Fatalf("after A:visible want owner 0, got %d", s.Position().Output)
	}

	s.UpdatePosition(Position{Output: 1, Visible: true, UpdateTime: 2})
	if s.Position().Output != 1 {
		t.Fatalf("after B:visible want owner 1, got %d", s.Position().Output)
	}

	s.UpdatePosition(Position{Output: 1, Visible: true, UpdateTime: 3})
	if s.Position().Output != 1 {
		t.Fatalf("after second B:visible want owner 1, got %d", s.Position().Output)
	}

	s.UpdatePosition(Position{Output: 0, Visible: false, UpdateTime: 4})
	if s.Position().Output != 1 {
		t.Fatalf("A:invisible from non-owner must be ignored, want owner 1, got %d", s.Position().Output)
	}
}

func TestDecodeMonochromeTruthTable(t *testing.T) {
	// 8x2 packed mask: AND row then XOR row, 1 byte wide (8 px), pitch=1.
	// andBits: 0,0,1,1 xorBits: 0,1,0,1 across 4 pixels, padded to 8 bits.
	and := byte(0b00110000)
	xor := byte(0b01010000)
	buf := []byte{and, xor}

	bg := func(x, y int) [4]byte { return [4]byte{10, 20, 30, 255} }

	shape := DecodeMonochrome(buf, 8, 2, 1, 0, 0, bg)
	if shape.Width != 8 || shape.Height != 1 {
		t.Fatalf("unexpected shape size %dx%d", shape.Width, shape.Height)
	}

	px := func(x int) (b, g, r, a byte) {
		i := x * 4
		return shape.BGRA[i], shape.BGRA[i+1], shape.BGRA[i+2], shape.BGRA[i+3]
	}

	if b, g, r, a := px(0); b != 0 || g != 0 || r != 0 || a != 255 {
		t.Fatalf("and=0,xor=0 want opaque black, got %d %d %d %d", b, g, r, a)
	}
	if b, g, r, a := px(1); b != 255 || g != 255 || r != 255 || a != 255 {
		t.Fatalf("and=0,xor=1 want opaque white, got %d %d %d %d", b, g, r, a)
	}
	if b, g, r, a := px(2); b != 10 || g != 20 || r != 30 || a != 255 {
		t.Fatalf("and=1,xor=0 want background passthrough, got %d %d %d %d", b, g, r, a)
	}
	if b, g, r, a := px(3); b != 245 || g != 235 || r != 225 || a != 255 {
		t.Fatalf("and=1,xor=1 want inverted background, got %d %d %d %d", b, g, r, a)
	}
}

func TestDecodeMaskedColorAlphaZeroReplaces(t *testing.T) {
	buf := []byte{1, 2, 3, 0} // BGRA, alpha=0
	bg := func(x, y int) [4]byte { return [4]byte{99, 99, 99, 255} }
	shape := DecodeMaskedColor(buf, 1, 1, 4, 0, 0, bg)
	if shape.BGRA[0] != 1 || shape.BGRA[1] != 2 || shape.BGRA[2] != 3 || shape.BGRA[3] != 255 {
		t.Fatalf("alpha=0 should replace background with RGB, got %v", shape.BGRA)
	}
}

func TestDecodeMaskedColorAlphaFFXors(t *testing.T) {
	buf := []byte{0xFF, 0x00, 0x0F, 0xFF}
	bg := func(x, y int) [4]byte { return [4]byte{0x0F, 0xFF, 0xF0, 255} }
	shape := DecodeMaskedColor(buf, 1, 1, 4, 0, 0, bg)
	if shape.BGRA[0] != 0xF0 || shape.BGRA[1] != 0xFF || shape.BGRA[2] != 0xFF {
		t.Fatalf("alpha=0xFF should XOR RGB with background, got %v", shape.BGRA[:3])
	}
}

func TestClipNegativeOrigin(t *testing.T) {
	c := Clip(-5, -3, 20, 20, 100, 100)
	if c.MaskX != 5 || c.MaskY != 3 {
		t.Fatalf("want maskX=5 maskY=3, got %d %d", c.MaskX, c.MaskY)
	}
	if c.X != 0 || c.Y != 0 {
		t.Fatalf("want clipped origin at 0,0, got %d,%d", c.X, c.Y)
	}
	if c.Width != 15 || c.Height != 17 {
		t.Fatalf("want width=15 height=17, got %d,%d", c.Width, c.Height)
	}
}

func TestClipPastFarEdge(t *testing.T) {
	c := Clip(90, 90, 20, 20, 100, 100)
	if c.Width != 10 || c.Height != 10 {
		t.Fatalf("want clipped to 10x10, got %dx%d", c.Width, c.Height)
	}
}

func TestClipFullyOffscreenIsEmpty(t *testing.T) {
	c := Clip(-50, 0, 20, 20, 100, 100)
	if !c.Empty {
		t.Fatal("fully offscreen rect should be reported empty")
	}
}
