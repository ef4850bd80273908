package mp4sink

import "testing"

func TestBGRAToI420_2x2(t *testing.T) {
	// (0,0)=red, (1,0)=green, (0,1)=blue, (1,1)=white, in BGRA byte order.
	bgra := []byte{
		0, 0, 255, 255, 0, 255, 0, 255,
		255, 0, 0, 255, 255, 255, 255, 255,
	}

	i420 := bgraToI420(bgra, 2, 2, 2*4)
	if len(i420) != 6 {
		t.Fatalf("expected i420 length 6 (4 Y + 1 U + 1 V), got %d", len(i420))
	}

	// Y plane: red, green, blue, white, using the same BT.601 integer math
	// the teacher's bgraToNV12 uses.
	wantY := []byte{82, 144, 41, 235}
	for i, w := range wantY {
		if i420[i] != w {
			t.Fatalf("Y[%d]: want %d, got %d", i, w, i420[i])
		}
	}
}

func TestClamp(t *testing.T) {
	if clamp(-5, 16, 235) != 16 {
		t.Fatal("want clamp to low bound")
	}
	if clamp(300, 16, 235) != 235 {
		t.Fatal("want clamp to high bound")
	}
	if clamp(100, 16, 235) != 100 {
		t.Fatal("want unchanged within bounds")
	}
}
