package texturepool

import "testing"

func TestAcquireAllocatesWhenEmpty(t *testing.T) {
	allocated := 0
	p := New(1920, 1080, func() (Texture, error) {
		allocated++
		return Texture(allocated), nil
	}, func(Texture) {})

	tex, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tex != 1 {
		t.Fatalf("want texture 1, got %v", tex)
	}
	if allocated != 1 {
		t.Fatalf("want 1 allocation, got %d", allocated)
	}
}

func TestReleaseThenAcquireReusesWithoutAllocating(t *testing.T) {
	allocated := 0
	p := New(1920, 1080, func() (Texture, error) {
		allocated++
		return Texture(allocated), nil
	}, func(Texture) {})

	tex, _ := p.Acquire()
	p.ReleaseCallback(tex)

	if got := p.Len(); got != 1 {
		t.Fatalf("want free-list depth 1, got %d", got)
	}

	reused, err := p.Acquire()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reused != tex {
		t.Fatalf("want reused texture %v, got %v", tex, reused)
	}
	if allocated != 1 {
		t.Fatalf("want still only 1 allocation, got %d", allocated)
	}
}

func TestResizeReleasesPooledTexturesAndClearsFreeList(t *testing.T) {
	released := []Texture{}
	p := New(1920, 1080, func() (Texture, error) { return Texture(1), nil }, func(tex Texture) {
		released = append(released, tex)
	})

	tex, _ := p.Acquire()
	p.ReleaseCallback(tex)

	p.Resize(3840, 2160)

	if len(released) != 1 || released[0] != tex {
		t.Fatalf("want texture %v released on resize, got %v", tex, released)
	}
	if p.Len() != 0 {
		t.Fatalf("want empty free-list after resize, got %d", p.Len())
	}
}

func TestPoolMembershipDisjointFromInFlight(t *testing.T) {
	p := New(100, 100, func() (Texture, error) { return Texture(42), nil }, func(Texture) {})

	tex, _ := p.Acquire()
	if p.Len() != 0 {
		t.Fatalf("an acquired (in-flight) texture must not also be in the free-list, got len=%d", p.Len())
	}
	p.ReleaseCallback(tex)
	if p.Len() != 1 {
		t.Fatalf("want 1 after release, got %d", p.Len())
	}
}
