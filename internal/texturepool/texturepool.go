// Package texturepool implements TexturePool: a resolution-keyed free-list
// of GPU textures recycled between composited samples, so the compositor
// never allocates a new texture once steady state is reached.
package texturepool

import "sync"

// Texture is an opaque GPU texture handle (an ID3D11Texture2D* on
// Windows). The pool never inspects it, only tracks its descriptor key.
type Texture uintptr

// Allocator creates a new texture matching the pool's fixed descriptor,
// supplied by the platform glue (internal/gpucore on Windows) so this
// package stays platform-independent and unit-testable.
type Allocator func() (Texture, error)

// Releaser destroys a texture no longer needed by the pool, e.g. on
// resolution change.
type Releaser func(Texture)

// Pool is TexturePool: Acquire returns a texture with the pool's fixed
// descriptor, allocating a new one only if the free-list is empty.
// ReleaseCallback returns a texture to the free-list for reuse. Pool
// membership is disjoint from "in flight to encoder" by construction:
// a texture is only ever in the free-list slice or out of it.
type Pool struct {
	mu       sync.Mutex
	free     []Texture
	width    uint32
	height   uint32
	allocate Allocator
	release  Releaser
}

// New creates a Pool for textures of the given fixed width/height.
func New(width, height uint32, allocate Allocator, release Releaser) *Pool {
	return &Pool{width: width, height: height, allocate: allocate, release: release}
}

// Acquire returns a texture with the pool's descriptor, allocating a new
// one if the free-list is empty. Thread-safe.
func (p *Pool) Acquire() (Texture, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		tex := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return tex, nil
	}
	p.mu.Unlock()
	return p.allocate()
}

// ReleaseCallback returns tex to the pool's free-list. Intended to be
// registered as the sample release callback a SinkWriter invokes once the
// encoder is done with a composited sample.
func (p *Pool) ReleaseCallback(tex Texture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, tex)
}

// Resize drops every pooled texture (releasing each via the configured
// Releaser) and adopts a new fixed descriptor — used when the virtual
// desktop's bounds change after a monitor topology change.
func (p *Pool) Resize(width, height uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tex := range p.free {
		p.release(tex)
	}
	p.free = nil
	p.width = width
	p.height = height
}

// Len reports the current free-list depth, for tests and diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
