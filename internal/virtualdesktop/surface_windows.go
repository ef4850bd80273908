//go:build windows

package virtualdesktop

import (
	"fmt"

	"github.com/jgcoded/duplicast/internal/gpucore"
)

// Surface is the shared composite texture every Pipeline renders its
// monitor's contribution into. It is created once, on the device that owns
// the recording session, and opened by name (a shared NT handle) from every
// other device that needs to read or write it.
type Surface struct {
	owner      uintptr // owning ID3D11Device*
	texture    uintptr
	keyedMutex uintptr
	keys       *RotatingKeys
	bounds     Bounds
	handle     uintptr
}

// NewSurface creates the shared, keyed-mutex-guarded composite texture
// sized to bounds on the owning device.
func NewSurface(device uintptr, bounds Bounds) (*Surface, error) {
	desc := &gpucore.Texture2DDesc{
		Width:       uint32(bounds.Width()),
		Height:      uint32(bounds.Height()),
		MipLevels:   1,
		ArraySize:   1,
		Format:      gpucore.DXGIFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       gpucore.D3D11UsageDefault,
		BindFlags:   gpucore.D3D11BindRenderTarget | gpucore.D3D11BindShaderResource,
		MiscFlags:   gpucore.D3D11ResourceMiscSharedKeyedmutex,
	}
	tex, err := gpucore.CreateTexture2D(device, desc)
	if err != nil {
		return nil, fmt.Errorf("create shared surface texture: %w", err)
	}

	mutex, err := gpucore.OpenKeyedMutex(tex)
	if err != nil {
		gpucore.Release(tex)
		return nil, err
	}

	handle, err := gpucore.OpenSharedHandle(tex)
	if err != nil {
		gpucore.Release(mutex)
		gpucore.Release(tex)
		return nil, err
	}

	return &Surface{
		owner:      device,
		texture:    tex,
		keyedMutex: mutex,
		keys:       NewRotatingKeys(),
		bounds:     bounds,
		handle:     handle,
	}, nil
}

// Bounds returns the surface's virtual-desktop extent.
func (s *Surface) Bounds() Bounds { return s.bounds }

// Texture returns the owning device's texture handle, for the owner's own
// Pipeline to render into directly without going through View.
func (s *Surface) Texture() uintptr { return s.texture }

// Close releases the owner-side texture and keyed mutex.
func (s *Surface) Close() {
	gpucore.Release(s.keyedMutex)
	gpucore.Release(s.texture)
}

// Lock acquires the surface for the owning device, with the configured
// timeout. ok is false (err nil) on a timeout, matching KeyedMutexLock's
// "construct unlocked" behavior on WAIT_TIMEOUT.
func (s *Surface) Lock() (guard *LockGuard, ok bool, err error) {
	acquired, err := gpucore.AcquireKeyedMutex(s.keyedMutex, s.keys.AcquireKey(), LockTimeoutMillis)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return &LockGuard{
		keys: s.keys,
		release: func(key uint64) error {
			return gpucore.ReleaseKeyedMutex(s.keyedMutex, key)
		},
	}, true, nil
}

// View is a non-owning device's opened handle onto a Surface's texture,
// obtained via the shared NT handle.
type View struct {
	texture    uintptr
	keyedMutex uintptr
	keys       *RotatingKeys
}

// OpenFor opens the surface's shared texture on device, for rendering or
// reading from a device other than the one that created it.
func (s *Surface) OpenFor(device uintptr) (*View, error) {
	tex, err := gpucore.OpenFromHandle(device, s.handle)
	if err != nil {
		return nil, fmt.Errorf("open shared surface on device: %w", err)
	}
	mutex, err := gpucore.OpenKeyedMutex(tex)
	if err != nil {
		gpucore.Release(tex)
		return nil, err
	}
	return &View{texture: tex, keyedMutex: mutex, keys: s.keys}, nil
}

// Texture returns the view's local texture handle.
func (v *View) Texture() uintptr { return v.texture }

// Close releases the view's local texture and keyed mutex.
func (v *View) Close() {
	gpucore.Release(v.keyedMutex)
	gpucore.Release(v.texture)
}

// Lock acquires the surface through this view, with the configured timeout.
func (v *View) Lock() (guard *LockGuard, ok bool, err error) {
	acquired, err := gpucore.AcquireKeyedMutex(v.keyedMutex, v.keys.AcquireKey(), LockTimeoutMillis)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return &LockGuard{
		keys: v.keys,
		release: func(key uint64) error {
			return gpucore.ReleaseKeyedMutex(v.keyedMutex, key)
		},
	}, true, nil
}
