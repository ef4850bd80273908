//go:build windows

package compositor

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/cursorfx"
	"github.com/jgcoded/duplicast/internal/duplication"
	"github.com/jgcoded/duplicast/internal/gpucore"
	"github.com/jgcoded/duplicast/internal/texturepool"
	"github.com/jgcoded/duplicast/internal/virtualdesktop"
)

// Sample is a composited frame ready for SinkWriter: a texture plus the
// release callback the encoder must invoke when it's done with it.
type Sample struct {
	Texture texturepool.Texture
	Release func()
}

// Pipeline implements one monitor's contribution to the shared surface
// each tick, per spec §4.5: acquire, replay move/dirty rects under the
// surface lock, release the lock, then compose the cursor from a
// freshly-acquired pool texture.
type Pipeline struct {
	device  uintptr
	context uintptr

	duplicator *duplication.Duplicator
	monitor    duplication.Monitor

	surface *virtualdesktop.Surface
	view    *virtualdesktop.View // nil when this Pipeline owns the surface's device

	shaders      *ShaderCache
	vertexBuffer uintptr
	vertexCap    int

	staging uintptr // staging texture for move-rect two-hop copy

	// renderScratch is a render-target-capable snapshot of the shared
	// surface: the cursor sprite draws into this (a CPU-readable staging
	// texture cannot be bound as a render target), and the result is then
	// copied into the CPU-readable pool texture handed to the encoder.
	renderScratch      uintptr
	cursorVertexBuffer uintptr

	pool *texturepool.Pool

	cursor           *cursorfx.State
	nativeW, nativeH int32

	// virtualOrigin/virtualW/virtualH describe the shared surface itself —
	// the union of every attached monitor's bounds (spec §4.2) — in
	// desktop-absolute coordinates. outputBounds is this monitor's own
	// placement within that surface, also desktop-absolute; composeCursor
	// crops the surface to outputBounds translated by virtualOrigin so the
	// encoded sample matches this monitor's own dimensions rather than the
	// whole virtual desktop's.
	virtualOrigin duplication.Point
	virtualW      int32
	virtualH      int32
	outputBounds  duplication.Rect
}

// Tick runs one full compositor cycle. ok=false, err=nil means SkipTick
// (frame timeout or lock timeout): the caller should not emit a sample.
func (p *Pipeline) Tick() (sample Sample, ok bool, err error) {
	frame, err := p.duplicator.AcquireFrame()
	if err != nil {
		return Sample{}, false, err
	}
	if !frame.Captured {
		return Sample{}, false, nil // SkipTick: timeout
	}
	defer func() {
		if relErr := p.duplicator.ReleaseFrame(); relErr != nil && err == nil {
			err = relErr
		}
	}()
	defer gpucore.Release(frame.DesktopHandle)

	if frame.Info.LastMouseUpdateTime != 0 {
		p.updateCursorShape(frame)
	}
	p.cursor.UpdatePosition(cursorfx.Position{
		X: frame.Info.MousePosition.X, Y: frame.Info.MousePosition.Y,
		Visible: frame.Info.MouseVisible, UpdateTime: frame.Info.LastMouseUpdateTime,
		Output: p.monitor.OutputIndex,
	})

	locked, lockOK, lockErr := p.lockSurface()
	if lockErr != nil {
		return Sample{}, false, lockErr
	}
	if !lockOK {
		return Sample{}, false, nil // SkipTick: lock timeout
	}

	func() {
		defer locked.Unlock()
		for _, mr := range frame.MoveRects {
			if err2 := p.replayMoveRect(mr, frame); err2 != nil && err == nil {
				err = err2
			}
		}
		if err == nil && len(frame.DirtyRects) > 0 {
			err = p.replayDirtyRects(frame)
		}
	}()
	if err != nil {
		return Sample{}, false, err
	}

	tex, composeErr := p.composeCursor()
	if composeErr != nil {
		return Sample{}, false, composeErr
	}

	return Sample{
		Texture: tex,
		Release: func() { p.pool.ReleaseCallback(tex) },
	}, true, nil
}

// ClassifyTickError reports the duplication.Kind a Tick error carries, so a
// caller can decide SkipTick-and-retry, rebuild-once, or Fatal per spec §7.
// An error that never passed through duplication.NewError (a replay/compose
// failure rather than an AcquireFrame one) has no classified HRESULT behind
// it and is treated as Fatal, matching §7's catch-all.
func ClassifyTickError(err error) duplication.Kind {
	var derr *duplication.Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return duplication.KindFatal
}

// Reset implements the Pipeline side of spec §4.3's recoverable-error path:
// tear down and re-acquire the underlying Duplicator against candidates,
// re-enumerated by the caller. The shared surface, staging resources, and
// texture pool are untouched — a recoverable duplication error (access
// lost, invalid call, a device-removed reason) invalidates only the
// duplication interface, not the device those other resources were created
// against.
func (p *Pipeline) Reset(candidates []duplication.Monitor) error {
	if err := p.duplicator.Reset(candidates); err != nil {
		return err
	}
	resolved := p.duplicator.Monitor()
	if resolved.Bounds.Width() != p.nativeW || resolved.Bounds.Height() != p.nativeH {
		return fmt.Errorf("compositor: recovered monitor bounds changed (%dx%d -> %dx%d), rebuild required",
			p.nativeW, p.nativeH, resolved.Bounds.Width(), resolved.Bounds.Height())
	}
	p.monitor = resolved
	return nil
}

func (p *Pipeline) lockSurface() (*virtualdesktop.LockGuard, bool, error) {
	if p.view != nil {
		return p.view.Lock()
	}
	return p.surface.Lock()
}

func (p *Pipeline) surfaceTexture() uintptr {
	if p.view != nil {
		return p.view.Texture()
	}
	return p.surface.Texture()
}

// replayMoveRect performs the two-hop staging copy of spec §4.5 step B:
// GPU sub-resource copy does not permit overlapping source/destination, so
// the source region is copied out to a staging texture first.
func (p *Pipeline) replayMoveRect(mr duplication.MoveRect, frame duplication.Frame) error {
	regions := MoveRectToSharedSurface(mr, frame.MonitorBounds, p.virtualOrigin, frame.Rotation, p.nativeW, p.nativeH)

	box := &gpucore.Box{
		Left: uint32(regions.SourceRect.Left), Top: uint32(regions.SourceRect.Top), Front: 0,
		Right: uint32(regions.SourceRect.Right), Bottom: uint32(regions.SourceRect.Bottom), Back: 1,
	}
	surfaceTex := p.surfaceTexture()
	if err := gpucore.CopySubresourceRegion(p.context, p.staging, 0, 0, surfaceTex, box); err != nil {
		return fmt.Errorf("move-rect stage-out: %w", err)
	}

	stageBox := &gpucore.Box{
		Left: 0, Top: 0, Front: 0,
		Right: uint32(regions.SourceRect.Width()), Bottom: uint32(regions.SourceRect.Height()), Back: 1,
	}
	if err := gpucore.CopySubresourceRegion(p.context, surfaceTex,
		uint32(regions.DestRect.Left), uint32(regions.DestRect.Top), p.staging, stageBox); err != nil {
		return fmt.Errorf("move-rect stage-in: %w", err)
	}
	return nil
}

// replayDirtyRects builds one vertex buffer covering every dirty rect and
// draws them as a triangle list, per spec §4.5 step C.
func (p *Pipeline) replayDirtyRects(frame duplication.Frame) error {
	verts := make([]Vertex, 0, len(frame.DirtyRects)*6)
	for _, r := range frame.DirtyRects {
		quad := DirtyRectVertices(r, frame.MonitorBounds, p.virtualOrigin, p.virtualW, p.virtualH, frame.Rotation, p.nativeW, p.nativeH)
		verts = append(verts, quad[:]...)
	}

	if err := p.ensureVertexBufferCapacity(len(verts)); err != nil {
		return err
	}
	mapped, err := gpucore.Map(p.context, p.vertexBuffer)
	if err != nil {
		return fmt.Errorf("map vertex buffer: %w", err)
	}
	dst := unsafe.Slice((*Vertex)(unsafe.Pointer(mapped.PData)), len(verts))
	copy(dst, verts)
	gpucore.Unmap(p.context, p.vertexBuffer)

	srv, err := gpucore.CreateShaderResourceView(p.device, frame.DesktopHandle)
	if err != nil {
		return fmt.Errorf("create desktop texture SRV: %w", err)
	}
	defer gpucore.Release(srv)

	rtv, err := gpucore.CreateRenderTargetView(p.device, p.surfaceTexture())
	if err != nil {
		return fmt.Errorf("create surface RTV: %w", err)
	}
	defer gpucore.Release(rtv)

	p.bindDrawState(srv, rtv, len(verts))
	return nil
}

func (p *Pipeline) ensureVertexBufferCapacity(count int) error {
	if count <= p.vertexCap {
		return nil
	}
	if p.vertexBuffer != 0 {
		gpucore.Release(p.vertexBuffer)
	}
	buf, err := CreateVertexBuffer(p.device, count)
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	p.vertexBuffer = buf
	p.vertexCap = count
	return nil
}

// bindDrawState issues the actual Draw call with blend disabled and the
// linear-clamp sampler bound, per spec §4.5 step C.
func (p *Pipeline) bindDrawState(srv, rtv uintptr, vertexCount int) {
	stride := uint32(unsafe.Sizeof(Vertex{}))
	offset := uint32(0)
	gpucore.Call(p.context, vtblCtxIASetVertexBuffers, 0, 1, uintptr(unsafe.Pointer(&p.vertexBuffer)), uintptr(unsafe.Pointer(&stride)), uintptr(unsafe.Pointer(&offset)))
	gpucore.Call(p.context, vtblCtxIASetInputLayout, p.shaders.inputLayout)
	gpucore.Call(p.context, vtblCtxIASetPrimitiveTopology, d3d11PrimitiveTopologyTriangleList)
	gpucore.Call(p.context, vtblCtxVSSetShader, p.shaders.vertexShader, 0, 0)
	gpucore.Call(p.context, vtblCtxPSSetShader, p.shaders.pixelShader, 0, 0)
	gpucore.Call(p.context, vtblCtxPSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv)))
	gpucore.Call(p.context, vtblCtxPSSetSamplers, 0, 1, uintptr(unsafe.Pointer(&p.shaders.sampler)))
	gpucore.Call(p.context, vtblCtxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)
	gpucore.Call(p.context, vtblCtxDraw, uintptr(vertexCount), 0)
}

// composeCursor implements spec §4.5 step E: acquire a recycled texture,
// copy this monitor's region of the shared surface into it, and (if the
// cursor is visible) draw the sprite over it with standard alpha blending.
//
// The pool texture is sized to this monitor's own bounds, not the whole
// virtual desktop, so the encoded sample matches the recorded monitor's
// dimensions (spec's end-to-end scenario S2) even when the shared surface
// spans several outputs; the copy out of the surface is therefore a crop,
// not a full-resource copy.
//
// The sprite draw can't target the pool texture directly: pool textures
// are CPU-readable staging resources and D3D11 forbids binding a staging
// resource as a render target. So the snapshot and sprite draw happen on
// renderScratch (a default-usage, render-target-capable texture sized to
// the full shared surface) and the cropped, composited region is copied
// into the pool texture afterward.
func (p *Pipeline) composeCursor() (texturepool.Texture, error) {
	tex, err := p.pool.Acquire()
	if err != nil {
		return 0, fmt.Errorf("acquire compose texture: %w", err)
	}

	cropBox := &gpucore.Box{
		Left: uint32(p.outputBounds.Left - p.virtualOrigin.X), Top: uint32(p.outputBounds.Top - p.virtualOrigin.Y), Front: 0,
		Right: uint32(p.outputBounds.Right - p.virtualOrigin.X), Bottom: uint32(p.outputBounds.Bottom - p.virtualOrigin.Y), Back: 1,
	}

	pos := p.cursor.Position()
	shape, hasShape := p.cursor.Shape()
	if !pos.Visible || !hasShape {
		if err := gpucore.CopySubresourceRegion(p.context, uintptr(tex), 0, 0, p.surfaceTexture(), cropBox); err != nil {
			return 0, fmt.Errorf("crop shared surface: %w", err)
		}
		return tex, nil
	}

	if err := gpucore.CopyResource(p.context, p.renderScratch, p.surfaceTexture()); err != nil {
		return 0, fmt.Errorf("snapshot shared surface to scratch: %w", err)
	}

	if err := p.drawCursorSprite(pos, shape); err != nil {
		// A failed sprite draw should not lose the frame: fall back to the
		// un-composited snapshot already sitting in renderScratch.
		slog.Warn("compositor: cursor sprite draw failed, emitting frame without cursor", "error", err)
	}

	if err := gpucore.CopySubresourceRegion(p.context, uintptr(tex), 0, 0, p.renderScratch, cropBox); err != nil {
		return 0, fmt.Errorf("crop composited scratch to pool texture: %w", err)
	}
	return tex, nil
}

// drawCursorSprite uploads shape's BGRA pixels into a shader-resource
// texture and draws it as a single alpha-blended quad at pos, offset by
// the sprite's hotspot, onto renderScratch.
func (p *Pipeline) drawCursorSprite(pos cursorfx.Position, shape cursorfx.Shape) error {
	spriteTex, err := gpucore.CreateTexture2D(p.device, &gpucore.Texture2DDesc{
		Width: uint32(shape.Width), Height: uint32(shape.Height),
		MipLevels: 1, ArraySize: 1,
		Format:      gpucore.DXGIFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   gpucore.D3D11BindShaderResource,
	})
	if err != nil {
		return fmt.Errorf("create sprite texture: %w", err)
	}
	defer gpucore.Release(spriteTex)

	rowPitch := uint32(shape.Width * 4)
	if _, err := gpucore.Call(p.context, vtblCtxUpdateSubresource,
		spriteTex, 0, 0, uintptr(unsafe.Pointer(&shape.BGRA[0])), uintptr(rowPitch), 0); err != nil {
		return fmt.Errorf("upload sprite pixels: %w", err)
	}

	// pos is in desktop-absolute coordinates (spec §4.4); renderScratch's
	// pixel (0,0) is virtualOrigin, so the sprite's destination rect must
	// be translated into the surface's local space before NDC projection.
	left := pos.X - p.virtualOrigin.X - int32(shape.HotSpotX)
	top := pos.Y - p.virtualOrigin.Y - int32(shape.HotSpotY)
	dest := duplication.Rect{
		Left: left, Top: top,
		Right: left + int32(shape.Width), Bottom: top + int32(shape.Height),
	}
	verts := SpriteVertices(dest, p.virtualW, p.virtualH)

	mapped, err := gpucore.Map(p.context, p.cursorVertexBuffer)
	if err != nil {
		return fmt.Errorf("map cursor vertex buffer: %w", err)
	}
	dst := unsafe.Slice((*Vertex)(unsafe.Pointer(mapped.PData)), len(verts))
	copy(dst, verts[:])
	gpucore.Unmap(p.context, p.cursorVertexBuffer)

	srv, err := gpucore.CreateShaderResourceView(p.device, spriteTex)
	if err != nil {
		return fmt.Errorf("create sprite SRV: %w", err)
	}
	defer gpucore.Release(srv)

	rtv, err := gpucore.CreateRenderTargetView(p.device, p.renderScratch)
	if err != nil {
		return fmt.Errorf("create scratch RTV: %w", err)
	}
	defer gpucore.Release(rtv)

	stride := uint32(unsafe.Sizeof(Vertex{}))
	offset := uint32(0)
	gpucore.Call(p.context, vtblCtxIASetVertexBuffers, 0, 1, uintptr(unsafe.Pointer(&p.cursorVertexBuffer)), uintptr(unsafe.Pointer(&stride)), uintptr(unsafe.Pointer(&offset)))
	gpucore.Call(p.context, vtblCtxIASetInputLayout, p.shaders.inputLayout)
	gpucore.Call(p.context, vtblCtxIASetPrimitiveTopology, d3d11PrimitiveTopologyTriangleList)
	gpucore.Call(p.context, vtblCtxVSSetShader, p.shaders.vertexShader, 0, 0)
	gpucore.Call(p.context, vtblCtxPSSetShader, p.shaders.pixelShader, 0, 0)
	gpucore.Call(p.context, vtblCtxPSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv)))
	gpucore.Call(p.context, vtblCtxPSSetSamplers, 0, 1, uintptr(unsafe.Pointer(&p.shaders.sampler)))
	gpucore.Call(p.context, vtblCtxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)
	gpucore.Call(p.context, vtblCtxOMSetBlendState, p.shaders.blendState, 0, 0xFFFFFFFF)
	gpucore.Call(p.context, vtblCtxDraw, uintptr(len(verts)), 0)
	gpucore.Call(p.context, vtblCtxOMSetBlendState, 0, 0, 0xFFFFFFFF)

	return nil
}

func (p *Pipeline) updateCursorShape(frame duplication.Frame) {
	if frame.Info.PointerShapeBufferSize == 0 {
		return
	}
	raw, err := p.duplicator.ReadPointerShape(frame.Info.PointerShapeBufferSize)
	if err != nil {
		return
	}
	bg := p.backgroundReader(frame, raw)

	var shape cursorfx.Shape
	switch raw.Type {
	case duplication.PointerShapeColor:
		shape = cursorfx.DecodeColor(raw.Pixels, int(raw.Width), int(raw.Height), raw.Pitch, int(raw.HotSpot.X), int(raw.HotSpot.Y))
	case duplication.PointerShapeMonochrome:
		shape = cursorfx.DecodeMonochrome(raw.Pixels, int(raw.Width), int(raw.Height), raw.Pitch, int(raw.HotSpot.X), int(raw.HotSpot.Y), bg)
	case duplication.PointerShapeMaskedColor:
		shape = cursorfx.DecodeMaskedColor(raw.Pixels, int(raw.Width), int(raw.Height), raw.Pitch, int(raw.HotSpot.X), int(raw.HotSpot.Y), bg)
	default:
		return
	}
	p.cursor.SetShape(shape)
}

// backgroundReader snapshots the shared surface under the cursor's current
// position into a small CPU-readable staging texture, so the monochrome
// and masked-color decoders (spec §4.4) can composite against what is
// actually on screen there rather than assuming an opaque-black backdrop.
// Any failure along the way degrades to an all-zero backdrop instead of
// failing the whole shape update.
func (p *Pipeline) backgroundReader(frame duplication.Frame, raw duplication.PointerShape) cursorfx.BackgroundReader {
	zero := func(x, y int) [4]byte { return [4]byte{} }

	width, height := int(raw.Width), int(raw.Height)
	if raw.Type == duplication.PointerShapeMonochrome {
		height /= 2
	}

	// frame.Info.MousePosition is desktop-absolute; p.surfaceTexture() is
	// the shared surface whose pixel (0,0) is virtualOrigin, so translate
	// before reading.
	originX := int(frame.Info.MousePosition.X) - int(p.virtualOrigin.X)
	originY := int(frame.Info.MousePosition.Y) - int(p.virtualOrigin.Y)
	if originX < 0 {
		originX = 0
	}
	if originY < 0 {
		originY = 0
	}
	w, h := width, height
	if originX+w > int(p.virtualW) {
		w = int(p.virtualW) - originX
	}
	if originY+h > int(p.virtualH) {
		h = int(p.virtualH) - originY
	}
	if w <= 0 || h <= 0 {
		return zero
	}

	staging, err := gpucore.CreateTexture2D(p.device, &gpucore.Texture2DDesc{
		Width: uint32(w), Height: uint32(h), MipLevels: 1, ArraySize: 1,
		Format:         gpucore.DXGIFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          gpucore.D3D11UsageStaging,
		CPUAccessFlags: gpucore.D3D11CPUAccessRead,
	})
	if err != nil {
		return zero
	}
	defer gpucore.Release(staging)

	box := &gpucore.Box{
		Left: uint32(originX), Top: uint32(originY), Front: 0,
		Right: uint32(originX + w), Bottom: uint32(originY + h), Back: 1,
	}
	if err := gpucore.CopySubresourceRegion(p.context, staging, 0, 0, p.surfaceTexture(), box); err != nil {
		return zero
	}

	mapped, err := gpucore.Map(p.context, staging)
	if err != nil {
		return zero
	}
	pixels := make([]byte, int(mapped.RowPitch)*h)
	copy(pixels, unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), len(pixels)))
	gpucore.Unmap(p.context, staging)

	rowPitch := int(mapped.RowPitch)
	return func(x, y int) [4]byte {
		if x < 0 || y < 0 || x >= w || y >= h {
			return [4]byte{}
		}
		i := y*rowPitch + x*4
		return [4]byte{pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]}
	}
}
