//go:build windows

package compositor

import (
	"fmt"

	"github.com/jgcoded/duplicast/internal/cursorfx"
	"github.com/jgcoded/duplicast/internal/duplication"
	"github.com/jgcoded/duplicast/internal/gpucore"
	"github.com/jgcoded/duplicast/internal/texturepool"
	"github.com/jgcoded/duplicast/internal/virtualdesktop"
)

// NewPipeline wires one monitor's Pipeline: a Duplicator bound to monitor,
// the shared surface (or a View opened onto it when device differs from
// the surface's own device), a ShaderCache, a staging texture sized to
// monitor's bounds for the move-rect two-hop copy, and a texture pool of
// compose targets, also sized to monitor's own bounds.
//
// device/context are the GpuContext this Pipeline draws with; surface is
// the shared composite target owned by the recording's primary monitor.
// Pass sameDevice true when device is the surface's own device, in which
// case Pipeline accesses it directly instead of through a View.
func NewPipeline(device, context uintptr, monitor duplication.Monitor, surface *virtualdesktop.Surface, sameDevice bool, shaders *ShaderCache) (*Pipeline, error) {
	dup, err := duplication.NewDuplicator(device, context, monitor)
	if err != nil {
		return nil, fmt.Errorf("compositor: build duplicator for %s: %w", monitor.OutputName, err)
	}

	var view *virtualdesktop.View
	if !sameDevice {
		view, err = surface.OpenFor(device)
		if err != nil {
			dup.Close()
			return nil, fmt.Errorf("compositor: open shared surface on monitor device: %w", err)
		}
	}

	bounds := monitor.Bounds
	staging, err := gpucore.CreateTexture2D(device, &gpucore.Texture2DDesc{
		Width:       uint32(bounds.Width()),
		Height:      uint32(bounds.Height()),
		MipLevels:   1,
		ArraySize:   1,
		Format:      gpucore.DXGIFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
	})
	if err != nil {
		if view != nil {
			view.Close()
		}
		dup.Close()
		return nil, fmt.Errorf("compositor: create staging texture: %w", err)
	}

	vertexBuffer, err := CreateVertexBuffer(device, initialVertexCapacity)
	if err != nil {
		gpucore.Release(staging)
		if view != nil {
			view.Close()
		}
		dup.Close()
		return nil, fmt.Errorf("compositor: create initial vertex buffer: %w", err)
	}

	cursorVertexBuffer, err := CreateVertexBuffer(device, 6)
	if err != nil {
		gpucore.Release(vertexBuffer)
		gpucore.Release(staging)
		if view != nil {
			view.Close()
		}
		dup.Close()
		return nil, fmt.Errorf("compositor: create cursor vertex buffer: %w", err)
	}

	surfaceBounds := surface.Bounds()
	renderScratch, err := gpucore.CreateTexture2D(device, &gpucore.Texture2DDesc{
		Width:       uint32(surfaceBounds.Width()),
		Height:      uint32(surfaceBounds.Height()),
		MipLevels:   1,
		ArraySize:   1,
		Format:      gpucore.DXGIFormatB8G8R8A8,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   gpucore.D3D11BindRenderTarget | gpucore.D3D11BindShaderResource,
	})
	if err != nil {
		gpucore.Release(cursorVertexBuffer)
		gpucore.Release(vertexBuffer)
		gpucore.Release(staging)
		if view != nil {
			view.Close()
		}
		dup.Close()
		return nil, fmt.Errorf("compositor: create cursor render-scratch texture: %w", err)
	}

	// Pool textures are CPU-readable staging textures sized to THIS
	// monitor's own bounds, not the (possibly larger) shared surface: the
	// encoder receives samples matching the recorded monitor's dimensions
	// even when other outputs extend the virtual desktop further (spec's
	// S2 scenario).
	poolWidth := uint32(bounds.Width())
	poolHeight := uint32(bounds.Height())
	pool := texturepool.New(poolWidth, poolHeight,
		func() (texturepool.Texture, error) {
			tex, err := gpucore.CreateTexture2D(device, &gpucore.Texture2DDesc{
				Width:          poolWidth,
				Height:         poolHeight,
				MipLevels:      1,
				ArraySize:      1,
				Format:         gpucore.DXGIFormatB8G8R8A8,
				SampleCount:    1,
				Usage:          gpucore.D3D11UsageStaging,
				CPUAccessFlags: gpucore.D3D11CPUAccessRead,
			})
			return texturepool.Texture(tex), err
		},
		func(tex texturepool.Texture) { gpucore.Release(uintptr(tex)) },
	)

	return &Pipeline{
		device:             device,
		context:            context,
		duplicator:         dup,
		monitor:            monitor,
		surface:            surface,
		view:               view,
		shaders:            shaders,
		vertexBuffer:       vertexBuffer,
		vertexCap:          initialVertexCapacity,
		staging:            staging,
		renderScratch:      renderScratch,
		cursorVertexBuffer: cursorVertexBuffer,
		pool:               pool,
		cursor:             &cursorfx.State{},
		nativeW:            bounds.Width(),
		nativeH:            bounds.Height(),
		virtualOrigin:      duplication.Point{X: surfaceBounds.Left, Y: surfaceBounds.Top},
		virtualW:           surfaceBounds.Width(),
		virtualH:           surfaceBounds.Height(),
		outputBounds:       duplication.Rect{Left: bounds.Left, Top: bounds.Top, Right: bounds.Right, Bottom: bounds.Bottom},
	}, nil
}

// initialVertexCapacity covers a handful of dirty rects (6 verts each)
// without a reallocation on the first tick.
const initialVertexCapacity = 6 * 16

// Close releases every GPU object this Pipeline owns. The surface itself
// is owned by the caller (shared across every monitor's Pipeline) and is
// not released here; only a per-device View is.
func (p *Pipeline) Close() {
	if p.vertexBuffer != 0 {
		gpucore.Release(p.vertexBuffer)
	}
	if p.cursorVertexBuffer != 0 {
		gpucore.Release(p.cursorVertexBuffer)
	}
	if p.renderScratch != 0 {
		gpucore.Release(p.renderScratch)
	}
	if p.staging != 0 {
		gpucore.Release(p.staging)
	}
	if p.view != nil {
		p.view.Close()
	}
	if p.duplicator != nil {
		p.duplicator.Close()
	}
}
