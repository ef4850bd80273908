//go:build windows

package compositor

import (
	"fmt"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/gpucore"
)

const (
	vtblDeviceCreateVertexShader   = 12
	vtblDeviceCreatePixelShader    = 15
	vtblDeviceCreateInputLayout    = 11
	vtblDeviceCreateSamplerState   = 23
	vtblDeviceCreateBlendState     = 20
	vtblDeviceCreateBuffer         = 3

	vtblCtxIASetInputLayout   = 17
	vtblCtxIASetVertexBuffers = 18
	vtblCtxIASetPrimitiveTopology = 24
	vtblCtxVSSetShader        = 11
	vtblCtxPSSetShader        = 9
	vtblCtxPSSetShaderResources = 8
	vtblCtxPSSetSamplers      = 10
	vtblCtxOMSetRenderTargets = 33
	vtblCtxOMSetBlendState    = 35
	vtblCtxRSSetViewports     = 44
	vtblCtxDraw               = 13
	vtblCtxUpdateSubresource  = 48

	d3d11UsageDefault  = 0
	d3d11UsageDynamic  = 2
	d3d11BindVertexBuffer = 0x1
	d3d11CPUAccessWrite   = 0x10000
	d3d11PrimitiveTopologyTriangleList = 4
	dxgiFormatR32G32B32Float = 6
	dxgiFormatR32G32Float    = 16
	d3d11InputPerVertexData  = 0
	d3d11FilterMinMagMipLinear = 0x15
	d3d11TextureAddressClamp   = 3
	d3d11BlendSrcAlpha         = 5
	d3d11BlendInvSrcAlpha      = 6
	d3d11BlendOne              = 2
	d3d11BlendZero             = 1
	d3d11BlendOpAdd            = 1
)

type inputElementDesc struct {
	SemanticName         *byte
	SemanticIndex        uint32
	Format               uint32
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       uint32
	InstanceDataStepRate uint32
}

type bufferDesc struct {
	ByteWidth      uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
	StructureByteStride uint32
}

type samplerDesc struct {
	Filter         uint32
	AddressU       uint32
	AddressV       uint32
	AddressW       uint32
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc uint32
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

type renderTargetBlendDesc struct {
	BlendEnable           int32
	SrcBlend              uint32
	DestBlend             uint32
	BlendOp               uint32
	SrcBlendAlpha         uint32
	DestBlendAlpha        uint32
	BlendOpAlpha          uint32
	RenderTargetWriteMask byte
	_pad                  [3]byte
}

type blendDesc struct {
	AlphaToCoverageEnable  int32
	IndependentBlendEnable int32
	RenderTarget           [8]renderTargetBlendDesc
}

// ShaderCache holds the D3D11 objects a Pipeline needs to draw the dirty
// rect quad: vertex/pixel shaders, input layout, a linear-clamp sampler,
// and the standard alpha-blend state used when compositing the cursor.
// One ShaderCache is created per GpuContext device and shared by every
// monitor's Pipeline on that device.
type ShaderCache struct {
	vertexShader uintptr
	pixelShader  uintptr
	inputLayout  uintptr
	sampler      uintptr
	blendState   uintptr
}

// NewShaderCache creates every GPU object up front, matching the original
// ShaderCache::Initialize's eager construction.
func NewShaderCache(device uintptr) (*ShaderCache, error) {
	vs, err := createVertexShader(device, vertexShaderBytecode)
	if err != nil {
		return nil, fmt.Errorf("CreateVertexShader: %w", err)
	}
	layout, err := createInputLayout(device, vertexShaderBytecode)
	if err != nil {
		gpucore.Release(vs)
		return nil, fmt.Errorf("CreateInputLayout: %w", err)
	}
	ps, err := createPixelShader(device, pixelShaderBytecode)
	if err != nil {
		gpucore.Release(layout)
		gpucore.Release(vs)
		return nil, fmt.Errorf("CreatePixelShader: %w", err)
	}
	sampler, err := createLinearClampSampler(device)
	if err != nil {
		gpucore.Release(ps)
		gpucore.Release(layout)
		gpucore.Release(vs)
		return nil, fmt.Errorf("CreateSamplerState: %w", err)
	}
	blend, err := createAlphaBlendState(device)
	if err != nil {
		gpucore.Release(sampler)
		gpucore.Release(ps)
		gpucore.Release(layout)
		gpucore.Release(vs)
		return nil, fmt.Errorf("CreateBlendState: %w", err)
	}

	return &ShaderCache{
		vertexShader: vs,
		pixelShader:  ps,
		inputLayout:  layout,
		sampler:      sampler,
		blendState:   blend,
	}, nil
}

// Close releases every cached GPU object.
func (c *ShaderCache) Close() {
	gpucore.Release(c.blendState)
	gpucore.Release(c.sampler)
	gpucore.Release(c.inputLayout)
	gpucore.Release(c.pixelShader)
	gpucore.Release(c.vertexShader)
}

func createVertexShader(device uintptr, bytecode []byte) (uintptr, error) {
	var vs uintptr
	_, err := gpucore.Call(device, vtblDeviceCreateVertexShader,
		uintptr(unsafe.Pointer(&bytecode[0])), uintptr(len(bytecode)), 0, uintptr(unsafe.Pointer(&vs)))
	return vs, err
}

func createPixelShader(device uintptr, bytecode []byte) (uintptr, error) {
	var ps uintptr
	_, err := gpucore.Call(device, vtblDeviceCreatePixelShader,
		uintptr(unsafe.Pointer(&bytecode[0])), uintptr(len(bytecode)), 0, uintptr(unsafe.Pointer(&ps)))
	return ps, err
}

func createInputLayout(device uintptr, vsBytecode []byte) (uintptr, error) {
	positionName := append([]byte("POSITION"), 0)
	texcoordName := append([]byte("TEXCOORD"), 0)
	elems := []inputElementDesc{
		{SemanticName: &positionName[0], Format: dxgiFormatR32G32B32Float, AlignedByteOffset: 0, InputSlotClass: d3d11InputPerVertexData},
		{SemanticName: &texcoordName[0], Format: dxgiFormatR32G32Float, AlignedByteOffset: 12, InputSlotClass: d3d11InputPerVertexData},
	}
	var layout uintptr
	_, err := gpucore.Call(device, vtblDeviceCreateInputLayout,
		uintptr(unsafe.Pointer(&elems[0])), uintptr(len(elems)),
		uintptr(unsafe.Pointer(&vsBytecode[0])), uintptr(len(vsBytecode)), uintptr(unsafe.Pointer(&layout)))
	return layout, err
}

func createLinearClampSampler(device uintptr) (uintptr, error) {
	desc := samplerDesc{
		Filter:   d3d11FilterMinMagMipLinear,
		AddressU: d3d11TextureAddressClamp,
		AddressV: d3d11TextureAddressClamp,
		AddressW: d3d11TextureAddressClamp,
		MaxLOD:   3.402823466e+38,
	}
	var sampler uintptr
	_, err := gpucore.Call(device, vtblDeviceCreateSamplerState, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&sampler)))
	return sampler, err
}

func createAlphaBlendState(device uintptr) (uintptr, error) {
	var desc blendDesc
	desc.RenderTarget[0] = renderTargetBlendDesc{
		BlendEnable:           1,
		SrcBlend:              d3d11BlendSrcAlpha,
		DestBlend:             d3d11BlendInvSrcAlpha,
		BlendOp:               d3d11BlendOpAdd,
		SrcBlendAlpha:         d3d11BlendOne,
		DestBlendAlpha:        d3d11BlendZero,
		BlendOpAlpha:          d3d11BlendOpAdd,
		RenderTargetWriteMask: 0x0F,
	}
	var blend uintptr
	_, err := gpucore.Call(device, vtblDeviceCreateBlendState, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&blend)))
	return blend, err
}

// CreateVertexBuffer creates a dynamic (CPU-writable) vertex buffer sized
// for count vertices — the dirty-rect quad list is rebuilt every tick.
func CreateVertexBuffer(device uintptr, count int) (uintptr, error) {
	desc := bufferDesc{
		ByteWidth:      uint32(count) * uint32(unsafe.Sizeof(Vertex{})),
		Usage:          d3d11UsageDynamic,
		BindFlags:      d3d11BindVertexBuffer,
		CPUAccessFlags: d3d11CPUAccessWrite,
	}
	var buf uintptr
	_, err := gpucore.Call(device, vtblDeviceCreateBuffer, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&buf)))
	return buf, err
}
