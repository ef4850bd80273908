//go:build windows

package gpucore

import (
	"fmt"
	"syscall"
	"unsafe"
)

// D3D11/DXGI constants used by every duplication/compositor call site.
const (
	D3DDriverTypeHardware = 1
	D3DFeatureLevel11_0   = 0xb000
	D3D11SDKVersion       = 7

	D3D11CreateDeviceBGRASupport  = 0x20
	D3D11CreateDeviceVideoSupport = 0x800

	D3D11UsageDefault  = 0
	D3D11UsageStaging  = 3
	D3D11CPUAccessRead = 0x20000

	D3D11BindRenderTarget   = 0x20
	D3D11BindShaderResource = 0x8

	D3D11ResourceMiscSharedKeyedmutex = 0x00000200

	DXGIFormatB8G8R8A8 = 87

	// Vtable indices, fixed by the COM ABI.
	vtblD3D11DeviceCreateTexture2D        = 5
	vtblD3D11DeviceCreateShaderResView    = 7
	vtblD3D11DeviceCreateRenderTargetView = 9
	vtblD3D11DeviceGetImmediateContext    = 40

	vtblD3D11CtxCopyResource          = 47
	vtblD3D11CtxCopySubresourceRegion = 46
	vtblD3D11CtxMap                   = 14
	vtblD3D11CtxUnmap                 = 15
	vtblD3D11CtxFlush                 = 111
	vtblD3D11CtxClearState            = 110
	vtblD3D11CtxGetDesc2D             = 10

	vtblDXGIDeviceGetAdapter   = 7
	vtblDXGIAdapterEnumOutputs = 7
	vtblDXGIAdapterGetDesc     = 8
	vtblDXGIOutputGetDesc      = 7
	vtblDXGIOutput1Duplicate   = 22

	vtblDXGIResourceGetSharedHandle = 6
	vtblDXGIKeyedMutexAcquireSync   = 7
	vtblDXGIKeyedMutexReleaseSync   = 8

	vtblD3D10MultithreadSetProtected = 3

	// DXGI duplication HRESULT/wait values not already in internal/duplication
	// (kept local here to avoid an import cycle into a package that must
	// stay platform-independent).
	WaitTimeoutMs = 10 // keyed-mutex lock timeout per spec §4.2
)

// GUIDs for the handful of DXGI/D3D11 interfaces this module QueryInterfaces
// for directly. Values come straight from d3d11.h/dxgi.h.
var (
	IIDIDXGIDevice       = GUID{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	IIDID3D11Texture2D   = GUID{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
	IIDIDXGIOutput1      = GUID{0x00cddea8, 0x939b, 0x4b83, [8]byte{0xa3, 0x40, 0xa6, 0x85, 0x22, 0x66, 0x66, 0xcc}}
	IIDIDXGIResource     = GUID{0x035f3ab4, 0x482e, 0x4e50, [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
	IIDIDXGIKeyedMutex   = GUID{0x9d8e1289, 0xd7b3, 0x465f, [8]byte{0x81, 0x26, 0x25, 0x0e, 0x34, 0x9a, 0xf8, 0x5d}}
	IIDID3D10Multithread = GUID{0x9b7e4e00, 0x342c, 0x4106, [8]byte{0xa1, 0x9f, 0x4f, 0x27, 0x04, 0xf6, 0x89, 0xf0}}
)

// Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// Box matches D3D11_BOX.
type Box struct {
	Left, Top, Front, Right, Bottom, Back uint32
}

type dxgiRational struct{ Numerator, Denominator uint32 }

type dxgiAdapterDesc struct {
	Description           [128]uint16
	VendorID, DeviceID     uint32
	SubSysID, Revision     uint32
	DedicatedVideoMemory   uintptr
	DedicatedSystemMemory  uintptr
	SharedSystemMemory     uintptr
	AdapterLuid            [2]uint32
}

// CreateHardwareDevice creates a video-enabled, BGRA-capable D3D11 device
// for the given hardware adapter (nil means the default adapter) and
// enables multi-thread protection on it, per spec §4.1.
func CreateHardwareDevice(adapter uintptr) (device, context uintptr, err error) {
	featureLevel := uint32(D3DFeatureLevel11_0)
	var actualLevel uint32
	flags := uintptr(D3D11CreateDeviceBGRASupport | D3D11CreateDeviceVideoSupport)

	driverType := uintptr(D3DDriverTypeHardware)
	if adapter != 0 {
		driverType = 0 // D3D_DRIVER_TYPE_UNKNOWN when an explicit adapter is given
	}

	hr, _, _ := procD3D11CreateDevice.Call(
		adapter,
		driverType,
		0,
		flags,
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(D3D11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&context)),
	)
	if int32(hr) < 0 {
		return 0, 0, fmt.Errorf("D3D11CreateDevice: 0x%08X", uint32(hr))
	}

	if err := enableMultithreadProtection(device); err != nil {
		Release(context)
		Release(device)
		return 0, 0, err
	}
	return device, context, nil
}

// enableMultithreadProtection QueryInterfaces for ID3D10Multithread and
// turns on driver-level locking, required because VirtualDesktop and every
// Pipeline share one GpuContext device across the recorder/encoder threads.
func enableMultithreadProtection(device uintptr) error {
	mt, err := QueryInterface(device, &IIDID3D10Multithread)
	if err != nil {
		return fmt.Errorf("QueryInterface ID3D10Multithread: %w", err)
	}
	defer Release(mt)
	_, err = Call(mt, vtblD3D10MultithreadSetProtected, 1)
	return err
}

// CreateTexture2D wraps ID3D11Device::CreateTexture2D.
func CreateTexture2D(device uintptr, desc *Texture2DDesc) (uintptr, error) {
	var tex uintptr
	_, err := Call(device, vtblD3D11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(desc)), 0, uintptr(unsafe.Pointer(&tex)))
	if err != nil {
		return 0, err
	}
	return tex, nil
}

// OpenSharedHandle returns a cross-device NT handle for a shared-flagged
// texture via IDXGIResource::GetSharedHandle — spec §4.1 open_shared.
func OpenSharedHandle(texture uintptr) (uintptr, error) {
	res, err := QueryInterface(texture, &IIDIDXGIResource)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIResource: %w", err)
	}
	defer Release(res)

	var handle uintptr
	_, err = Call(res, vtblDXGIResourceGetSharedHandle, uintptr(unsafe.Pointer(&handle)))
	if err != nil {
		return 0, fmt.Errorf("IDXGIResource::GetSharedHandle: %w", err)
	}
	return handle, nil
}

// OpenFromHandle opens a texture previously shared with OpenSharedHandle on
// a (possibly different) device — spec §4.1 open_from_handle.
func OpenFromHandle(device uintptr, handle uintptr) (uintptr, error) {
	var tex uintptr
	_, err := Call(device, vtblD3D11DeviceOpenSharedResource,
		handle, uintptr(unsafe.Pointer(&IIDID3D11Texture2D)), uintptr(unsafe.Pointer(&tex)))
	if err != nil {
		return 0, fmt.Errorf("ID3D11Device::OpenSharedResource: %w", err)
	}
	return tex, nil
}

const vtblD3D11DeviceOpenSharedResource = 32

var procD3D11CreateDevice = D3D11DLL.NewProc("D3D11CreateDevice")

// OpenKeyedMutex QueryInterfaces a shared texture for IDXGIKeyedMutex, used
// by internal/virtualdesktop to guard the composite surface.
func OpenKeyedMutex(texture uintptr) (uintptr, error) {
	mutex, err := QueryInterface(texture, &IIDIDXGIKeyedMutex)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIKeyedMutex: %w", err)
	}
	return mutex, nil
}

// AcquireKeyedMutex wraps IDXGIKeyedMutex::AcquireSync. A timeout, whether
// returned as WAIT_TIMEOUT (0x102, a success code Call does not treat as an
// error) or as DXGI_ERROR_WAIT_TIMEOUT (0x887A0027), is reported via the
// ok=false return rather than an error, since timing out is an expected,
// non-exceptional outcome.
func AcquireKeyedMutex(mutex uintptr, key uint64, timeoutMs uint32) (ok bool, err error) {
	ret, err := Call(mutex, vtblDXGIKeyedMutexAcquireSync, uintptr(key), uintptr(timeoutMs))
	if uint32(ret) == 0x887A0027 || uint32(ret) == 0x102 {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseKeyedMutex wraps IDXGIKeyedMutex::ReleaseSync.
func ReleaseKeyedMutex(mutex uintptr, key uint64) error {
	_, err := Call(mutex, vtblDXGIKeyedMutexReleaseSync, uintptr(key))
	return err
}

// CopyResource wraps ID3D11DeviceContext::CopyResource — a full-resource
// GPU-side copy, used for the cursor-compose full-surface snapshot (spec
// §4.5 step E) and for opening move-rect staging copies.
func CopyResource(context, dst, src uintptr) error {
	_, err := Call(context, vtblD3D11CtxCopyResource, dst, src)
	return err
}

// CopySubresourceRegion wraps ID3D11DeviceContext::CopySubresourceRegion,
// copying the region described by box from src into dst at (dstX, dstY).
func CopySubresourceRegion(context, dst uintptr, dstX, dstY uint32, src uintptr, box *Box) error {
	_, err := Call(context, vtblD3D11CtxCopySubresourceRegion,
		dst, 0, uintptr(dstX), uintptr(dstY), 0, src, 0, uintptr(unsafe.Pointer(box)))
	return err
}

// Map wraps ID3D11DeviceContext::Map for a staging texture with
// D3D11_MAP_READ, subresource 0.
func Map(context, resource uintptr) (MappedSubresource, error) {
	var mapped MappedSubresource
	const d3d11MapRead = 1
	_, err := Call(context, vtblD3D11CtxMap, resource, 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&mapped)))
	return mapped, err
}

// Unmap wraps ID3D11DeviceContext::Unmap for subresource 0.
func Unmap(context, resource uintptr) {
	syscall.SyscallN(VtblFn(context, vtblD3D11CtxUnmap), context, resource, 0)
}

// Flush wraps ID3D11DeviceContext::Flush, required before a texture handed
// across devices via a shared NT handle is guaranteed visible.
func Flush(context uintptr) {
	syscall.SyscallN(VtblFn(context, vtblD3D11CtxFlush), context)
}

// CreateRenderTargetView wraps ID3D11Device::CreateRenderTargetView with a
// nil desc (default view of the whole resource).
func CreateRenderTargetView(device, resource uintptr) (uintptr, error) {
	var rtv uintptr
	_, err := Call(device, vtblD3D11DeviceCreateRenderTargetView, resource, 0, uintptr(unsafe.Pointer(&rtv)))
	if err != nil {
		return 0, err
	}
	return rtv, nil
}

// CreateShaderResourceView wraps ID3D11Device::CreateShaderResourceView
// with a nil desc (default view of the whole resource).
func CreateShaderResourceView(device, resource uintptr) (uintptr, error) {
	var srv uintptr
	_, err := Call(device, vtblD3D11DeviceCreateShaderResView, resource, 0, uintptr(unsafe.Pointer(&srv)))
	if err != nil {
		return 0, err
	}
	return srv, nil
}
