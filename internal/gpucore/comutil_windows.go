//go:build windows

package gpucore

import (
	"fmt"
	"syscall"
	"unsafe"
)

// COM vtable calling infrastructure shared by every package that talks to
// DXGI/D3D11/WASAPI directly (duplication, compositor, audiocap). Pure Go,
// no CGO: a COM interface pointer is a pointer to a pointer to a vtable of
// function pointers, called with the interface pointer as the implicit
// "this" first argument.

// GUID is a COM GUID (128-bit), laid out exactly like the Windows GUID
// struct so it can be passed by address to QueryInterface et al.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Call invokes the COM vtable method at vtableIdx on obj, treating obj as
// the implicit "this" pointer. Returns the raw HRESULT as a uintptr and a
// non-nil error when the HRESULT indicates failure (high bit set).
func Call(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	fn := VtblFn(obj, vtableIdx)

	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)

	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// VtblFn resolves a COM vtable function pointer by index without invoking it
// — used by Call itself and by the few calls that skip Call's
// HRESULT-to-error wrapping (Release, Unmap, Flush, and the WASAPI capture
// client's GetBuffer/ReleaseBuffer).
func VtblFn(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// Release calls IUnknown::Release (vtable index 2). Safe on a zero handle.
func Release(obj uintptr) {
	if obj == 0 {
		return
	}
	syscall.SyscallN(VtblFn(obj, vtblRelease), obj)
}

// QueryInterface calls IUnknown::QueryInterface (vtable index 0) for iid,
// returning the new interface pointer.
func QueryInterface(obj uintptr, iid *GUID) (uintptr, error) {
	var out uintptr
	_, err := Call(obj, vtblQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	return out, err
}

const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2
)

// DLL handles shared by every Windows-only file in this module.
var (
	Ole32DLL  = syscall.NewLazyDLL("ole32.dll")
	D3D11DLL  = syscall.NewLazyDLL("d3d11.dll")
	User32DLL = syscall.NewLazyDLL("user32.dll")
	Kernel32  = syscall.NewLazyDLL("kernel32.dll")

	ProcCoInitializeEx   = Ole32DLL.NewProc("CoInitializeEx")
	ProcCoUninitialize   = Ole32DLL.NewProc("CoUninitialize")
	ProcCoCreateInstance = Ole32DLL.NewProc("CoCreateInstance")
	ProcCoTaskMemFree    = Ole32DLL.NewProc("CoTaskMemFree")
)

const CoinitMultithreaded = 0x0

// ClsctxAll requests any available COM activation context (in-process,
// local, or remote server), matching the teacher's `CoCreateInstance`/
// `IMMDevice::Activate` call sites.
const ClsctxAll = 0x1 | 0x2 | 0x4 | 0x10

// CreateInstance wraps CoCreateInstance for classes with no aggregation,
// returning the new interface pointer for iid.
func CreateInstance(clsid, iid *GUID) (uintptr, error) {
	var out uintptr
	hr, _, _ := syscall.SyscallN(
		ProcCoCreateInstance.Addr(),
		uintptr(unsafe.Pointer(clsid)),
		0,
		uintptr(ClsctxAll),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if int32(hr) < 0 {
		return 0, fmt.Errorf("CoCreateInstance: HRESULT 0x%08X", uint32(hr))
	}
	return out, nil
}
