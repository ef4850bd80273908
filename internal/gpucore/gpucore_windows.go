//go:build windows

package gpucore

import (
	"fmt"
	"syscall"
	"unicode/utf16"
	"unsafe"
)

var (
	dxgiDLL = syscall.NewLazyDLL("dxgi.dll")

	procCreateDXGIFactory1 = dxgiDLL.NewProc("CreateDXGIFactory1")
)

var iidIDXGIFactory1 = GUID{0x770aae78, 0xf26f, 0x4dba, [8]byte{0xa8, 0x29, 0x25, 0x3c, 0x83, 0xd1, 0xb3, 0x87}}

const (
	vtblFactory1EnumAdapters1 = 12
	vtblAdapter1GetDesc1      = 10 // IDXGIAdapter1 extends IDXGIAdapter's GetDesc
	vtblAdapterEnumOutputs    = 7
	vtblOutputGetDesc         = 7
	vtblOutputQueryInterface1 = 0 // IUnknown::QueryInterface, used to reach IDXGIOutput1
)

type dxgiOutputDesc struct {
	DeviceName   [32]uint16
	DesktopCoordinates Rect32
	AttachedToDesktop  int32
	Rotation           uint32
	Monitor            uintptr
}

// Rect32 matches RECT.
type Rect32 struct {
	Left, Top, Right, Bottom int32
}

// EnumerateAdapters creates a hardware D3D11 device on every non-software
// adapter in the system, per spec §4.1. Returns ErrNoHardwareAdapters if
// every adapter is the WARP rasterizer (or none exist).
func EnumerateAdapters() ([]Adapter, error) {
	factory, err := createDXGIFactory1()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceCreationFailed, err)
	}
	defer Release(factory)

	var adapters []Adapter
	for i := 0; ; i++ {
		adapterPtr, err := enumAdapters1(factory, uint32(i))
		if err != nil {
			break // DXGI_ERROR_NOT_FOUND: enumeration exhausted
		}

		desc, descErr := getAdapterDesc1(adapterPtr)
		if descErr != nil {
			Release(adapterPtr)
			continue
		}

		a := Adapter{
			Name:        utf16ToString(desc.Description[:]),
			VendorID:    desc.VendorID,
			DeviceID:    desc.DeviceID,
			DeviceIndex: i,
		}
		if a.IsSoftware() {
			Release(adapterPtr)
			continue
		}

		device, context, err := CreateHardwareDevice(adapterPtr)
		Release(adapterPtr)
		if err != nil {
			continue // this adapter failed device creation; try the next
		}
		a.Device = device
		a.Context = context
		adapters = append(adapters, a)
	}

	if len(adapters) == 0 {
		return nil, ErrNoHardwareAdapters
	}
	return adapters, nil
}

// EnumerateMonitors lists every output attached to adapter, in the shape
// internal/duplication needs to build a DesktopMonitor.
func EnumerateMonitors(adapterDevice uintptr, adapterName string) ([]Monitor, error) {
	dxgiDevice, err := QueryInterface(adapterDevice, &IIDIDXGIDevice)
	if err != nil {
		return nil, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer Release(dxgiDevice)

	var adapterPtr uintptr
	if _, err := Call(dxgiDevice, vtblDXGIDeviceGetAdapter, uintptr(unsafe.Pointer(&adapterPtr))); err != nil {
		return nil, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer Release(adapterPtr)

	var monitors []Monitor
	for i := 0; ; i++ {
		var outputPtr uintptr
		_, err := Call(adapterPtr, vtblAdapterEnumOutputs, uintptr(i), uintptr(unsafe.Pointer(&outputPtr)))
		if err != nil {
			break
		}

		var desc dxgiOutputDesc
		_, descErr := Call(outputPtr, vtblOutputGetDesc, uintptr(unsafe.Pointer(&desc)))
		Release(outputPtr)
		if descErr != nil {
			continue
		}

		monitors = append(monitors, Monitor{
			AdapterName: adapterName,
			OutputName:  utf16ToString(desc.DeviceName[:]),
			OutputIndex: i,
			Rotation:    int(desc.Rotation),
			Left:        desc.DesktopCoordinates.Left,
			Top:         desc.DesktopCoordinates.Top,
			Right:       desc.DesktopCoordinates.Right,
			Bottom:      desc.DesktopCoordinates.Bottom,
		})
	}
	return monitors, nil
}

func createDXGIFactory1() (uintptr, error) {
	var factory uintptr
	ret, _, _ := procCreateDXGIFactory1.Call(uintptr(unsafe.Pointer(&iidIDXGIFactory1)), uintptr(unsafe.Pointer(&factory)))
	if int32(ret) < 0 {
		return 0, fmt.Errorf("CreateDXGIFactory1: 0x%08X", uint32(ret))
	}
	return factory, nil
}

func enumAdapters1(factory uintptr, index uint32) (uintptr, error) {
	var adapter uintptr
	_, err := Call(factory, vtblFactory1EnumAdapters1, uintptr(index), uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		return 0, err
	}
	return adapter, nil
}

func getAdapterDesc1(adapter uintptr) (dxgiAdapterDesc, error) {
	var desc dxgiAdapterDesc
	_, err := Call(adapter, vtblAdapter1GetDesc1, uintptr(unsafe.Pointer(&desc)))
	return desc, err
}

func utf16ToString(b []uint16) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(utf16.Decode(b[:n]))
}
