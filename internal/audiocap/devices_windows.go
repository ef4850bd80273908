//go:build windows

package audiocap

import (
	"unicode/utf16"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/gpucore"
)

const (
	deviceStateActive = 0x1

	mmdeEnumAudioEndpoints    = 3
	mmDeviceCollGetCount      = 3
	mmDeviceCollItem          = 4
	mmDeviceGetID             = 5
	mmDeviceOpenPropertyStore = 4
	propStoreGetValue         = 5

	storageAccessRead = 0

	vtLPWStr = 31
)

var pkeyDeviceFriendlyName = struct {
	fmtid gpucore.GUID
	pid   uint32
}{
	fmtid: gpucore.GUID{Data1: 0xa45c254e, Data2: 0xdf1c, Data3: 0x4efd, Data4: [8]byte{0x80, 0x20, 0x67, 0xd1, 0x46, 0xa8, 0x50, 0xe0}},
	pid:   14,
}

// propVariant mirrors the Windows PROPVARIANT layout for the VT_LPWSTR
// case only (the single type this package reads).
type propVariant struct {
	vt        uint16
	reserved1 uint16
	reserved2 uint16
	reserved3 uint16
	pwszVal   uintptr
}

// Device identifies one capture-role audio endpoint.
type Device struct {
	Name     string
	Endpoint string
}

// ListCaptureDevices enumerates active microphone endpoints, for the
// device-enumeration JSON a recorder's device-listing mode emits.
func ListCaptureDevices() ([]Device, error) {
	gpucore.ProcCoInitializeEx.Call(0, gpucore.CoinitMultithreaded)

	enumerator, err := gpucore.CreateInstance(&clsidMMDeviceEnumerator, &iidIMMDeviceEnumerator)
	if err != nil {
		return nil, err
	}
	defer gpucore.Release(enumerator)

	var collection uintptr
	_, err = gpucore.Call(enumerator, mmdeEnumAudioEndpoints,
		uintptr(eCapture), uintptr(deviceStateActive), uintptr(unsafe.Pointer(&collection)))
	if err != nil {
		return nil, err
	}
	defer gpucore.Release(collection)

	var count uint32
	if _, err := callOut(collection, mmDeviceCollGetCount, &count); err != nil {
		return nil, err
	}

	var devices []Device
	for i := uint32(0); i < count; i++ {
		var device uintptr
		_, err := gpucore.Call(collection, mmDeviceCollItem, uintptr(i), uintptr(unsafe.Pointer(&device)))
		if err != nil {
			continue
		}

		d := readDevice(device)
		gpucore.Release(device)
		if d.Endpoint != "" {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

func readDevice(device uintptr) Device {
	var d Device

	var idPtr uintptr
	if _, err := gpucore.Call(device, mmDeviceGetID, uintptr(unsafe.Pointer(&idPtr))); err == nil && idPtr != 0 {
		d.Endpoint = utf16PtrToString(idPtr)
		gpucore.ProcCoTaskMemFree.Call(idPtr)
	}

	var store uintptr
	if _, err := gpucore.Call(device, mmDeviceOpenPropertyStore, uintptr(storageAccessRead), uintptr(unsafe.Pointer(&store))); err == nil && store != 0 {
		var pv propVariant
		key := pkeyDeviceFriendlyName
		if _, err := gpucore.Call(store, propStoreGetValue, uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&pv))); err == nil {
			if pv.vt == vtLPWStr && pv.pwszVal != 0 {
				d.Name = utf16PtrToString(pv.pwszVal)
			}
		}
		gpucore.Release(store)
	}

	return d
}

// callOut invokes a zero-argument COM method that returns its uint32 result
// by out-pointer, the convention IMMDeviceCollection::GetCount uses.
func callOut(obj uintptr, vtableIdx int, out *uint32) (uintptr, error) {
	return gpucore.Call(obj, vtableIdx, uintptr(unsafe.Pointer(out)))
}

func utf16PtrToString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var chars []uint16
	for i := 0; ; i++ {
		c := *(*uint16)(unsafe.Pointer(p + uintptr(i)*2))
		if c == 0 {
			break
		}
		chars = append(chars, c)
	}
	return string(utf16.Decode(chars))
}
