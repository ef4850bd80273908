//go:build !windows

package gpucore

// EnumerateAdapters always fails on non-Windows builds: desktop duplication
// is a DXGI-only capability.
func EnumerateAdapters() ([]Adapter, error) {
	return nil, ErrNoHardwareAdapters
}

// EnumerateMonitors always returns no outputs on non-Windows builds.
func EnumerateMonitors(adapterDevice uintptr, adapterName string) ([]Monitor, error) {
	return nil, nil
}

// Release is a no-op on non-Windows builds, where no COM objects exist.
func Release(obj uintptr) {}
