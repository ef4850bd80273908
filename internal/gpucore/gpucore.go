package gpucore

import "errors"

// ErrNoHardwareAdapters is returned by EnumerateAdapters when every adapter
// on the system is a software rasterizer (or there are none at all). Spec
// §4.1 treats this as fatal: a recording session cannot start.
var ErrNoHardwareAdapters = errors.New("gpucore: no hardware adapters available")

// ErrDeviceCreationFailed wraps a fatal D3D11CreateDevice failure.
var ErrDeviceCreationFailed = errors.New("gpucore: device creation failed")

// Context owns one hardware adapter's D3D11 device/context pair and the
// monitors attached to it. It is created once per recording session and
// shared (via OpenSharedHandle/OpenFromHandle) between the capture and compositor
// threads, per spec §4.1 and §5.
type Context struct {
	Adapter  Adapter
	Monitors []Monitor
}

// Monitor is GpuContext's view of an attached output: enough to hand to
// internal/duplication to start a ScreenDuplicator, without that package
// needing to know about adapters at all.
type Monitor struct {
	AdapterName string
	OutputName  string
	OutputIndex int
	Rotation    int
	Left, Top, Right, Bottom int32
}

// Close releases the adapter's device and context. Safe to call once; a
// zero-value Context (as produced on non-Windows builds) is a no-op.
func (c *Context) Close() {
	if c.Adapter.Context != 0 {
		Release(c.Adapter.Context)
		c.Adapter.Context = 0
	}
	if c.Adapter.Device != 0 {
		Release(c.Adapter.Device)
		c.Adapter.Device = 0
	}
}
