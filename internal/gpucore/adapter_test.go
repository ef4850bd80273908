package gpucore

import "testing"

func TestAdapterIsSoftware(t *testing.T) {
	warp := Adapter{VendorID: 0x1414, DeviceID: 0x008C}
	if !warp.IsSoftware() {
		t.Fatal("expected Microsoft Basic Render Driver to be classified as software")
	}

	nvidia := Adapter{VendorID: 0x10DE, DeviceID: 0x2504}
	if nvidia.IsSoftware() {
		t.Fatal("expected a real hardware adapter to not be classified as software")
	}
}

func TestContextCloseIsNoOpOnZeroValue(t *testing.T) {
	var ctx Context
	ctx.Close() // must not panic
}
