// Package duplication implements the per-output screen duplication state
// machine: DesktopMonitor enumeration, the ScreenDuplicator frame-acquisition
// loop, and the Frame snapshot it produces each tick.
package duplication

import "fmt"

// Kind classifies an error raised during frame acquisition into the
// taxonomy a ScreenDuplicator and RecorderThread act on.
type Kind int

const (
	// KindNone means no error occurred.
	KindNone Kind = iota
	// KindTransient covers TIMEOUT/OCCLUDED: skip the tick, keep state.
	KindTransient
	// KindRecoverable covers device-removed/access-lost/invalid-call class
	// errors: tear down and rebuild the duplication interface.
	KindRecoverable
	// KindFatal covers everything else: stop the recorder thread.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindRecoverable:
		return "recoverable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// HRESULT mirrors the Windows HRESULT values this package classifies.
// Declared as a plain type (not windows.Handle et al.) so Classify is
// testable without a GPU or the windows build tag.
type HRESULT uint32

// The canonical DXGI/D3D11 HRESULT values relevant to duplication.
const (
	HResultOK                     HRESULT = 0x00000000
	HResultDXGIErrorDeviceRemoved HRESULT = 0x887A0005
	HResultDXGIErrorDeviceReset   HRESULT = 0x887A0007
	HResultDXGIErrorAccessLost    HRESULT = 0x887A0026
	HResultDXGIErrorInvalidCall   HRESULT = 0x887A0001
	HResultDXGIErrorWaitTimeout   HRESULT = 0x887A0027
	HResultDXGIErrorUnsupported   HRESULT = 0x887A0004
	HResultDXGIErrorSessionDisc   HRESULT = 0x887A0028
	HResultDXGIErrorMoreData      HRESULT = 0x887A0003
	HResultEAccessDenied          HRESULT = 0x80070005
	HResultEOutOfMemory           HRESULT = 0x8007000E
	HResultWaitAbandoned          HRESULT = 0x00000080
	HResultWaitTimeoutOS          HRESULT = 0x00000102
	// HResultOccluded is not a real HRESULT; DXGI reports occlusion via
	// IDXGIOutputDuplication::AcquireNextFrame returning a frame with no
	// new content rather than a distinct HRESULT, but some call sites
	// (DWM-blocked presentation) surface DXGI_STATUS_OCCLUDED here.
	HResultOccluded HRESULT = 0x087A0009
)

// Op names the API call a Classify decision is scoped to, since the set of
// recoverable codes differs between DuplicateOutput and AcquireNextFrame.
type Op int

const (
	OpDuplicateOutput Op = iota
	OpAcquireNextFrame
)

var duplicateOutputRecoverable = map[HRESULT]bool{
	HResultDXGIErrorDeviceRemoved: true,
	HResultEAccessDenied:          true,
	HResultDXGIErrorUnsupported:   true,
	HResultDXGIErrorSessionDisc:   true,
}

var acquireFrameRecoverable = map[HRESULT]bool{
	HResultDXGIErrorDeviceRemoved: true,
	HResultDXGIErrorAccessLost:    true,
	HResultDXGIErrorInvalidCall:   true,
}

// Classify maps a raw HRESULT from the named operation into the taxonomy of
// spec §7. It never touches the GPU, so it is exercised directly by tests.
func Classify(op Op, hr HRESULT) Kind {
	if hr == HResultOK {
		return KindNone
	}
	if hr == HResultDXGIErrorWaitTimeout || hr == HResultWaitTimeoutOS || hr == HResultOccluded {
		return KindTransient
	}

	// Any device-removed-reason that resolves to device removed, device
	// reset, or out-of-memory is remapped to the canonical device-removed
	// recoverable kind.
	if hr == HResultDXGIErrorDeviceReset || hr == HResultEOutOfMemory {
		hr = HResultDXGIErrorDeviceRemoved
	}
	if hr == HResultWaitAbandoned {
		return KindRecoverable
	}

	var table map[HRESULT]bool
	switch op {
	case OpDuplicateOutput:
		table = duplicateOutputRecoverable
	case OpAcquireNextFrame:
		table = acquireFrameRecoverable
	}
	if table[hr] {
		return KindRecoverable
	}
	return KindFatal
}

// Error wraps a classified HRESULT so callers can both log the numeric code
// and branch on Kind without re-running Classify.
type Error struct {
	Op   Op
	HR   HRESULT
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("duplication: op=%d hresult=0x%08X kind=%s", e.Op, uint32(e.HR), e.Kind)
}

// NewError classifies hr for op and wraps it.
func NewError(op Op, hr HRESULT) *Error {
	return &Error{Op: op, HR: hr, Kind: Classify(op, hr)}
}
