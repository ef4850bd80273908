//go:build windows

package duplication

import (
	"fmt"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/gpucore"
)

const (
	vtblOutputDuplGetDesc             = 7
	vtblOutputDuplAcquireNextFrame    = 8
	vtblOutputDuplGetFrameDirtyRects  = 9
	vtblOutputDuplGetFrameMoveRects   = 10
	vtblOutputDuplGetFramePointerShape = 11
	vtblOutputDuplReleaseFrame        = 14

	vtblAdapterEnumOutputs = 7
	vtblOutputDuplicate    = 22 // IDXGIOutput1::DuplicateOutput
)

type point32 struct{ X, Y int32 }

type win32Rect struct{ Left, Top, Right, Bottom int32 }

type dxgiOutDuplPointerPosition struct {
	Position point32
	Visible  int32
}

type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPosition           dxgiOutDuplPointerPosition
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

type dxgiModeDesc struct {
	Width, Height      uint32
	RefreshRateNum     uint32
	RefreshRateDenom   uint32
	Format             uint32
	ScanlineOrdering   uint32
	Scaling            uint32
}

type dxgiOutDuplDesc struct {
	ModeDesc                  dxgiModeDesc
	Rotation                  uint32
	DesktopImageInSystemMemory int32
}

type dxgiOutDuplMoveRect struct {
	SourcePoint point32
	DestRect    win32Rect
}

// PointerShapeType mirrors DXGI_OUTDUPL_POINTER_SHAPE_TYPE.
type PointerShapeType uint32

const (
	PointerShapeMonochrome PointerShapeType = 1
	PointerShapeColor      PointerShapeType = 2
	PointerShapeMaskedColor PointerShapeType = 4
)

type dxgiOutDuplPointerShapeInfo struct {
	Type    uint32
	Width   uint32
	Height  uint32
	Pitch   uint32
	HotSpot point32
}

// Duplicator wraps one IDXGIOutputDuplication and the device/context pair
// it was created against, implementing the ScreenDuplicator state machine
// from spec §4.3.
type Duplicator struct {
	monitor Monitor
	device  uintptr
	context uintptr
	dup     uintptr

	state           State
	moveRectBuf     []byte
	dirtyRectBuf    []byte
	pointerShapeBuf []byte

	held        bool
	heldResource uintptr
}

// State is ScreenDuplicator's lifecycle state, per spec §4.3's diagram.
type State int

const (
	StateNew State = iota
	StateReady
	StateFrameHeld
	StateRecovering
	StateFailed
)

// NewDuplicator creates an IDXGIOutputDuplication for monitor on device,
// entering StateReady on success.
func NewDuplicator(device, context uintptr, monitor Monitor) (*Duplicator, error) {
	dup, err := duplicateOutput(device, monitor.OutputIndex)
	if err != nil {
		if herr, ok := err.(*hresultError); ok {
			return nil, NewError(OpDuplicateOutput, herr.hr)
		}
		return nil, err
	}
	return &Duplicator{
		monitor: monitor,
		device:  device,
		context: context,
		dup:     dup,
		state:   StateReady,
	}, nil
}

// Close releases the duplication interface and any frame still held.
func (d *Duplicator) Close() {
	d.releaseHeldFrame()
	gpucore.Release(d.dup)
	d.dup = 0
}

// AcquireFrame acquires the next frame with a 1ms timeout, per spec §4.3.
// A timeout is reported as Frame{Captured:false} with a nil error, not as
// an error — the caller's tick should simply retry next cycle.
func (d *Duplicator) AcquireFrame() (Frame, error) {
	if d.state == StateFrameHeld {
		return Frame{}, fmt.Errorf("duplication: AcquireFrame called while a frame is still held")
	}

	var info dxgiOutDuplFrameInfo
	var resource uintptr
	ret, err := gpucore.Call(d.dup, vtblOutputDuplAcquireNextFrame,
		1, uintptr(unsafe.Pointer(&info)), uintptr(unsafe.Pointer(&resource)))
	if err != nil {
		hr := HRESULT(uint32(ret))
		kind := Classify(OpAcquireNextFrame, hr)
		if kind == KindTransient {
			return Frame{}, nil
		}
		if kind == KindRecoverable {
			d.state = StateRecovering
		} else {
			d.state = StateFailed
		}
		return Frame{}, NewError(OpAcquireNextFrame, hr)
	}

	d.held = true
	d.heldResource = resource
	d.state = StateFrameHeld

	tex, qerr := gpucore.QueryInterface(resource, &gpucore.IIDID3D11Texture2D)
	if qerr != nil {
		d.releaseHeldFrame()
		d.state = StateFailed
		return Frame{}, fmt.Errorf("QueryInterface ID3D11Texture2D on acquired frame: %w", qerr)
	}
	defer gpucore.Release(tex)

	frame := Frame{
		Captured:      true,
		DesktopHandle: tex,
		MonitorBounds: d.monitor.Bounds,
		Rotation:      d.monitor.Rotation,
		Info: FrameInfo{
			LastPresentTime:        info.LastPresentTime,
			LastMouseUpdateTime:    info.LastMouseUpdateTime,
			MousePosition:          Point{X: info.PointerPosition.Position.X, Y: info.PointerPosition.Position.Y},
			MouseVisible:           info.PointerPosition.Visible != 0,
			PointerShapeBufferSize: info.PointerShapeBufferSize,
			TotalMetadataSize:      info.TotalMetadataBufferSize,
		},
	}

	if info.TotalMetadataBufferSize > 0 {
		moves, dirties, merr := d.readMetadata(info.TotalMetadataBufferSize)
		if merr != nil {
			d.releaseHeldFrame()
			d.state = StateFailed
			return Frame{}, merr
		}
		frame.MoveRects = moves
		frame.DirtyRects = dirties
	}

	return frame, nil
}

// Reset implements spec §4.3's `[Recovering] -- reset() --> [Ready]`
// transition: it disposes of the current duplication interface and
// re-acquires it by re-enumerating monitors, matching the failed monitor's
// identity per Monitor.SameIdentity and rejecting a match that has since
// rotated away (Monitor.AvailableForRecovery) — the same rule spec §4.3
// states for the recoverable-error path. Callers should only invoke this
// while State() reports StateRecovering; on success the Duplicator returns
// to StateReady with the re-resolved Monitor, on failure it moves to
// StateFailed and the error is Fatal for the caller.
func (d *Duplicator) Reset(candidates []Monitor) error {
	var next Monitor
	found := false
	for _, c := range candidates {
		if d.monitor.SameIdentity(c) && c.AvailableForRecovery() {
			next, found = c, true
			break
		}
	}
	if !found {
		d.state = StateFailed
		return fmt.Errorf("duplication: monitor %s (output %d) not available for recovery", d.monitor.OutputName, d.monitor.OutputIndex)
	}

	if d.dup != 0 {
		gpucore.Release(d.dup)
		d.dup = 0
	}
	dup, err := duplicateOutput(d.device, next.OutputIndex)
	if err != nil {
		d.state = StateFailed
		if herr, ok := err.(*hresultError); ok {
			return NewError(OpDuplicateOutput, herr.hr)
		}
		return err
	}
	d.dup = dup
	d.monitor = next
	d.state = StateReady
	return nil
}

// State reports the Duplicator's current lifecycle state.
func (d *Duplicator) State() State { return d.state }

// Monitor returns the monitor this Duplicator is currently bound to — the
// re-resolved one after a Reset, if any.
func (d *Duplicator) Monitor() Monitor { return d.monitor }

// ReleaseFrame releases the currently held frame and returns to StateReady.
func (d *Duplicator) ReleaseFrame() error {
	return d.releaseAndTransition(StateReady)
}

func (d *Duplicator) releaseAndTransition(next State) error {
	if !d.held {
		return nil
	}
	_, err := gpucore.Call(d.dup, vtblOutputDuplReleaseFrame)
	d.releaseHeldFrame()
	if err != nil {
		d.state = StateFailed
		return err
	}
	d.state = next
	return nil
}

func (d *Duplicator) releaseHeldFrame() {
	if d.heldResource != 0 {
		gpucore.Release(d.heldResource)
		d.heldResource = 0
	}
	d.held = false
}

func (d *Duplicator) readMetadata(totalSize uint32) ([]MoveRect, []Rect, error) {
	if cap(d.moveRectBuf) < int(totalSize) {
		d.moveRectBuf = make([]byte, totalSize)
	}
	var moveSizeNeeded uint32
	_, err := gpucore.Call(d.dup, vtblOutputDuplGetFrameMoveRects,
		uintptr(len(d.moveRectBuf)), uintptr(unsafe.Pointer(&d.moveRectBuf[0])), uintptr(unsafe.Pointer(&moveSizeNeeded)))
	if err != nil {
		return nil, nil, fmt.Errorf("GetFrameMoveRects: %w", err)
	}
	moveCount := int(moveSizeNeeded) / int(unsafe.Sizeof(dxgiOutDuplMoveRect{}))
	moves := make([]MoveRect, moveCount)
	rawMoves := unsafe.Slice((*dxgiOutDuplMoveRect)(unsafe.Pointer(&d.moveRectBuf[0])), moveCount)
	for i, m := range rawMoves {
		moves[i] = MoveRect{
			SourcePoint: Point{X: m.SourcePoint.X, Y: m.SourcePoint.Y},
			DestRect:    Rect{Left: m.DestRect.Left, Top: m.DestRect.Top, Right: m.DestRect.Right, Bottom: m.DestRect.Bottom},
		}
	}

	if cap(d.dirtyRectBuf) < int(totalSize) {
		d.dirtyRectBuf = make([]byte, totalSize)
	}
	var dirtySizeNeeded uint32
	_, err = gpucore.Call(d.dup, vtblOutputDuplGetFrameDirtyRects,
		uintptr(len(d.dirtyRectBuf)), uintptr(unsafe.Pointer(&d.dirtyRectBuf[0])), uintptr(unsafe.Pointer(&dirtySizeNeeded)))
	if err != nil {
		return nil, nil, fmt.Errorf("GetFrameDirtyRects: %w", err)
	}
	dirtyCount := int(dirtySizeNeeded) / int(unsafe.Sizeof(win32Rect{}))
	dirties := make([]Rect, dirtyCount)
	rawDirty := unsafe.Slice((*win32Rect)(unsafe.Pointer(&d.dirtyRectBuf[0])), dirtyCount)
	for i, r := range rawDirty {
		dirties[i] = Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
	}

	return moves, dirties, nil
}

// PointerShape is the raw decoded bitmap GetFramePointerShape returned; the
// actual AND/XOR/color interpretation lives in internal/cursorfx.
type PointerShape struct {
	Type    PointerShapeType
	Width   uint32
	Height  uint32
	Pitch   uint32
	HotSpot Point
	Pixels  []byte
}

// ReadPointerShape fetches the new cursor shape bitmap. Callers must only
// invoke this when FrameInfo.LastMouseUpdateTime is non-zero for the
// current frame (spec §4.4): a zero value means the shape is unchanged and
// this call would needlessly allocate and copy.
func (d *Duplicator) ReadPointerShape(bufferSize uint32) (PointerShape, error) {
	if cap(d.pointerShapeBuf) < int(bufferSize) {
		d.pointerShapeBuf = make([]byte, bufferSize)
	}
	var info dxgiOutDuplPointerShapeInfo
	var sizeNeeded uint32
	_, err := gpucore.Call(d.dup, vtblOutputDuplGetFramePointerShape,
		uintptr(len(d.pointerShapeBuf)), uintptr(unsafe.Pointer(&d.pointerShapeBuf[0])),
		uintptr(unsafe.Pointer(&sizeNeeded)), uintptr(unsafe.Pointer(&info)))
	if err != nil {
		return PointerShape{}, fmt.Errorf("GetFramePointerShape: %w", err)
	}
	pixels := make([]byte, sizeNeeded)
	copy(pixels, d.pointerShapeBuf[:sizeNeeded])
	return PointerShape{
		Type:    PointerShapeType(info.Type),
		Width:   info.Width,
		Height:  info.Height,
		Pitch:   info.Pitch,
		HotSpot: Point{X: info.HotSpot.X, Y: info.HotSpot.Y},
		Pixels:  pixels,
	}, nil
}

type hresultError struct {
	hr  HRESULT
	msg string
}

func (e *hresultError) Error() string { return e.msg }

func duplicateOutput(device uintptr, outputIndex int) (uintptr, error) {
	dxgiDevice, err := gpucore.QueryInterface(device, &gpucore.IIDIDXGIDevice)
	if err != nil {
		return 0, &hresultError{hr: HResultDXGIErrorUnsupported, msg: err.Error()}
	}
	defer gpucore.Release(dxgiDevice)

	var adapter uintptr
	if _, err := gpucore.Call(dxgiDevice, 7 /* IDXGIDevice::GetAdapter */, uintptr(unsafe.Pointer(&adapter))); err != nil {
		return 0, &hresultError{hr: HResultDXGIErrorUnsupported, msg: err.Error()}
	}
	defer gpucore.Release(adapter)

	var output uintptr
	ret, err := gpucore.Call(adapter, vtblAdapterEnumOutputs, uintptr(outputIndex), uintptr(unsafe.Pointer(&output)))
	if err != nil {
		return 0, &hresultError{hr: HRESULT(uint32(ret)), msg: err.Error()}
	}
	defer gpucore.Release(output)

	output1, err := gpucore.QueryInterface(output, &gpucore.IIDIDXGIOutput1)
	if err != nil {
		return 0, &hresultError{hr: HResultDXGIErrorUnsupported, msg: err.Error()}
	}
	defer gpucore.Release(output1)

	var dup uintptr
	ret, err = gpucore.Call(output1, vtblOutputDuplicate, device, uintptr(unsafe.Pointer(&dup)))
	if err != nil {
		return 0, &hresultError{hr: HRESULT(uint32(ret)), msg: err.Error()}
	}
	return dup, nil
}
