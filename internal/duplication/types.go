package duplication

// Rotation mirrors DXGI_MODE_ROTATION ordering: unspecified, identity, then
// the three clockwise rotations.
type Rotation int

const (
	RotationUnspecified Rotation = iota
	RotationIdentity
	Rotation90
	Rotation180
	Rotation270
)

// Rect is a RECT in virtual-desktop coordinates: left/top inclusive,
// right/bottom exclusive, matching Win32 RECT semantics.
type Rect struct {
	Left, Top, Right, Bottom int32
}

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }
func (r Rect) Empty() bool   { return r.Width() <= 0 || r.Height() <= 0 }

// Union returns the smallest Rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	out := r
	if o.Left < out.Left {
		out.Left = o.Left
	}
	if o.Top < out.Top {
		out.Top = o.Top
	}
	if o.Right > out.Right {
		out.Right = o.Right
	}
	if o.Bottom > out.Bottom {
		out.Bottom = o.Bottom
	}
	return out
}

// Point is a 2D integer coordinate, typically a MoveRect's source origin.
type Point struct {
	X, Y int32
}

// Monitor is an immutable snapshot of one attached output, re-enumerated on
// topology change. Identity for recovery purposes is (AdapterName,
// OutputName, OutputIndex) per spec §4.3.
type Monitor struct {
	AdapterName string
	OutputName  string
	OutputIndex int
	Name        string
	Rotation    Rotation
	Bounds      Rect
	// No output or adapter device handle is carried here, so this type
	// stays platform-independent and directly comparable in tests.
}

// SameIdentity reports whether m and o refer to the same physical output
// for the purposes of re-enumeration after a recoverable error. Monitors
// currently rotated are treated as unavailable for recovery per spec §4.3 —
// callers must additionally check Rotation is identity/unspecified.
func (m Monitor) SameIdentity(o Monitor) bool {
	return m.AdapterName == o.AdapterName && m.OutputName == o.OutputName && m.OutputIndex == o.OutputIndex
}

// AvailableForRecovery reports whether m can be the target of a recovery
// re-enumeration: only identity/unspecified rotations are accepted.
func (m Monitor) AvailableForRecovery() bool {
	return m.Rotation == RotationIdentity || m.Rotation == RotationUnspecified
}

// MoveRect is a notification that a source sub-region of the previous
// composite now lives at a destination sub-region.
type MoveRect struct {
	SourcePoint Point
	DestRect    Rect
}

// FrameInfo carries the duplication metadata surfaced alongside a Frame.
type FrameInfo struct {
	LastPresentTime        int64
	LastMouseUpdateTime    int64
	MousePosition          Point
	MouseVisible           bool
	PointerShapeBufferSize uint32
	TotalMetadataSize      uint32
}

// Frame is a snapshot of one acquired duplication frame. It is a value
// produced by a ScreenDuplicator and never stored past the tick that
// produced it (spec §9, cyclic-reference note): the texture handle and rect
// slices are only valid until the duplicator's ReleaseFrame is called.
type Frame struct {
	Captured      bool
	DesktopHandle uintptr // platform GPU texture handle; 0 unless Captured
	Info          FrameInfo
	MoveRects     []MoveRect
	DirtyRects    []Rect
	MonitorBounds Rect
	Rotation      Rotation
}

// decodeMetadata allocates zeroed move-rect and dirty-rect slices of the
// given counts, leaving a slice nil when its count is zero. It reads no
// buffer and shares no storage between the two slices; the Windows
// duplicator fills its rects from two separate buffers of its own.
func decodeMetadata(moveCount, dirtyCount uint32) (moves []MoveRect, dirties []Rect) {
	if moveCount > 0 {
		moves = make([]MoveRect, moveCount)
	}
	if dirtyCount > 0 {
		dirties = make([]Rect, dirtyCount)
	}
	return moves, dirties
}
