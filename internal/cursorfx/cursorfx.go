// Package cursorfx implements CursorState: the multi-output cursor-position
// ownership rule and the three pointer-shape decoders (color, monochrome,
// masked-color) a Pipeline composites on top of the shared surface.
package cursorfx

// ShapeKind mirrors DXGI_OUTDUPL_POINTER_SHAPE_TYPE.
type ShapeKind int

const (
	ShapeColor ShapeKind = iota + 1
	ShapeMonochrome
	ShapeMaskedColor
)

// Position is one cursor-position observation from a monitor's Frame.
type Position struct {
	X, Y       int32
	Visible    bool
	UpdateTime int64
	Output     int
}

// State tracks the single cursor shared across every monitor's Frame,
// applying the multi-output ownership rule of spec §4.4 and caching the
// most recently decoded shape.
type State struct {
	current Position
	hasPos  bool

	shape      Shape
	hasShape   bool
}

// UpdatePosition applies new iff one of the three ownership clauses holds,
// evaluated in order:
//
//  1. new.Visible is true, or
//  2. new.Output is the current owner, or
//  3. both the stored and new positions are visible, new.Output differs
//     from the current owner, and new.UpdateTime is strictly newer.
//
// Returns whether the update was applied.
func (s *State) UpdatePosition(new Position) bool {
	if !s.hasPos {
		s.current = new
		s.hasPos = true
		return true
	}

	apply := false
	switch {
	case new.Visible:
		apply = true
	case new.Output == s.current.Output:
		apply = true
	case s.current.Visible && new.Visible && new.Output != s.current.Output && new.UpdateTime > s.current.UpdateTime:
		apply = true
	}
	if apply {
		s.current = new
	}
	return apply
}

// Position returns the cursor's current owning position.
func (s *State) Position() Position { return s.current }

// SetShape records a newly decoded shape as the one to render. Callers must
// only call this when the frame's LastMouseUpdateTime is non-zero (spec
// §4.3 edge policy): a zero value means the shape is unchanged.
func (s *State) SetShape(shape Shape) {
	s.shape = shape
	s.hasShape = true
}

// Shape returns the most recently decoded shape and whether one has ever
// been set.
func (s *State) Shape() (Shape, bool) { return s.shape, s.hasShape }
