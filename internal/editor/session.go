package editor

import "github.com/ivlev/adboard/internal/geometry"

// Mode is the active edit mode. Modes are mutually exclusive.
type Mode int

const (
	ModeNone Mode = iota
	ModeRectangle
	ModePerspective
)

func (m Mode) String() string {
	switch m {
	case ModeRectangle:
		return "rectangle"
	case ModePerspective:
		return "perspective"
	}
	return "none"
}

// Drag is the pointer interaction in progress. Exactly one variant is
// active at a time; the interface is sealed.
type Drag interface {
	isDrag()
}

// NoDrag means the pointer is up.
type NoDrag struct{}

// CornerDrag moves one corner; the position is clamped to the margin.
type CornerDrag struct {
	Corner geometry.CornerID
}

// EdgeDrag translates both corners of an edge from their positions at
// pointer-down.
type EdgeDrag struct {
	Edge   geometry.Edge
	Start  geometry.Point
	Origin geometry.Quad
}

// RadiusDrag sets the rounding radius of a corner.
type RadiusDrag struct {
	Corner geometry.CornerID
}

// QuadDrag translates all four corners from their positions at pointer-down.
type QuadDrag struct {
	Start  geometry.Point
	Origin geometry.Quad
}

// RectResizeDrag resizes the selection with the opposite corner fixed.
type RectResizeDrag struct {
	Corner geometry.CornerID
	Anchor geometry.Point
}

// RectMoveDrag moves the whole selection.
type RectMoveDrag struct {
	Start  geometry.Point
	Origin geometry.Rect
}

// RectNewDrag draws a fresh selection from Anchor.
type RectNewDrag struct {
	Anchor geometry.Point
}

func (NoDrag) isDrag()         {}
func (CornerDrag) isDrag()     {}
func (EdgeDrag) isDrag()       {}
func (RadiusDrag) isDrag()     {}
func (QuadDrag) isDrag()       {}
func (RectResizeDrag) isDrag() {}
func (RectMoveDrag) isDrag()   {}
func (RectNewDrag) isDrag()    {}

// Session is the transient edit state: the scratch shape for one billboard
// and the current pointer interaction.
type Session struct {
	Mode        Mode
	BillboardID string
	Quad        geometry.Quad // perspective scratch
	Rect        geometry.Rect // rectangle scratch
	Drag        Drag
}

// Scratch returns the uncommitted quad as it should be previewed.
func (s *Session) Scratch() geometry.Quad {
	if s.Mode == ModeRectangle {
		r := s.Rect.Normalize()
		return geometry.Quad{
			TopLeft:     geometry.Corner{X: r.X, Y: r.Y},
			TopRight:    geometry.Corner{X: r.X + r.Width, Y: r.Y},
			BottomLeft:  geometry.Corner{X: r.X, Y: r.Y + r.Height},
			BottomRight: geometry.Corner{X: r.X + r.Width, Y: r.Y + r.Height},
		}
	}
	return s.Quad
}

// RadiusAnchor is the handle that sits AnchorOffset px from a corner toward
// the centroid. ok is false when the corner coincides with the centroid.
func RadiusAnchor(q geometry.Quad, id geometry.CornerID) (geometry.Point, bool) {
	c := q.Corner(id).Point()
	center := q.Centroid()
	d := geometry.Distance(c, center)
	if d < geometry.Epsilon {
		return c, false
	}
	return c.Lerp(center, AnchorOffset/d), true
}
