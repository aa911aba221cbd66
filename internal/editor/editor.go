// Package editor is the interactive billboard edit state machine:
// Idle ⇄ RectangleSelect and Idle ⇄ PerspectiveEdit, with pointer
// interactions resolved by hit-testing.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/scene"
)

// Interaction constants, in canvas pixels.
const (
	Margin          = 10.0
	CornerHitRadius = 15.0
	AnchorHitRadius = 15.0
	EdgeHitRadius   = 10.0
	AnchorOffset    = 25.0
	RadiusOffset    = 10.0
	MaxRadius       = 50.0
	MinRectSize     = 10.0
)

var (
	// ErrNoBillboard is returned when an edit mode starts on an empty scene.
	ErrNoBillboard = errors.New("editor: no billboard to edit")
	// ErrNoSession is returned by Confirm without an active session.
	ErrNoSession = errors.New("editor: no active edit session")
	// ErrOutOfBounds marks a rejected move that would leave the margin.
	ErrOutOfBounds = errors.New("editor: move leaves the canvas")
)

// Viewport converts pointer positions from the displayed size of the
// canvas to canvas pixels.
type Viewport struct {
	CanvasWidth, CanvasHeight   float64
	DisplayWidth, DisplayHeight float64
}

// ToCanvas scales p by canvas/display per axis. A zero display size is
// treated as 1:1.
func (v Viewport) ToCanvas(p geometry.Point) geometry.Point {
	if v.DisplayWidth > 0 && v.CanvasWidth > 0 {
		p.X *= v.CanvasWidth / v.DisplayWidth
	}
	if v.DisplayHeight > 0 && v.CanvasHeight > 0 {
		p.Y *= v.CanvasHeight / v.DisplayHeight
	}
	return p
}

// ModeListener is notified on every mode change.
type ModeListener func(prev, next Mode)

// Editor owns the active Session for a scene.
type Editor struct {
	mu        sync.Mutex
	scene     *scene.Scene
	session   *Session
	viewport  Viewport
	margin    float64
	logger    *slog.Logger
	listeners []ModeListener
}

// New creates an idle editor. A nil logger discards output.
func New(sc *scene.Scene, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Editor{
		scene:  sc,
		margin: Margin,
		logger: logger,
		viewport: Viewport{
			CanvasWidth: float64(sc.Width), CanvasHeight: float64(sc.Height),
		},
	}
}

// SetViewport sets the displayed size used for pointer conversion.
func (e *Editor) SetViewport(displayWidth, displayHeight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.DisplayWidth, e.viewport.DisplayHeight = displayWidth, displayHeight
}

// SetMargin overrides the bounds margin.
func (e *Editor) SetMargin(m float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.margin = m
}

// AddListener registers a mode change callback.
func (e *Editor) AddListener(l ModeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Mode returns the current mode.
func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ModeNone
	}
	return e.session.Mode
}

// Session returns a copy of the active session.
func (e *Editor) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// ScratchQuad returns the live quad when id is being edited.
func (e *Editor) ScratchQuad(id string) (geometry.Quad, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.session.BillboardID != id {
		return geometry.Quad{}, false
	}
	return e.session.Scratch(), true
}

// Begin enters mode for billboard id (the selected one when id is empty).
// An active session in another mode is cancelled first.
func (e *Editor) Begin(mode Mode, id string) error {
	if mode == ModeNone {
		e.Cancel()
		return nil
	}
	if e.scene.Len() == 0 {
		return ErrNoBillboard
	}
	if id == "" {
		id = e.scene.Selected()
	}
	bb, ok := e.scene.Billboard(id)
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrUnknownBillboard, id)
	}
	if err := e.scene.Select(id); err != nil {
		return err
	}

	s := &Session{Mode: mode, BillboardID: id, Drag: NoDrag{}}
	switch mode {
	case ModeRectangle:
		s.Rect = bb.Bounds
		if s.Rect.Width <= 0 || s.Rect.Height <= 0 {
			s.Rect = e.defaultQuad().Bounds()
		}
	case ModePerspective:
		s.Quad = bb.Perspective
		if s.Quad.Validate() != nil {
			s.Quad = e.defaultQuad()
		}
	}

	e.mu.Lock()
	prev := ModeNone
	if e.session != nil {
		prev = e.session.Mode
	}
	e.session = s
	listeners := append([]ModeListener(nil), e.listeners...)
	e.mu.Unlock()

	e.logger.Debug("edit session started", "mode", mode, "billboard", id)
	notify(listeners, prev, mode)
	return nil
}

// defaultQuad is a centred min(300, 0.4W) × min(400, 0.5H) quad.
func (e *Editor) defaultQuad() geometry.Quad {
	w, h := float64(e.scene.Width), float64(e.scene.Height)
	qw := math.Min(300, w*0.4)
	qh := math.Min(400, h*0.5)
	return geometry.Rect{X: (w - qw) / 2, Y: (h - qh) / 2, Width: qw, Height: qh}.Quad()
}

// Cancel discards the scratch shape and returns to idle.
func (e *Editor) Cancel() {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return
	}
	prev := e.session.Mode
	e.session = nil
	listeners := append([]ModeListener(nil), e.listeners...)
	e.mu.Unlock()

	e.logger.Debug("edit session cancelled", "mode", prev)
	notify(listeners, prev, ModeNone)
}

// Confirm commits the scratch shape into the billboard and returns to
// idle. Rectangles become axis-aligned quads; perspective quads have their
// coordinates and radii rounded.
func (e *Editor) Confirm() (geometry.Quad, error) {
	e.mu.Lock()
	s := e.session
	if s == nil {
		e.mu.Unlock()
		return geometry.Quad{}, ErrNoSession
	}
	var q geometry.Quad
	if s.Mode == ModeRectangle {
		q = s.Rect.Normalize().Quad()
	} else {
		q = s.Quad.Round()
	}
	e.session = nil
	listeners := append([]ModeListener(nil), e.listeners...)
	e.mu.Unlock()

	if err := e.scene.Commit(s.BillboardID, q); err != nil {
		return geometry.Quad{}, err
	}
	e.logger.Info("billboard updated", "billboard", s.BillboardID, "mode", s.Mode)
	notify(listeners, s.Mode, ModeNone)
	return q, nil
}

func notify(listeners []ModeListener, prev, next Mode) {
	if prev == next {
		return
	}
	for _, l := range listeners {
		l(prev, next)
	}
}

// PointerDown starts an interaction at a display-space position.
func (e *Editor) PointerDown(display geometry.Point) Drag {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return NoDrag{}
	}
	p := e.viewport.ToCanvas(display)
	switch e.session.Mode {
	case ModePerspective:
		e.session.Drag = hitPerspective(e.session.Quad, p)
	case ModeRectangle:
		e.session.Drag = e.hitRectangle(p)
	}
	return e.session.Drag
}

// hitPerspective resolves the interaction by priority:
// radius anchor > corner > edge > interior.
func hitPerspective(q geometry.Quad, p geometry.Point) Drag {
	order := []geometry.CornerID{geometry.TopLeft, geometry.TopRight, geometry.BottomLeft, geometry.BottomRight}
	for _, id := range order {
		if a, ok := RadiusAnchor(q, id); ok && geometry.Distance(p, a) <= AnchorHitRadius {
			return RadiusDrag{Corner: id}
		}
	}
	for _, id := range order {
		if geometry.Distance(p, q.Corner(id).Point()) <= CornerHitRadius {
			return CornerDrag{Corner: id}
		}
	}
	if edge := q.NearestEdge(p, EdgeHitRadius); edge != geometry.EdgeNone {
		return EdgeDrag{Edge: edge, Start: p, Origin: q}
	}
	if q.Contains(p) {
		return QuadDrag{Start: p, Origin: q}
	}
	return NoDrag{}
}

func (e *Editor) hitRectangle(p geometry.Point) Drag {
	r := e.session.Rect.Normalize()
	e.session.Rect = r
	corners := map[geometry.CornerID]geometry.Point{
		geometry.TopLeft:     {X: r.X, Y: r.Y},
		geometry.TopRight:    {X: r.X + r.Width, Y: r.Y},
		geometry.BottomLeft:  {X: r.X, Y: r.Y + r.Height},
		geometry.BottomRight: {X: r.X + r.Width, Y: r.Y + r.Height},
	}
	opposite := map[geometry.CornerID]geometry.CornerID{
		geometry.TopLeft:     geometry.BottomRight,
		geometry.TopRight:    geometry.BottomLeft,
		geometry.BottomLeft:  geometry.TopRight,
		geometry.BottomRight: geometry.TopLeft,
	}
	for _, id := range []geometry.CornerID{geometry.TopLeft, geometry.TopRight, geometry.BottomLeft, geometry.BottomRight} {
		if geometry.Distance(p, corners[id]) <= CornerHitRadius {
			return RectResizeDrag{Corner: id, Anchor: corners[opposite[id]]}
		}
	}
	if r.Contains(p) {
		return RectMoveDrag{Start: p, Origin: r}
	}
	anchor := geometry.Clamp(p, e.canvasW(), e.canvasH(), e.margin)
	e.session.Rect = geometry.Rect{X: anchor.X, Y: anchor.Y}
	return RectNewDrag{Anchor: anchor}
}

// PointerMove applies the active interaction. It reports whether the
// scratch shape changed; rejected moves leave it untouched.
func (e *Editor) PointerMove(display geometry.Point) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	p := e.viewport.ToCanvas(display)
	w, h := e.canvasW(), e.canvasH()
	s := e.session

	switch d := s.Drag.(type) {
	case CornerDrag:
		c := s.Quad.Corner(d.Corner)
		cp := geometry.Clamp(p, w, h, e.margin)
		c.X, c.Y = cp.X, cp.Y
		s.Quad = s.Quad.WithCorner(d.Corner, c)
	case RadiusDrag:
		c := s.Quad.Corner(d.Corner)
		c.Radius = math.Min(MaxRadius, math.Max(0, geometry.Distance(p, c.Point())-RadiusOffset))
		s.Quad = s.Quad.WithCorner(d.Corner, c)
	case EdgeDrag:
		q, err := MoveEdge(d.Origin, d.Edge, p.X-d.Start.X, p.Y-d.Start.Y, w, h, e.margin)
		if err != nil {
			return false
		}
		s.Quad = q
	case QuadDrag:
		q, err := MoveQuad(d.Origin, p.X-d.Start.X, p.Y-d.Start.Y, w, h, e.margin)
		if err != nil {
			return false
		}
		s.Quad = q
	case RectResizeDrag:
		s.Rect = resizeRect(d, geometry.Clamp(p, w, h, e.margin))
	case RectMoveDrag:
		r := d.Origin
		r.X += p.X - d.Start.X
		r.Y += p.Y - d.Start.Y
		if !geometry.InBounds(geometry.Point{X: r.X, Y: r.Y}, w, h, e.margin) ||
			!geometry.InBounds(geometry.Point{X: r.X + r.Width, Y: r.Y + r.Height}, w, h, e.margin) {
			return false
		}
		s.Rect = r
	case RectNewDrag:
		c := geometry.Clamp(p, w, h, e.margin)
		s.Rect = geometry.Rect{X: d.Anchor.X, Y: d.Anchor.Y, Width: c.X - d.Anchor.X, Height: c.Y - d.Anchor.Y}
	default:
		return false
	}
	return true
}

// PointerUp ends the interaction; rectangle extents are normalised.
func (e *Editor) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	e.session.Drag = NoDrag{}
	if e.session.Mode == ModeRectangle {
		e.session.Rect = e.session.Rect.Normalize()
	}
}

func (e *Editor) canvasW() float64 { return float64(e.scene.Width) }
func (e *Editor) canvasH() float64 { return float64(e.scene.Height) }

// MoveQuad translates q, rejecting the move when any corner would leave
// [margin, size-margin].
func MoveQuad(q geometry.Quad, dx, dy, w, h, margin float64) (geometry.Quad, error) {
	moved := q.Translate(dx, dy)
	if !moved.Within(w, h, margin) {
		return q, ErrOutOfBounds
	}
	return moved, nil
}

// MoveEdge translates the two corners of edge, with the same rejection rule.
func MoveEdge(q geometry.Quad, edge geometry.Edge, dx, dy, w, h, margin float64) (geometry.Quad, error) {
	a, b := edge.Corners()
	if a < 0 {
		return q, nil
	}
	moved := q
	for _, id := range []geometry.CornerID{a, b} {
		c := q.Corner(id)
		c.X += dx
		c.Y += dy
		moved = moved.WithCorner(id, c)
	}
	if !moved.Within(w, h, margin) {
		return q, ErrOutOfBounds
	}
	return moved, nil
}

// resizeRect keeps the anchor fixed and keeps at least MinRectSize on each
// axis on the dragged corner's side.
func resizeRect(d RectResizeDrag, c geometry.Point) geometry.Rect {
	switch d.Corner {
	case geometry.TopLeft, geometry.BottomLeft:
		c.X = math.Min(c.X, d.Anchor.X-MinRectSize)
	default:
		c.X = math.Max(c.X, d.Anchor.X+MinRectSize)
	}
	switch d.Corner {
	case geometry.TopLeft, geometry.TopRight:
		c.Y = math.Min(c.Y, d.Anchor.Y-MinRectSize)
	default:
		c.Y = math.Max(c.Y, d.Anchor.Y+MinRectSize)
	}
	return geometry.Rect{X: d.Anchor.X, Y: d.Anchor.Y, Width: c.X - d.Anchor.X, Height: c.Y - d.Anchor.Y}.Normalize()
}
