// Package geometry holds the pure quadrilateral math used by the warper,
// the clip builder and the editor hit-testing.
package geometry

import (
	"errors"
	"math"
)

// ErrDegenerate is reported when a quad or a cell has (near) zero area.
var ErrDegenerate = errors.New("geometry: degenerate quadrilateral")

// Epsilon below which lengths and areas are treated as zero.
const Epsilon = 1e-6

// Point is a coordinate in destination-frame pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Corner is a quad vertex with its rounding radius (0 = sharp).
type Corner struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius" yaml:"radius"`
}

func (c Corner) Point() Point { return Point{c.X, c.Y} }

// CornerID names one of the four quad vertices.
type CornerID int

const (
	TopLeft CornerID = iota
	TopRight
	BottomRight
	BottomLeft
)

// Ring lists the vertices in boundary order TL→TR→BR→BL.
var Ring = [4]CornerID{TopLeft, TopRight, BottomRight, BottomLeft}

func (id CornerID) String() string {
	switch id {
	case TopLeft:
		return "topLeft"
	case TopRight:
		return "topRight"
	case BottomRight:
		return "bottomRight"
	case BottomLeft:
		return "bottomLeft"
	}
	return "unknown"
}

// Edge names one side of a quad.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeTop
	EdgeRight
	EdgeBottom
	EdgeLeft
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeRight:
		return "right"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	}
	return "none"
}

// Corners returns the two vertices an edge connects.
func (e Edge) Corners() (CornerID, CornerID) {
	switch e {
	case EdgeTop:
		return TopLeft, TopRight
	case EdgeRight:
		return TopRight, BottomRight
	case EdgeBottom:
		return BottomRight, BottomLeft
	case EdgeLeft:
		return BottomLeft, TopLeft
	}
	return -1, -1
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Normalize flips negative extents so Width and Height are >= 0.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Quad returns the axis-aligned quadrilateral with integer-rounded coordinates.
func (r Rect) Quad() Quad {
	r = r.Normalize()
	x0, y0 := math.Round(r.X), math.Round(r.Y)
	x1, y1 := math.Round(r.X+r.Width), math.Round(r.Y+r.Height)
	return Quad{
		TopLeft:     Corner{X: x0, Y: y0},
		TopRight:    Corner{X: x1, Y: y0},
		BottomLeft:  Corner{X: x0, Y: y1},
		BottomRight: Corner{X: x1, Y: y1},
	}
}

// Quad is a billboard region; no convexity is enforced.
type Quad struct {
	TopLeft     Corner `json:"topLeft" yaml:"topLeft"`
	TopRight    Corner `json:"topRight" yaml:"topRight"`
	BottomLeft  Corner `json:"bottomLeft" yaml:"bottomLeft"`
	BottomRight Corner `json:"bottomRight" yaml:"bottomRight"`
}

// Corner returns the vertex named by id.
func (q Quad) Corner(id CornerID) Corner {
	switch id {
	case TopRight:
		return q.TopRight
	case BottomRight:
		return q.BottomRight
	case BottomLeft:
		return q.BottomLeft
	}
	return q.TopLeft
}

// WithCorner returns a copy of q with vertex id replaced.
func (q Quad) WithCorner(id CornerID, c Corner) Quad {
	switch id {
	case TopLeft:
		q.TopLeft = c
	case TopRight:
		q.TopRight = c
	case BottomRight:
		q.BottomRight = c
	case BottomLeft:
		q.BottomLeft = c
	}
	return q
}

// Points returns the vertices in ring order.
func (q Quad) Points() [4]Point {
	return [4]Point{q.TopLeft.Point(), q.TopRight.Point(), q.BottomRight.Point(), q.BottomLeft.Point()}
}

// Interpolate maps (u,v) in the unit square onto q bilinearly:
// u runs along the top and bottom edges, v between them.
func (q Quad) Interpolate(u, v float64) Point {
	top := q.TopLeft.Point().Lerp(q.TopRight.Point(), u)
	bottom := q.BottomLeft.Point().Lerp(q.BottomRight.Point(), u)
	return top.Lerp(bottom, v)
}

// Contains reports whether p lies inside q using ray casting over the ring.
// Points on the left/top boundary count as inside, right/bottom as outside.
func (q Quad) Contains(p Point) bool {
	pts := q.Points()
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xint := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xint {
				inside = !inside
			}
		}
	}
	return inside
}

// DistanceToSegment returns the distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq < Epsilon*Epsilon {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point{a.X + t*dx, a.Y + t*dy})
}

// NearestEdge returns the first edge (top, right, bottom, left) within
// threshold of p, or EdgeNone.
func (q Quad) NearestEdge(p Point, threshold float64) Edge {
	for _, e := range []Edge{EdgeTop, EdgeRight, EdgeBottom, EdgeLeft} {
		a, b := e.Corners()
		if DistanceToSegment(p, q.Corner(a).Point(), q.Corner(b).Point()) <= threshold {
			return e
		}
	}
	return EdgeNone
}

// AverageSize returns the mean of the top/bottom lengths and of the
// left/right lengths.
func (q Quad) AverageSize() (w, h float64) {
	top := Distance(q.TopLeft.Point(), q.TopRight.Point())
	bottom := Distance(q.BottomLeft.Point(), q.BottomRight.Point())
	left := Distance(q.TopLeft.Point(), q.BottomLeft.Point())
	right := Distance(q.TopRight.Point(), q.BottomRight.Point())
	return (top + bottom) / 2, (left + right) / 2
}

// Aspect is the average width over the average height, 0 when degenerate.
func (q Quad) Aspect() float64 {
	w, h := q.AverageSize()
	if h < Epsilon {
		return 0
	}
	return w / h
}

// Centroid is the vertex average.
func (q Quad) Centroid() Point {
	var c Point
	for _, p := range q.Points() {
		c = c.Add(p)
	}
	return c.Scale(0.25)
}

// Area is the absolute shoelace area over the ring.
func (q Quad) Area() float64 {
	pts := q.Points()
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(s) / 2
}

// Validate returns ErrDegenerate for zero-area quads.
func (q Quad) Validate() error {
	if q.Area() < Epsilon {
		return ErrDegenerate
	}
	for _, p := range q.Points() {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return ErrDegenerate
		}
	}
	return nil
}

// TopAngle is the angle of the top edge in radians.
func (q Quad) TopAngle() float64 {
	return math.Atan2(q.TopRight.Y-q.TopLeft.Y, q.TopRight.X-q.TopLeft.X)
}

// Bounds is the min/max extent over all four corners.
func (q Quad) Bounds() Rect {
	pts := q.Points()
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Translate moves all corners by (dx, dy), keeping radii.
func (q Quad) Translate(dx, dy float64) Quad {
	for _, id := range Ring {
		c := q.Corner(id)
		c.X += dx
		c.Y += dy
		q = q.WithCorner(id, c)
	}
	return q
}

// Round rounds coordinates and radii to integers.
func (q Quad) Round() Quad {
	for _, id := range Ring {
		c := q.Corner(id)
		q = q.WithCorner(id, Corner{X: math.Round(c.X), Y: math.Round(c.Y), Radius: math.Round(c.Radius)})
	}
	return q
}

// Within reports whether every corner lies in [margin, size-margin].
func (q Quad) Within(width, height, margin float64) bool {
	for _, p := range q.Points() {
		if !InBounds(p, width, height, margin) {
			return false
		}
	}
	return true
}

// InBounds reports whether p lies in [margin, size-margin] on both axes.
func InBounds(p Point, width, height, margin float64) bool {
	return p.X >= margin && p.X <= width-margin && p.Y >= margin && p.Y <= height-margin
}

// Clamp pulls p into [margin, size-margin] on both axes.
func Clamp(p Point, width, height, margin float64) Point {
	return Point{
		X: math.Max(margin, math.Min(width-margin, p.X)),
		Y: math.Max(margin, math.Min(height-margin, p.Y)),
	}
}
