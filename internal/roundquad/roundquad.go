// Package roundquad builds the closed outline of a quadrilateral whose
// corners are individually rounded. The same path clips warped banners
// and strokes the editor outlines.
package roundquad

import (
	"image"
	"math"

	"github.com/ivlev/adboard/internal/geometry"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter-circle approximation.
const kappa = 0.5522847498307936

// Op is a path verb.
type Op int

const (
	MoveTo Op = iota
	LineTo
	CubeTo
	Close
)

// Segment is one path command; Pts holds 1 point for MoveTo/LineTo and
// 3 points (c1, c2, end) for CubeTo.
type Segment struct {
	Op  Op
	Pts []geometry.Point
}

// Path is a closed rounded-quad outline.
type Path struct {
	Segments []Segment
}

// Sink receives path commands. *gg.Context satisfies it.
type Sink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
}

// ClampRadius limits r to half of the shorter edge adjacent to the corner.
func ClampRadius(q geometry.Quad, id geometry.CornerID) float64 {
	prev, next := neighbours(id)
	p := q.Corner(id).Point()
	limit := math.Min(
		geometry.Distance(p, q.Corner(prev).Point()),
		geometry.Distance(p, q.Corner(next).Point()),
	) / 2
	return math.Max(0, math.Min(q.Corner(id).Radius, limit))
}

func neighbours(id geometry.CornerID) (prev, next geometry.CornerID) {
	for i, c := range geometry.Ring {
		if c == id {
			return geometry.Ring[(i+3)%4], geometry.Ring[(i+1)%4]
		}
	}
	return id, id
}

// Build walks TL→TR→BR→BL. Each edge is inset by the clamped radii of its
// end corners and consecutive edges are joined by a cubic arc whose
// control points sit between the tangent points and the corner.
func Build(q geometry.Quad) *Path {
	type arc struct {
		in, corner, out geometry.Point
		r               float64
	}
	var arcs [4]arc
	for i, id := range geometry.Ring {
		prev, next := neighbours(id)
		c := q.Corner(id).Point()
		r := ClampRadius(q, id)
		arcs[i] = arc{
			in:     toward(c, q.Corner(prev).Point(), r),
			corner: c,
			out:    toward(c, q.Corner(next).Point(), r),
			r:      r,
		}
	}

	p := &Path{}
	p.add(MoveTo, arcs[0].out)
	for i := 1; i <= 4; i++ {
		a := arcs[i%4]
		p.add(LineTo, a.in)
		if a.r > 0 {
			c1 := a.in.Lerp(a.corner, kappa)
			c2 := a.out.Lerp(a.corner, kappa)
			p.add(CubeTo, c1, c2, a.out)
		}
	}
	p.Segments = append(p.Segments, Segment{Op: Close})
	return p
}

func toward(from, to geometry.Point, dist float64) geometry.Point {
	d := geometry.Distance(from, to)
	if d < geometry.Epsilon || dist <= 0 {
		return from
	}
	return from.Lerp(to, dist/d)
}

func (p *Path) add(op Op, pts ...geometry.Point) {
	p.Segments = append(p.Segments, Segment{Op: op, Pts: pts})
}

// Replay feeds the path into s, offset by (dx, dy).
func (p *Path) Replay(s Sink, dx, dy float64) {
	for _, seg := range p.Segments {
		switch seg.Op {
		case MoveTo:
			s.MoveTo(seg.Pts[0].X+dx, seg.Pts[0].Y+dy)
		case LineTo:
			s.LineTo(seg.Pts[0].X+dx, seg.Pts[0].Y+dy)
		case CubeTo:
			s.CubicTo(seg.Pts[0].X+dx, seg.Pts[0].Y+dy, seg.Pts[1].X+dx, seg.Pts[1].Y+dy, seg.Pts[2].X+dx, seg.Pts[2].Y+dy)
		case Close:
			s.ClosePath()
		}
	}
}

// Mask rasterises the filled path over r. Pixel (x, y) of the mask
// corresponds to frame pixel (x, y).
func (p *Path) Mask(r image.Rectangle) *image.Alpha {
	mask := image.NewAlpha(r)
	if r.Empty() {
		return mask
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Src
	p.Replay(rasterSink{z}, -float64(r.Min.X), -float64(r.Min.Y))
	z.Draw(mask, r, image.Opaque, image.Point{})
	return mask
}

type rasterSink struct{ z *vector.Rasterizer }

func (s rasterSink) MoveTo(x, y float64) { s.z.MoveTo(float32(x), float32(y)) }
func (s rasterSink) LineTo(x, y float64) { s.z.LineTo(float32(x), float32(y)) }
func (s rasterSink) ClosePath()          { s.z.ClosePath() }
func (s rasterSink) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	s.z.CubeTo(float32(c1x), float32(c1y), float32(c2x), float32(c2y), float32(x), float32(y))
}
