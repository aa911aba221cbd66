// Package warp renders a texture into an arbitrary quadrilateral with a
// piecewise-affine mesh: the unit square is cut into Grid×Grid cells and
// every cell is drawn through its own affine transform.
package warp

import (
	"image"
	"math"

	"github.com/ivlev/adboard/internal/geometry"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultGrid is the mesh resolution used when Grid is unset.
const DefaultGrid = 50

// Warper draws textures through a Grid×Grid mesh.
type Warper struct {
	Grid   int
	Kernel draw.Transformer
}

// New returns a Warper with the given grid and bilinear smoothing.
func New(grid int) *Warper {
	return &Warper{Grid: grid, Kernel: draw.BiLinear}
}

// Cell is one mesh cell: the source sub-rectangle in texture pixels and
// the destination corners it maps to.
type Cell struct {
	Row, Col int

	SrcX, SrcY, SrcW, SrcH float64

	TopLeft, TopRight, BottomLeft, BottomRight geometry.Point
}

// Cells cuts q into the mesh for a texW×texH texture. Each cell boundary
// is pushed outwards by 0.5/grid (clamped to the unit square) so adjacent
// cells overlap.
func Cells(q geometry.Quad, texW, texH, grid int) []Cell {
	if grid <= 0 {
		grid = DefaultGrid
	}
	n := float64(grid)
	overlap := 0.5 / n
	cells := make([]Cell, 0, grid*grid)

	for row := 0; row < grid; row++ {
		for col := 0; col < grid; col++ {
			u0 := math.Max(0, float64(col)/n-overlap)
			v0 := math.Max(0, float64(row)/n-overlap)
			u1 := math.Min(1, float64(col+1)/n+overlap)
			v1 := math.Min(1, float64(row+1)/n+overlap)

			cells = append(cells, Cell{
				Row:         row,
				Col:         col,
				SrcX:        u0 * float64(texW),
				SrcY:        v0 * float64(texH),
				SrcW:        (u1 - u0) * float64(texW),
				SrcH:        (v1 - v0) * float64(texH),
				TopLeft:     q.Interpolate(u0, v0),
				TopRight:    q.Interpolate(u1, v0),
				BottomLeft:  q.Interpolate(u0, v1),
				BottomRight: q.Interpolate(u1, v1),
			})
		}
	}
	return cells
}

// Affine returns the source→destination matrix for the cell: translate to
// the destination top-left, rotate by the top edge angle, then scale so the
// source width and height match the destination top and left edges.
func (c Cell) Affine() (f64.Aff3, error) {
	dw := geometry.Distance(c.TopLeft, c.TopRight)
	dh := geometry.Distance(c.TopLeft, c.BottomLeft)
	if c.SrcW < geometry.Epsilon || c.SrcH < geometry.Epsilon || dw < geometry.Epsilon || dh < geometry.Epsilon {
		return f64.Aff3{}, geometry.ErrDegenerate
	}

	angle := math.Atan2(c.TopRight.Y-c.TopLeft.Y, c.TopRight.X-c.TopLeft.X)
	sin, cos := math.Sincos(angle)
	sx, sy := dw/c.SrcW, dh/c.SrcH

	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	m := f64.Aff3{
		a, b, c.TopLeft.X - (a*c.SrcX + b*c.SrcY),
		d, e, c.TopLeft.Y - (d*c.SrcX + e*c.SrcY),
	}
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return f64.Aff3{}, geometry.ErrDegenerate
		}
	}
	return m, nil
}

// SourceRect is the integer texture rectangle covering the cell.
func (c Cell) SourceRect(texBounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(c.SrcX)),
		int(math.Floor(c.SrcY)),
		int(math.Ceil(c.SrcX+c.SrcW)),
		int(math.Ceil(c.SrcY+c.SrcH)),
	)
	return r.Add(texBounds.Min).Intersect(texBounds)
}

// Draw warps tex into q on dst and returns the number of cells drawn.
// Degenerate cells are skipped.
func (w *Warper) Draw(dst draw.Image, tex image.Image, q geometry.Quad) int {
	if q.Validate() != nil {
		return 0
	}
	tb := tex.Bounds()
	if tb.Empty() {
		return 0
	}

	kernel := w.Kernel
	if kernel == nil {
		kernel = draw.BiLinear
	}

	drawn := 0
	for _, cell := range Cells(q, tb.Dx(), tb.Dy(), w.Grid) {
		m, err := cell.Affine()
		if err != nil {
			continue
		}
		sr := cell.SourceRect(tb)
		if sr.Empty() {
			continue
		}
		// the matrix is expressed in texture-local coordinates
		if tb.Min != (image.Point{}) {
			m[2] -= m[0]*float64(tb.Min.X) + m[1]*float64(tb.Min.Y)
			m[5] -= m[3]*float64(tb.Min.X) + m[4]*float64(tb.Min.Y)
		}
		kernel.Transform(dst, m, tex, sr, draw.Over, nil)
		drawn++
	}
	return drawn
}
