package warp

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ivlev/adboard/internal/geometry"
	"golang.org/x/image/draw"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestCells(t *testing.T) {
	q := geometry.Rect{X: 0, Y: 0, Width: 100, Height: 100}.Quad()
	cells := Cells(q, 200, 200, 4)
	if len(cells) != 16 {
		t.Fatalf("len(cells) = %d, want 16", len(cells))
	}

	first := cells[0]
	if first.SrcX != 0 || first.SrcY != 0 {
		t.Errorf("first cell must be clamped at the origin, got (%v,%v)", first.SrcX, first.SrcY)
	}
	// (1/4 + 0.5/4) * 200
	if math.Abs(first.SrcW-75) > 1e-9 {
		t.Errorf("first cell width = %v, want 75", first.SrcW)
	}

	inner := cells[5]
	if math.Abs(inner.SrcX-25) > 1e-9 || math.Abs(inner.SrcW-100) > 1e-9 {
		t.Errorf("inner cell src = (%v, w=%v), want (25, w=100)", inner.SrcX, inner.SrcW)
	}

	last := cells[len(cells)-1]
	if math.Abs(last.SrcX+last.SrcW-200) > 1e-9 {
		t.Errorf("last cell must end at the texture edge, got %v", last.SrcX+last.SrcW)
	}
}

func TestCellAffine(t *testing.T) {
	c := Cell{
		SrcX: 10, SrcY: 20, SrcW: 40, SrcH: 20,
		TopLeft:    geometry.Point{X: 100, Y: 100},
		TopRight:   geometry.Point{X: 100, Y: 180},
		BottomLeft: geometry.Point{X: 60, Y: 100},
	}
	m, err := c.Affine()
	if err != nil {
		t.Fatalf("Affine: %v", err)
	}

	apply := func(x, y float64) geometry.Point {
		return geometry.Point{X: m[0]*x + m[1]*y + m[2], Y: m[3]*x + m[4]*y + m[5]}
	}
	tests := []struct {
		sx, sy float64
		want   geometry.Point
	}{
		{10, 20, c.TopLeft},
		{50, 20, c.TopRight},
		{10, 40, c.BottomLeft},
	}
	for _, tt := range tests {
		got := apply(tt.sx, tt.sy)
		if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
			t.Errorf("src (%v,%v) -> %v, want %v", tt.sx, tt.sy, got, tt.want)
		}
	}

	flat := c
	flat.SrcW = 0
	if _, err := flat.Affine(); err != geometry.ErrDegenerate {
		t.Errorf("zero-width source: got %v, want ErrDegenerate", err)
	}
}

func TestDrawSeamless(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	tex := uniform(300, 400, red)

	quads := map[string]geometry.Quad{
		"axis aligned": geometry.Rect{X: 100, Y: 100, Width: 300, Height: 400}.Quad(),
		"perspective": {
			TopLeft:     geometry.Corner{X: 120, Y: 80},
			TopRight:    geometry.Corner{X: 410, Y: 130},
			BottomLeft:  geometry.Corner{X: 90, Y: 470},
			BottomRight: geometry.Corner{X: 430, Y: 430},
		},
		"rotated": {
			TopLeft:     geometry.Corner{X: 300, Y: 50},
			TopRight:    geometry.Corner{X: 550, Y: 300},
			BottomLeft:  geometry.Corner{X: 50, Y: 300},
			BottomRight: geometry.Corner{X: 300, Y: 550},
		},
	}

	for name, q := range quads {
		t.Run(name, func(t *testing.T) {
			dst := uniform(800, 600, white)
			w := New(20)
			if n := w.Draw(dst, tex, q); n != 400 {
				t.Errorf("drawn cells = %d, want 400", n)
			}

			gaps := 0
			for v := 0.04; v < 0.97; v += 0.03 {
				for u := 0.04; u < 0.97; u += 0.03 {
					p := q.Interpolate(u, v)
					if got := dst.RGBAAt(int(p.X), int(p.Y)); got != red {
						gaps++
						t.Logf("gap at (%v,%v) -> %v: %v", u, v, p, got)
					}
				}
			}
			if gaps > 0 {
				t.Errorf("%d interior samples not covered", gaps)
			}

			if got := dst.RGBAAt(5, 5); got != white {
				t.Errorf("pixel outside quad changed: %v", got)
			}
		})
	}
}

func TestDrawDegenerate(t *testing.T) {
	dst := uniform(100, 100, color.RGBA{A: 255})
	tex := uniform(10, 10, color.RGBA{R: 255, A: 255})
	w := New(10)

	flat := geometry.Quad{
		TopLeft:     geometry.Corner{X: 10, Y: 10},
		TopRight:    geometry.Corner{X: 90, Y: 10},
		BottomLeft:  geometry.Corner{X: 10, Y: 10},
		BottomRight: geometry.Corner{X: 90, Y: 10},
	}
	if n := w.Draw(dst, tex, flat); n != 0 {
		t.Errorf("flat quad drew %d cells", n)
	}

	// collapsed left edge: the cells touching it are skipped, the rest draw
	sliver := geometry.Quad{
		TopLeft:     geometry.Corner{X: 10, Y: 50},
		TopRight:    geometry.Corner{X: 90, Y: 10},
		BottomLeft:  geometry.Corner{X: 10, Y: 50},
		BottomRight: geometry.Corner{X: 90, Y: 90},
	}
	n := w.Draw(dst, tex, sliver)
	if n == 0 || n > 100 {
		t.Errorf("sliver drew %d cells", n)
	}

	if n := w.Draw(dst, image.NewRGBA(image.Rectangle{}), sliver); n != 0 {
		t.Errorf("empty texture drew %d cells", n)
	}
}
