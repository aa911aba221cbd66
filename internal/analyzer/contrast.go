package analyzer

import (
	"image"
	"image/draw"
	"math"
	"sort"

	"github.com/ivlev/adboard/internal/geometry"
)

// ContrastDetector finds high-contrast rectangular regions with a Sobel
// edge map, dilation and connected components, then scores them as
// billboard candidates.
type ContrastDetector struct {
	EdgeThreshold float64 // gradient magnitude threshold
	DilateKernel  int
	DilatePasses  int
	MinSide       int     // minimum width and height in pixels
	MinAreaRatio  float64 // of the frame area
	MaxAreaRatio  float64
	MinScore      float64
	MaxCandidates int
}

// NewContrastDetector creates a new contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		EdgeThreshold: 30.0,
		DilateKernel:  5,
		DilatePasses:  2,
		MinSide:       80,
		MinAreaRatio:  0.01,
		MaxAreaRatio:  0.35,
		MinScore:      45,
		MaxCandidates: 4,
	}
}

// Detect returns candidates sorted by descending score with overlapping
// duplicates removed.
func (d *ContrastDetector) Detect(img image.Image) ([]Candidate, error) {
	gray := toGrayscale(img)
	edges := sobel(gray, d.EdgeThreshold)
	mask := dilate(edges, d.DilateKernel, d.DilatePasses)

	b := gray.Bounds()
	frameArea := float64(b.Dx() * b.Dy())
	var out []Candidate
	for _, r := range components(mask) {
		area := float64(r.Dx() * r.Dy())
		if r.Dx() < d.MinSide || r.Dy() < d.MinSide {
			continue
		}
		if area < frameArea*d.MinAreaRatio || area > frameArea*d.MaxAreaRatio {
			continue
		}
		aspect := float64(r.Dx()) / float64(r.Dy())
		if aspect < 0.3 || aspect > 6 {
			continue
		}
		score := Score(r, b)
		if score < d.MinScore {
			continue
		}
		out = append(out, Candidate{
			Rect:  r,
			Quad:  geometry.Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}.Quad(),
			Score: score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	out = dedupe(out, 0.5)
	if d.MaxCandidates > 0 && len(out) > d.MaxCandidates {
		out = out[:d.MaxCandidates]
	}
	return out, nil
}

// Score rates a region out of 100: vertical position (billboards sit high
// in the frame), closeness to a common banner aspect, size, and a base
// for being a clean rectangle.
func Score(r, frame image.Rectangle) float64 {
	var score float64

	centerY := float64(r.Min.Y+r.Max.Y) / 2
	switch rel := (centerY - float64(frame.Min.Y)) / float64(frame.Dy()); {
	case rel < 0.4:
		score += 30
	case rel < 0.6:
		score += 20
	case rel < 0.75:
		score += 5
	}

	aspect := float64(r.Dx()) / float64(r.Dy())
	best := 0.0
	for _, ratio := range []float64{16.0 / 9, 4.0 / 3, 3.0 / 2, 2, 3, 1.0 / 2} {
		diff := math.Abs(aspect-ratio) / ratio
		if diff < 0.15 {
			best = math.Max(best, 15-diff*100)
		}
	}
	score += best

	share := float64(r.Dx()*r.Dy()) / float64(frame.Dx()*frame.Dy())
	switch {
	case share >= 0.02 && share <= 0.2:
		score += 20
	case share < 0.02:
		score += 10
	default:
		score += 5
	}

	// connected components are axis-aligned
	return score + 10
}

// dedupe drops candidates overlapping an earlier one by more than
// threshold of the smaller area.
func dedupe(cands []Candidate, threshold float64) []Candidate {
	var out []Candidate
	for _, c := range cands {
		dup := false
		for _, u := range out {
			if overlap(c.Rect, u.Rect) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func overlap(a, b image.Rectangle) float64 {
	in := a.Intersect(b)
	if in.Empty() {
		return 0
	}
	smaller := min(a.Dx()*a.Dy(), b.Dx()*b.Dy())
	return float64(in.Dx()*in.Dy()) / float64(smaller)
}

func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}

var (
	sobelX = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// sobel returns a binary edge map (255 where the gradient exceeds threshold).
func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var sx, sy int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := int(gray.GrayAt(x+kx, y+ky).Y)
					sx += v * sobelX[ky+1][kx+1]
					sy += v * sobelY[ky+1][kx+1]
				}
			}
			if math.Hypot(float64(sx), float64(sy)) > threshold {
				edges.Pix[edges.PixOffset(x, y)] = 255
			}
		}
	}
	return edges
}

// dilate grows white regions with a square kernel.
func dilate(img *image.Gray, kernel, passes int) *image.Gray {
	b := img.Bounds()
	half := kernel / 2
	cur := img
	for range passes {
		next := image.NewGray(b)
		for y := b.Min.Y + half; y < b.Max.Y-half; y++ {
			for x := b.Min.X + half; x < b.Max.X-half; x++ {
				var v uint8
				for ky := -half; ky <= half && v < 255; ky++ {
					for kx := -half; kx <= half; kx++ {
						if p := cur.Pix[cur.PixOffset(x+kx, y+ky)]; p > v {
							v = p
						}
					}
				}
				next.Pix[next.PixOffset(x, y)] = v
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding boxes of 4-connected white regions.
func components(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	w := b.Dx()
	visited := make([]bool, w*b.Dy())
	var rects []image.Rectangle

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := (y-b.Min.Y)*w + (x - b.Min.X)
			if visited[i] || img.GrayAt(x, y).Y <= 128 {
				continue
			}
			rects = append(rects, fill(img, visited, image.Pt(x, y)))
		}
	}
	return rects
}

func fill(img *image.Gray, visited []bool, start image.Point) image.Rectangle {
	b := img.Bounds()
	w := b.Dx()
	r := image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))}
	stack := []image.Point{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !p.In(b) {
			continue
		}
		i := (p.Y-b.Min.Y)*w + (p.X - b.Min.X)
		if visited[i] || img.GrayAt(p.X, p.Y).Y <= 128 {
			continue
		}
		visited[i] = true
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
		stack = append(stack,
			image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y),
			image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1),
		)
	}
	return r
}
