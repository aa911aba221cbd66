package analyzer

import (
	"image"

	"github.com/ivlev/adboard/internal/geometry"
)

// Candidate is a proposed billboard region.
type Candidate struct {
	Rect  image.Rectangle
	Quad  geometry.Quad
	Score float64 // 0..100
}

// Detector proposes billboard candidates for a scene frame, best first.
type Detector interface {
	Detect(img image.Image) ([]Candidate, error)
}
