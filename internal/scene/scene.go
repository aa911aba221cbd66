// Package scene models a screenshot or gameplay video with its ordered
// billboards and the banners assigned to them.
package scene

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/source"
)

var (
	// ErrLastBillboard is returned when deleting the only billboard.
	ErrLastBillboard = errors.New("scene: cannot delete the last billboard")
	// ErrUnknownBillboard is returned for ids not present in the scene.
	ErrUnknownBillboard = errors.New("scene: unknown billboard")
)

// Defaults for newly added billboards.
const (
	DefaultWidth  = 300
	DefaultHeight = 600
	addOffset     = 50
)

// Billboard is one ad-insertion region.
type Billboard struct {
	ID          string
	Bounds      geometry.Rect
	Perspective geometry.Quad
}

// NewBillboard creates a billboard from a quad, with a fresh id when id is empty.
func NewBillboard(id string, q geometry.Quad) *Billboard {
	if id == "" {
		id = uuid.NewString()
	}
	return &Billboard{ID: id, Bounds: q.Bounds(), Perspective: q}
}

// Commit stores q as the billboard's perspective and recomputes the bounds.
func (b *Billboard) Commit(q geometry.Quad) {
	b.Perspective = q
	b.Bounds = q.Bounds()
}

// Scene owns the billboard list and the banner mapping keyed by billboard id.
// It is safe for concurrent use by the editor and the render loop: billboards
// are only mutated under the lock and readers get copies.
type Scene struct {
	ID     string
	Name   string
	Width  int
	Height int

	mu         sync.RWMutex
	billboards []*Billboard
	banners    map[string]source.Raster
	selected   string
}

// New creates an empty scene of the given canvas size.
func New(id string, width, height int) *Scene {
	return &Scene{ID: id, Width: width, Height: height, banners: make(map[string]source.Raster)}
}

// Billboards returns copies of the billboards in display order, taken
// under one read lock. Later commits do not affect the returned values.
func (s *Scene) Billboards() []Billboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Billboard, len(s.billboards))
	for i, b := range s.billboards {
		out[i] = *b
	}
	return out
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.billboards)
}

// Billboard returns a copy of the billboard with the given id.
func (s *Scene) Billboard(id string) (Billboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return Billboard{}, false
	}
	return *s.billboards[i], true
}

// Index returns the display position of id, or -1.
func (s *Scene) Index(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index(id)
}

func (s *Scene) index(id string) int {
	for i, b := range s.billboards {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Append adds existing billboards (from a catalog or detector) in order.
func (s *Scene) Append(bbs ...*Billboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bbs {
		own := *b
		s.billboards = append(s.billboards, &own)
	}
	if s.selected == "" && len(s.billboards) > 0 {
		s.selected = s.billboards[0].ID
	}
}

// Add creates a default 300×600 billboard offset by 50px from the last one,
// clamped so it fits, wrapping back to (50,50) when it still overflows.
// It returns a copy of the new billboard.
func (s *Scene) Add() Billboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, y := float64(addOffset), float64(addOffset)
	if n := len(s.billboards); n > 0 {
		last := s.billboards[n-1].Perspective.TopLeft
		x = math.Min(last.X+addOffset, float64(s.Width-DefaultWidth-addOffset))
		y = math.Min(last.Y+addOffset, float64(s.Height-DefaultHeight-addOffset))
	}
	if x < 0 || y < 0 || x+DefaultWidth > float64(s.Width) || y+DefaultHeight > float64(s.Height) {
		x, y = addOffset, addOffset
	}

	b := NewBillboard("", geometry.Rect{X: x, Y: y, Width: DefaultWidth, Height: DefaultHeight}.Quad())
	s.billboards = append(s.billboards, b)
	s.selected = b.ID
	return *b
}

// Delete removes a billboard and its banner. The last billboard cannot be
// deleted.
func (s *Scene) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBillboard, id)
	}
	if len(s.billboards) <= 1 {
		return ErrLastBillboard
	}
	s.billboards = append(s.billboards[:i], s.billboards[i+1:]...)
	delete(s.banners, id)
	if s.selected == id {
		s.selected = s.billboards[max(0, i-1)].ID
	}
	return nil
}

// Assign attaches a banner to a billboard; a nil banner clears it.
func (s *Scene) Assign(id string, banner source.Raster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBillboard, id)
	}
	if banner == nil {
		delete(s.banners, id)
		return nil
	}
	s.banners[id] = banner
	return nil
}

// Banner returns the banner assigned to id, if any.
func (s *Scene) Banner(id string) (source.Raster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.banners[id]
	return r, ok
}

// Banners returns all assigned banners in billboard order.
func (s *Scene) Banners() []source.Raster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []source.Raster
	for _, b := range s.billboards {
		if r, ok := s.banners[b.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Select marks a billboard as selected for outline highlighting.
func (s *Scene) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBillboard, id)
	}
	s.selected = id
	return nil
}

func (s *Scene) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Commit stores a confirmed quad into the billboard.
func (s *Scene) Commit(id string, q geometry.Quad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownBillboard, id)
	}
	s.billboards[i].Commit(q)
	return nil
}

// Perspective returns the committed quad of a billboard.
func (s *Scene) Perspective(id string) (geometry.Quad, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return geometry.Quad{}, false
	}
	return s.billboards[i].Perspective, true
}
