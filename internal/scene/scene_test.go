package scene

import (
	"errors"
	"image"
	"testing"

	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/source"
)

func TestAddDefaults(t *testing.T) {
	s := New("shot", 1280, 800)

	first := s.Add()
	if tl := first.Perspective.TopLeft; tl.X != 50 || tl.Y != 50 {
		t.Errorf("first billboard at (%v,%v), want (50,50)", tl.X, tl.Y)
	}
	if first.Bounds.Width != DefaultWidth || first.Bounds.Height != DefaultHeight {
		t.Errorf("bounds = %+v", first.Bounds)
	}

	second := s.Add()
	// y is clamped to H-650 = 150
	if tl := second.Perspective.TopLeft; tl.X != 100 || tl.Y != 100 {
		t.Errorf("second billboard at (%v,%v), want (100,100)", tl.X, tl.Y)
	}
	third := s.Add()
	if tl := third.Perspective.TopLeft; tl.X != 150 || tl.Y != 150 {
		t.Errorf("third billboard at (%v,%v), want (150,150)", tl.X, tl.Y)
	}
	fourth := s.Add()
	if tl := fourth.Perspective.TopLeft; tl.Y != 150 {
		t.Errorf("fourth billboard y = %v, want clamp at 150", tl.Y)
	}
	if first.ID == second.ID {
		t.Error("ids must be unique")
	}
	if s.Selected() != fourth.ID {
		t.Error("newly added billboard must be selected")
	}
}

func TestAddWrapsOnSmallCanvas(t *testing.T) {
	s := New("tiny", 320, 480)
	s.Add()
	b := s.Add()
	if tl := b.Perspective.TopLeft; tl.X != 50 || tl.Y != 50 {
		t.Errorf("billboard on small canvas at (%v,%v), want wrap to (50,50)", tl.X, tl.Y)
	}
}

func TestDeleteGuard(t *testing.T) {
	s := New("shot", 800, 600)
	only := s.Add()

	if err := s.Delete(only.ID); !errors.Is(err, ErrLastBillboard) {
		t.Fatalf("Delete(last) = %v, want ErrLastBillboard", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	other := s.Add()
	if err := s.Assign(other.ID, source.NewStill(image.NewRGBA(image.Rect(0, 0, 2, 2)))); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(other.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Banner(other.ID); ok {
		t.Error("banner must be dropped with its billboard")
	}
	if s.Selected() != only.ID {
		t.Errorf("selection must fall back to the remaining billboard")
	}

	if err := s.Delete("missing"); !errors.Is(err, ErrUnknownBillboard) {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestBannersKeyedByID(t *testing.T) {
	s := New("shot", 800, 600)
	a := s.Add()
	b := s.Add()
	c := s.Add()
	banner := source.NewStill(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err := s.Assign(c.ID, banner); err != nil {
		t.Fatal(err)
	}

	// removing an earlier billboard must not shift the mapping
	if err := s.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Banner(b.ID); ok {
		t.Error("banner moved to a different billboard")
	}
	if got, ok := s.Banner(c.ID); !ok || got != banner {
		t.Error("banner lost after deleting another billboard")
	}
	if n := len(s.Banners()); n != 1 {
		t.Errorf("Banners() len = %d", n)
	}
}

func TestCommit(t *testing.T) {
	s := New("shot", 800, 600)
	b := s.Add()
	q := geometry.Quad{
		TopLeft:     geometry.Corner{X: 100, Y: 120, Radius: 5},
		TopRight:    geometry.Corner{X: 400, Y: 90},
		BottomLeft:  geometry.Corner{X: 110, Y: 500},
		BottomRight: geometry.Corner{X: 390, Y: 530},
	}
	if err := s.Commit(b.ID, q); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Perspective(b.ID)
	if got != q {
		t.Errorf("perspective = %+v", got)
	}
	after, _ := s.Billboard(b.ID)
	if after.Bounds != (geometry.Rect{X: 100, Y: 90, Width: 300, Height: 440}) {
		t.Errorf("bounds = %+v", after.Bounds)
	}
}

func TestBillboardsAreCopies(t *testing.T) {
	s := New("shot", 800, 600)
	b := s.Add()
	before := s.Billboards()

	q := geometry.Rect{X: 10, Y: 10, Width: 200, Height: 300}.Quad()
	if err := s.Commit(b.ID, q); err != nil {
		t.Fatal(err)
	}
	if before[0].Perspective != b.Perspective {
		t.Error("earlier snapshot changed after Commit")
	}

	before[0].Perspective = geometry.Quad{}
	in := NewBillboard("ext", q)
	s.Append(in)
	in.Perspective = geometry.Quad{}
	if got, _ := s.Perspective(b.ID); got != q {
		t.Errorf("scene changed through a snapshot: %+v", got)
	}
	if got, _ := s.Perspective("ext"); got != q {
		t.Errorf("scene changed through an appended pointer: %+v", got)
	}
}
