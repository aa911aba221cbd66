// Package catalog reads and writes the games → screenshots → billboards
// document that persists billboard placements.
package catalog

import (
	"fmt"

	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/scene"
)

// Catalog is the whole document.
type Catalog struct {
	Games []Game `json:"games" yaml:"games"`
}

type Game struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Screenshots []Screenshot `json:"screenshots" yaml:"screenshots"`
}

type Screenshot struct {
	ID         string      `json:"id" yaml:"id"`
	Filename   string      `json:"filename" yaml:"filename"`
	BannerSize string      `json:"bannerSize,omitempty" yaml:"bannerSize,omitempty"`
	Billboards []Billboard `json:"billboards" yaml:"billboards"`
}

// Billboard is one stored placement. X/Y/Width/Height is the bounding box
// of Perspective.
type Billboard struct {
	ID          string       `json:"id" yaml:"id"`
	X           float64      `json:"x" yaml:"x"`
	Y           float64      `json:"y" yaml:"y"`
	Width       float64      `json:"width" yaml:"width"`
	Height      float64      `json:"height" yaml:"height"`
	Rotation    float64      `json:"rotation" yaml:"rotation"`
	Perspective *Perspective `json:"perspective,omitempty" yaml:"perspective,omitempty"`
}

// Perspective is the stored quad.
type Perspective struct {
	TopLeft     Point `json:"topLeft" yaml:"topLeft"`
	TopRight    Point `json:"topRight" yaml:"topRight"`
	BottomLeft  Point `json:"bottomLeft" yaml:"bottomLeft"`
	BottomRight Point `json:"bottomRight" yaml:"bottomRight"`
}

// Point is a stored corner. Older documents omit radius; it decodes as 0.
type Point struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
}

func (p Point) corner() geometry.Corner {
	return geometry.Corner{X: p.X, Y: p.Y, Radius: max(p.Radius, 0)}
}

func fromCorner(c geometry.Corner) Point {
	return Point{X: c.X, Y: c.Y, Radius: c.Radius}
}

// Quad converts the record to a domain quad. Records without a perspective
// use their bounding box.
func (b Billboard) Quad() geometry.Quad {
	if b.Perspective == nil {
		return geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}.Quad()
	}
	p := b.Perspective
	return geometry.Quad{
		TopLeft:     p.TopLeft.corner(),
		TopRight:    p.TopRight.corner(),
		BottomLeft:  p.BottomLeft.corner(),
		BottomRight: p.BottomRight.corner(),
	}
}

// FromBillboard builds a record from a scene billboard.
func FromBillboard(bb scene.Billboard) Billboard {
	q := bb.Perspective
	r := q.Bounds()
	return Billboard{
		ID:     bb.ID,
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Perspective: &Perspective{
			TopLeft:     fromCorner(q.TopLeft),
			TopRight:    fromCorner(q.TopRight),
			BottomLeft:  fromCorner(q.BottomLeft),
			BottomRight: fromCorner(q.BottomRight),
		},
	}
}

// Find returns the game and screenshot by id. An empty game id matches the
// first game containing the screenshot; an empty screenshot id picks the
// game's first screenshot.
func (c *Catalog) Find(gameID, screenshotID string) (*Game, *Screenshot, error) {
	for gi := range c.Games {
		g := &c.Games[gi]
		if gameID != "" && g.ID != gameID {
			continue
		}
		for si := range g.Screenshots {
			s := &g.Screenshots[si]
			if screenshotID == "" || s.ID == screenshotID {
				return g, s, nil
			}
		}
		if gameID != "" {
			break
		}
	}
	return nil, nil, fmt.Errorf("screenshot %q of game %q not found", screenshotID, gameID)
}

// Ensure returns the screenshot, creating the game and screenshot records
// when they are missing.
func (c *Catalog) Ensure(gameID, screenshotID, filename string) (*Game, *Screenshot) {
	gi := -1
	for i := range c.Games {
		if c.Games[i].ID == gameID {
			gi = i
			break
		}
	}
	if gi < 0 {
		c.Games = append(c.Games, Game{ID: gameID, Name: gameID})
		gi = len(c.Games) - 1
	}
	g := &c.Games[gi]
	for si := range g.Screenshots {
		if g.Screenshots[si].ID == screenshotID {
			return g, &g.Screenshots[si]
		}
	}
	g.Screenshots = append(g.Screenshots, Screenshot{ID: screenshotID, Filename: filename})
	return g, &g.Screenshots[len(g.Screenshots)-1]
}

// SceneBillboards converts the stored records to scene billboards in order.
func (s *Screenshot) SceneBillboards() []*scene.Billboard {
	out := make([]*scene.Billboard, 0, len(s.Billboards))
	for _, b := range s.Billboards {
		out = append(out, scene.NewBillboard(b.ID, b.Quad()))
	}
	return out
}

// Update replaces the stored billboards with the scene's.
func (s *Screenshot) Update(sc *scene.Scene) {
	bbs := sc.Billboards()
	s.Billboards = make([]Billboard, 0, len(bbs))
	for _, bb := range bbs {
		s.Billboards = append(s.Billboards, FromBillboard(bb))
	}
}

// ToScene builds a scene of the given canvas size from the screenshot.
func (s *Screenshot) ToScene(width, height int) *scene.Scene {
	sc := scene.New(s.ID, width, height)
	sc.Name = s.Filename
	sc.Append(s.SceneBillboards()...)
	return sc
}
