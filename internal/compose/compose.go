// Package compose draws one output frame: the base raster, every billboard
// (warped banner or placeholder) in list order, and the editing overlays.
package compose

import (
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ivlev/adboard/internal/editor"
	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/letterbox"
	"github.com/ivlev/adboard/internal/scene"
	"github.com/ivlev/adboard/internal/source"
	"github.com/ivlev/adboard/internal/warp"
	"golang.org/x/image/draw"
)

// EditState exposes the active edit session. *editor.Editor implements it.
type EditState interface {
	Session() (editor.Session, bool)
}

// Options configures a Composer.
type Options struct {
	Grid       int
	Oversample float64
	Padding    color.Color
	Outlines   bool
}

// DefaultOptions returns the 50×50 mesh, 2× oversampling, black padding
// and visible outlines.
func DefaultOptions() Options {
	return Options{
		Grid:       warp.DefaultGrid,
		Oversample: letterbox.DefaultOversample,
		Padding:    color.Black,
		Outlines:   true,
	}
}

// Composer owns the destination frame. Render mutates it in place; the
// returned image is valid until the next Render call.
type Composer struct {
	scene  *scene.Scene
	base   source.Raster
	edit   EditState
	fitter *letterbox.Fitter
	warper *warp.Warper
	logger *slog.Logger

	outlines atomic.Bool

	mu       sync.Mutex
	frame    *image.RGBA
	textures map[string]cachedTexture
	overlay  *overlay
}

type cachedTexture struct {
	raster source.Raster
	w, h   int
	tex    *image.RGBA
}

// New creates a composer for sc with base as the background raster.
func New(sc *scene.Scene, base source.Raster, opts Options, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fitter := letterbox.NewFitter()
	fitter.Oversample = opts.Oversample
	if opts.Padding != nil {
		fitter.Background = opts.Padding
	}
	c := &Composer{
		scene:    sc,
		base:     base,
		fitter:   fitter,
		warper:   warp.New(opts.Grid),
		logger:   logger,
		frame:    image.NewRGBA(image.Rect(0, 0, sc.Width, sc.Height)),
		textures: make(map[string]cachedTexture),
	}
	c.outlines.Store(opts.Outlines)
	return c
}

// SetEditState attaches the editor whose scratch quad is previewed live.
func (c *Composer) SetEditState(e EditState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edit = e
}

// SetOutlines enables or suppresses outline and handle overlays.
func (c *Composer) SetOutlines(on bool) { c.outlines.Store(on) }

func (c *Composer) Outlines() bool { return c.outlines.Load() }

func (c *Composer) Size() (int, int) { return c.scene.Width, c.scene.Height }

// Render composes the current frame.
func (c *Composer) Render() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render()
}

// Snapshot renders a frame and returns an independent copy.
func (c *Composer) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.render()
	out := image.NewRGBA(f.Bounds())
	copy(out.Pix, f.Pix)
	return out
}

func (c *Composer) render() *image.RGBA {
	var session *editor.Session
	if c.edit != nil {
		if s, ok := c.edit.Session(); ok {
			session = &s
		}
	}

	c.drawBase()
	if session != nil {
		c.dim(session)
	}

	selected := c.scene.Selected()
	bbs := c.scene.Billboards()
	quads := make([]geometry.Quad, len(bbs))
	for i, bb := range bbs {
		q := bb.Perspective
		if session != nil && session.BillboardID == bb.ID {
			q = session.Scratch()
		}
		quads[i] = q
		if q.Validate() != nil {
			continue
		}
		if !c.drawBanner(bb.ID, q) {
			c.drawPlaceholder(q)
		}
	}

	if c.outlines.Load() {
		c.drawOverlays(bbs, quads, selected, session)
	}
	return c.frame
}

func (c *Composer) drawBase() {
	b := c.frame.Bounds()
	draw.Draw(c.frame, b, image.Black, image.Point{}, draw.Src)
	if c.base == nil {
		return
	}
	img, err := c.base.Frame()
	if err != nil {
		c.logger.Debug("base frame not ready", "err", err)
		return
	}
	sb := img.Bounds()
	if sb.Dx() == b.Dx() && sb.Dy() == b.Dy() {
		draw.Draw(c.frame, b, img, sb.Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(c.frame, b, img, sb, draw.Src, nil)
}

// dim darkens the frame while an edit session is active. In rectangle mode
// the selection keeps the undimmed base.
func (c *Composer) dim(s *editor.Session) {
	b := c.frame.Bounds()
	var keep *image.RGBA
	var kr image.Rectangle
	if s.Mode == editor.ModeRectangle {
		r := s.Rect.Normalize()
		kr = image.Rect(int(r.X), int(r.Y), int(r.X+r.Width), int(r.Y+r.Height)).Intersect(b)
		if !kr.Empty() {
			keep = image.NewRGBA(kr)
			draw.Draw(keep, kr, c.frame, kr.Min, draw.Src)
		}
	}
	draw.Draw(c.frame, b, image.NewUniform(color.NRGBA{A: 102}), image.Point{}, draw.Over)
	if keep != nil {
		draw.Draw(c.frame, kr, keep, kr.Min, draw.Src)
	}
}
