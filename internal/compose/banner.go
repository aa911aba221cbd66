package compose

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/roundquad"
	"github.com/ivlev/adboard/internal/source"
	"github.com/ivlev/adboard/internal/system"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Placeholder look.
const (
	PlaceholderText    = "Your Ad Here"
	MaxPlaceholderFont = 48.0
)

var placeholderFill = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// drawBanner warps the billboard's banner into q through the rounded clip.
// It reports false when there is no banner or its frame is not ready.
func (c *Composer) drawBanner(id string, q geometry.Quad) bool {
	banner, ok := c.scene.Banner(id)
	if !ok {
		return false
	}
	img, err := banner.Frame()
	if err != nil {
		c.logger.Debug("banner not ready", "billboard", id, "err", err)
		return false
	}

	tex := c.texture(id, banner, img, q)
	bbox := pixelBounds(q).Intersect(c.frame.Bounds())
	if bbox.Empty() {
		return true
	}

	layer := system.GetImage(bbox)
	defer system.PutImage(layer)
	if c.warper.Draw(layer, tex, q) == 0 {
		return false
	}
	mask := roundquad.Build(q).Mask(bbox)
	draw.DrawMask(c.frame, bbox, layer, bbox.Min, mask, bbox.Min, draw.Over)
	return true
}

// texture returns the letterboxed texture, reusing it for still banners
// while the quad's average size is unchanged.
func (c *Composer) texture(id string, banner source.Raster, img image.Image, q geometry.Quad) *image.RGBA {
	avgW, avgH := q.AverageSize()
	tw, th := c.fitter.TextureSize(avgW, avgH)
	_, stream := banner.(source.Stream)
	if !stream {
		if ct, ok := c.textures[id]; ok && ct.raster == banner && ct.w == tw && ct.h == th {
			return ct.tex
		}
	}
	tex, _ := c.fitter.Texture(img, avgW, avgH)
	if !stream {
		c.textures[id] = cachedTexture{raster: banner, w: tw, h: th, tex: tex}
	} else {
		delete(c.textures, id)
	}
	return tex
}

// pixelBounds is the integer rectangle covering q.
func pixelBounds(q geometry.Quad) image.Rectangle {
	r := q.Bounds()
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
}

// drawPlaceholder fills q grey and draws the label centred on the centroid,
// rotated to the top edge.
func (c *Composer) drawPlaceholder(q geometry.Quad) {
	bbox := pixelBounds(q).Intersect(c.frame.Bounds())
	if bbox.Empty() {
		return
	}
	mask := roundquad.Build(q).Mask(bbox)
	draw.DrawMask(c.frame, bbox, image.NewUniform(placeholderFill), image.Point{}, mask, bbox.Min, draw.Over)

	size := PlaceholderFontSize(q)
	if size < 1 {
		return
	}
	label, err := renderLabel(PlaceholderText, size)
	if err != nil {
		c.logger.Debug("placeholder label", "err", err)
		return
	}
	center := q.Centroid()
	m := rotateAbout(label.Bounds(), center, q.TopAngle())
	draw.BiLinear.Transform(c.frame, m, label, label.Bounds(), draw.Over, nil)
}

// PlaceholderFontSize is min(topEdge/8, leftEdge/3, 48).
func PlaceholderFontSize(q geometry.Quad) float64 {
	w := geometry.Distance(q.TopLeft.Point(), q.TopRight.Point())
	h := geometry.Distance(q.TopLeft.Point(), q.BottomLeft.Point())
	return math.Min(math.Min(w/8, h/3), MaxPlaceholderFont)
}

// rotateAbout maps the centre of src onto center, rotated by angle.
func rotateAbout(src image.Rectangle, center geometry.Point, angle float64) f64.Aff3 {
	sin, cos := math.Sincos(angle)
	sx := float64(src.Min.X+src.Max.X) / 2
	sy := float64(src.Min.Y+src.Max.Y) / 2
	return f64.Aff3{
		cos, -sin, center.X - (cos*sx - sin*sy),
		sin, cos, center.Y - (sin*sx + cos*sy),
	}
}

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func bold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// renderLabel rasterises white bold text into a tight transparent image.
func renderLabel(s string, size float64) (*image.RGBA, error) {
	f, err := bold()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	img := image.NewRGBA(image.Rect(0, 0, w+2, h+2))
	d := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(1), Y: m.Ascent + fixed.I(1)},
	}
	d.DrawString(s)
	return img, nil
}
