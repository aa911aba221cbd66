// Package letterbox fits a banner raster into a billboard's average
// size without distortion, padding the unmatched axis.
package letterbox

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// DefaultOversample is the texture oversampling factor.
const DefaultOversample = 2.0

// Fit is the placement of the source inside a destination box.
type Fit struct {
	X, Y          float64
	Width, Height float64
}

// Compute fits a srcW×srcH source into a dstW×dstH box, centred.
// A relatively wider source fills the width and gets vertical padding,
// otherwise it fills the height.
func Compute(srcW, srcH, dstW, dstH float64) Fit {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Fit{}
	}
	rs := srcW / srcH
	rd := dstW / dstH
	if rs > rd {
		h := dstW / rs
		return Fit{X: 0, Y: (dstH - h) / 2, Width: dstW, Height: h}
	}
	w := dstH * rs
	return Fit{X: (dstW - w) / 2, Y: 0, Width: w, Height: dstH}
}

// Fitter renders letterboxed textures for the warper.
type Fitter struct {
	// Oversample multiplies the texture size; values <= 0 mean DefaultOversample.
	Oversample float64
	Background color.Color
	Scaler     draw.Scaler
}

// NewFitter returns a Fitter with black padding and Catmull-Rom scaling.
func NewFitter() *Fitter {
	return &Fitter{
		Oversample: DefaultOversample,
		Background: color.Black,
		Scaler:     draw.CatmullRom,
	}
}

// TextureSize returns ceil(avg*k) per axis, at least one pixel each.
func (f *Fitter) TextureSize(avgW, avgH float64) (int, int) {
	k := f.oversample()
	w := int(math.Ceil(avgW * k))
	h := int(math.Ceil(avgH * k))
	return max(w, 1), max(h, 1)
}

// Texture draws src letterboxed into a new offscreen raster sized for a
// quad of average size avgW×avgH. The returned Fit is in texture pixels.
func (f *Fitter) Texture(src image.Image, avgW, avgH float64) (*image.RGBA, Fit) {
	tw, th := f.TextureSize(avgW, avgH)
	tex := image.NewRGBA(image.Rect(0, 0, tw, th))

	bg := f.Background
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(tex, tex.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	sb := src.Bounds()
	fit := Compute(float64(sb.Dx()), float64(sb.Dy()), float64(tw), float64(th))
	if fit.Width <= 0 || fit.Height <= 0 {
		return tex, fit
	}

	dr := image.Rect(
		int(math.Round(fit.X)),
		int(math.Round(fit.Y)),
		int(math.Round(fit.X+fit.Width)),
		int(math.Round(fit.Y+fit.Height)),
	)
	scaler := f.Scaler
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	scaler.Scale(tex, dr, src, sb, draw.Over, nil)
	return tex, fit
}

func (f *Fitter) oversample() float64 {
	if f.Oversample <= 0 {
		return DefaultOversample
	}
	return f.Oversample
}
