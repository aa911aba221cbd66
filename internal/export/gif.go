package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// GIFEncoder collects composed frames and quantises them in parallel.
type GIFEncoder struct {
	FPS     int
	Workers int

	frames []*image.RGBA
}

func NewGIFEncoder(fps, workers int) *GIFEncoder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &GIFEncoder{FPS: fps, Workers: workers}
}

// Add keeps frame; the caller must not reuse it.
func (e *GIFEncoder) Add(frame *image.RGBA) {
	e.frames = append(e.frames, frame)
}

func (e *GIFEncoder) Len() int { return len(e.frames) }

// Encode writes an infinitely looping GIF with a 100/fps centisecond delay.
func (e *GIFEncoder) Encode() ([]byte, error) {
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames captured", ErrExport)
	}
	delay := 100 / max(e.FPS, 1)

	out := &gif.GIF{
		Image: make([]*image.Paletted, len(e.frames)),
		Delay: make([]int, len(e.frames)),
	}
	var g errgroup.Group
	g.SetLimit(e.Workers)
	for i, frame := range e.frames {
		out.Delay[i] = delay
		g.Go(func() error {
			b := frame.Bounds()
			p := image.NewPaletted(b, palette.Plan9)
			draw.FloydSteinberg.Draw(p, b, frame, b.Min)
			out.Image[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, fmt.Errorf("%w: gif encode: %w", ErrExport, err)
	}
	return buf.Bytes(), nil
}
