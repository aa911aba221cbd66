package compose

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/ivlev/adboard/internal/editor"
	"github.com/ivlev/adboard/internal/geometry"
	"github.com/ivlev/adboard/internal/roundquad"
	"github.com/ivlev/adboard/internal/scene"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
)

// Overlay colours.
const (
	SelectedColor = "#16a34a"
	OutlineColor  = "#3b82f6"
	AnchorColor   = "#3b82f6"
	HandleBorder  = "#ffffff"
)

var cornerColors = map[geometry.CornerID]string{
	geometry.TopLeft:     "#ef4444",
	geometry.TopRight:    "#10b981",
	geometry.BottomLeft:  "#f59e0b",
	geometry.BottomRight: "#8b5cf6",
}

const (
	labelSize    = 20.0
	labelPadding = 6.0
	labelLift    = 10.0
	handleRadius = 8.0
	anchorRadius = 6.0
	rectHandle   = 16.0
)

type overlay struct {
	face text.Face
}

func (c *Composer) overlayFont() *overlay {
	if c.overlay != nil {
		return c.overlay
	}
	o := &overlay{}
	src, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		c.logger.Warn("overlay font unavailable, labels disabled", "err", err)
	} else {
		o.face = src.Face(labelSize)
	}
	c.overlay = o
	return o
}

// drawOverlays strokes every billboard outline with its label and, for the
// billboard under edit, the interaction handles.
func (c *Composer) drawOverlays(bbs []scene.Billboard, quads []geometry.Quad, selected string, s *editor.Session) {
	o := c.overlayFont()
	dc := gg.NewContextForImage(c.frame)
	defer dc.Close()
	if o.face != nil {
		dc.SetFont(o.face)
	}

	for i, bb := range bbs {
		q := quads[i]
		isSelected := bb.ID == selected
		col, width := OutlineColor, 3.0
		if isSelected {
			col, width = SelectedColor, 5.0
		}

		dc.SetHexColor(col)
		dc.SetLineWidth(width)
		dc.SetDash(10, 5)
		roundquad.Build(q).Replay(dc, 0, 0)
		if err := dc.Stroke(); err != nil {
			c.logger.Debug("outline stroke", "billboard", bb.ID, "err", err)
		}
		dc.ClearDash()

		if o.face != nil {
			drawLabel(dc, fmt.Sprintf("Billboard %d", i+1), q, col)
		}

		if s != nil && s.BillboardID == bb.ID {
			switch s.Mode {
			case editor.ModePerspective:
				drawPerspectiveHandles(dc, q)
			case editor.ModeRectangle:
				drawRectHandles(dc, q)
			}
		}
	}

	draw.Draw(c.frame, c.frame.Bounds(), dc.Image(), image.Point{}, draw.Src)
}

// drawLabel centres the label on the top-edge midpoint, labelLift above the
// top-left corner.
func drawLabel(dc *gg.Context, label string, q geometry.Quad, col string) {
	x := (q.TopLeft.X + q.TopRight.X) / 2
	y := q.TopLeft.Y - labelLift
	w, _ := dc.MeasureString(label)

	dc.SetHexColor(col)
	dc.DrawRectangle(x-w/2-labelPadding, y-labelSize-labelPadding, w+2*labelPadding, labelSize+2*labelPadding)
	_ = dc.Fill()

	dc.SetHexColor(HandleBorder)
	dc.DrawStringAnchored(label, x, y, 0.5, 0)
}

func drawPerspectiveHandles(dc *gg.Context, q geometry.Quad) {
	for _, id := range geometry.Ring {
		corner := q.Corner(id)
		anchor, ok := editor.RadiusAnchor(q, id)
		if !ok {
			continue
		}
		if corner.Radius > 0 {
			dc.SetHexColor(AnchorColor)
			dc.SetLineWidth(1)
			dc.SetDash(4, 4)
			dc.MoveTo(corner.X, corner.Y)
			dc.LineTo(anchor.X, anchor.Y)
			_ = dc.Stroke()
			dc.ClearDash()
		}
		dc.SetHexColor(AnchorColor)
		dc.DrawCircle(anchor.X, anchor.Y, anchorRadius)
		_ = dc.Fill()
	}
	for _, id := range geometry.Ring {
		corner := q.Corner(id)
		dc.SetHexColor(HandleBorder)
		dc.DrawCircle(corner.X, corner.Y, handleRadius+2)
		_ = dc.Fill()
		dc.SetHexColor(cornerColors[id])
		dc.DrawCircle(corner.X, corner.Y, handleRadius)
		_ = dc.Fill()
	}
}

func drawRectHandles(dc *gg.Context, q geometry.Quad) {
	half := rectHandle / 2
	for _, p := range q.Points() {
		dc.SetHexColor(HandleBorder)
		dc.DrawRectangle(p.X-half-1, p.Y-half-1, rectHandle+2, rectHandle+2)
		_ = dc.Fill()
		dc.SetHexColor(OutlineColor)
		dc.DrawRectangle(p.X-half, p.Y-half, rectHandle, rectHandle)
		_ = dc.Fill()
	}
}
