// Package raster holds the low-level pixel painting primitives shared by the
// overlay compositor and the software page rasterizer: multiply-blended
// rectangle fills, Bresenham polyline strokes, and text runs.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FillRect fills r with col at full opacity.
func FillRect(dst *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillRectMultiply fills r with col using multiply blending at the given
// opacity. Each destination channel is scaled toward dst*src, so overlapping
// fills darken like highlighter ink and never occlude what is underneath.
func FillRectMultiply(dst *image.RGBA, r image.Rectangle, col color.NRGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sr := float64(col.R) / 255
	sg := float64(col.G) / 255
	sb := float64(col.B) / 255
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.Pix[i+0] = mulChannel(dst.Pix[i+0], sr, opacity)
			dst.Pix[i+1] = mulChannel(dst.Pix[i+1], sg, opacity)
			dst.Pix[i+2] = mulChannel(dst.Pix[i+2], sb, opacity)
			i += 4
		}
	}
}

// mulChannel blends one 8-bit channel: result = d*(1-a) + (d*s)*a.
func mulChannel(d uint8, s, a float64) uint8 {
	df := float64(d)
	out := df*(1-a) + df*s*a
	if out < 0 {
		return 0
	}
	if out > 255 {
		return 255
	}
	return uint8(out + 0.5)
}

// StrokeLine draws a line from (x0,y0) to (x1,y1) with the given thickness
// using Bresenham stepping with a square brush.
func StrokeLine(dst *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	if thick < 1 {
		thick = 1
	}
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		brush(dst, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func brush(dst *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if p := image.Pt(x+dx, y+dy); p.In(dst.Bounds()) {
				dst.Set(p.X, p.Y, col)
			}
		}
	}
}

// StrokePolyline connects consecutive points with StrokeLine.
func StrokePolyline(dst *image.RGBA, pts []image.Point, col color.Color, thick int) {
	for i := 1; i < len(pts); i++ {
		StrokeLine(dst, pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, col, thick)
	}
}

// DrawString paints s with its baseline at (x, y).
func DrawString(dst *image.RGBA, s string, x, y int, face font.Face, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
