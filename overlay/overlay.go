// Package overlay composites a page's annotations over its rasterized image.
// Every recomposite redraws all layers from current state; there is no
// incremental diffing, so composing twice with the same inputs yields
// identical surfaces.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"

	"github.com/pagemark/pagemark/annotation"
	"github.com/pagemark/pagemark/fonts"
	"github.com/pagemark/pagemark/gesture"
	"github.com/pagemark/pagemark/notetext"
	"github.com/pagemark/pagemark/raster"
)

// HighlightOpacity is the fixed opacity of highlight fills.
const HighlightOpacity = 0.35

// DefaultFontSize is the point size text notes render at.
const DefaultFontSize = 14

// BlendMode selects how fills combine with the pixels underneath.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
)

// Renderer composites annotation layers onto page rasters.
type Renderer struct {
	fontSize float64
	face     font.Face
	measurer *fonts.Measurer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFontSize overrides the note text size.
func WithFontSize(size float64) Option {
	return func(r *Renderer) { r.fontSize = size }
}

// NewRenderer builds a Renderer with its note face loaded.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{fontSize: DefaultFontSize}
	for _, opt := range opts {
		opt(r)
	}
	face, err := fonts.Face(r.fontSize)
	if err != nil {
		return nil, err
	}
	m, err := fonts.NewMeasurer()
	if err != nil {
		return nil, err
	}
	r.face = face
	r.measurer = m
	return r, nil
}

// paintState is the mutable style a layer paints with. Layers scope changes
// with save/restore so one annotation's style never leaks into the next.
type paintState struct {
	blend   BlendMode
	opacity float64
}

type painter struct {
	dst   *image.RGBA
	cur   paintState
	stack []paintState
}

func (p *painter) save()    { p.stack = append(p.stack, p.cur) }
func (p *painter) restore() {
	if n := len(p.stack); n > 0 {
		p.cur = p.stack[n-1]
		p.stack = p.stack[:n-1]
	}
}

func (p *painter) fillRect(r image.Rectangle, col color.NRGBA) {
	if p.cur.blend == BlendMultiply {
		raster.FillRectMultiply(p.dst, r, col, p.cur.opacity)
		return
	}
	raster.FillRect(p.dst, r, col)
}

// Compose paints the full overlay: the raw page image, committed highlights
// (multiply, 35%), committed drawings, committed notes, and finally any
// in-progress gesture so it stays visible above everything else.
func (r *Renderer) Compose(base image.Image, anns []annotation.Annotation, transient gesture.State, cfg gesture.Config) *image.RGBA {
	dst := image.NewRGBA(base.Bounds())
	draw.Draw(dst, dst.Bounds(), base, base.Bounds().Min, draw.Src)
	p := &painter{dst: dst, cur: paintState{blend: BlendNormal, opacity: 1}}

	p.save()
	p.cur = paintState{blend: BlendMultiply, opacity: HighlightOpacity}
	for _, a := range anns {
		if h, ok := a.(*annotation.Highlight); ok {
			r.paintHighlight(p, h)
		}
	}
	p.restore()

	p.save()
	for _, a := range anns {
		if d, ok := a.(*annotation.Drawing); ok {
			r.paintDrawing(p, d)
		}
	}
	p.restore()

	p.save()
	for _, a := range anns {
		if n, ok := a.(*annotation.TextNote); ok {
			r.paintNote(p, n)
		}
	}
	p.restore()

	r.paintTransient(p, transient, cfg)
	return dst
}

func (r *Renderer) paintHighlight(p *painter, h *annotation.Highlight) {
	min, max := h.Bounds()
	p.fillRect(pixelRect(min, max), h.Color.NRGBA(255))
}

func (r *Renderer) paintDrawing(p *painter, d *annotation.Drawing) {
	raster.StrokePolyline(p.dst, pixelPoints(d.Points), d.Color.NRGBA(255), int(math.Round(d.StrokeWidth)))
}

func (r *Renderer) paintNote(p *painter, n *annotation.TextNote) {
	maxWidth := float64(p.dst.Bounds().Max.X) - n.Position.X
	x := int(math.Round(n.Position.X))
	y := int(math.Round(n.Position.Y))
	leading := int(math.Round(r.fontSize * 1.3))
	for _, line := range notetext.Flatten(n.Text, n.Format) {
		for _, wrapped := range r.measurer.Wrap(line, r.fontSize, maxWidth) {
			raster.DrawString(p.dst, wrapped, x, y, r.face, n.Color.NRGBA(255))
			y += leading
		}
	}
}

func (r *Renderer) paintTransient(p *painter, st gesture.State, cfg gesture.Config) {
	switch st.Phase {
	case gesture.Drawing:
		width := cfg.StrokeWidth
		if width <= 0 {
			width = gesture.DefaultStrokeWidth
		}
		p.save()
		raster.StrokePolyline(p.dst, pixelPoints(st.Points), cfg.Color.NRGBA(255), int(math.Round(width)))
		p.restore()
	case gesture.Highlighting:
		h := &annotation.Highlight{Start: st.Start, End: st.Current, Color: cfg.Color}
		p.save()
		p.cur = paintState{blend: BlendMultiply, opacity: HighlightOpacity}
		r.paintHighlight(p, h)
		p.restore()
	}
}

func pixelRect(min, max annotation.Point) image.Rectangle {
	return image.Rect(
		int(math.Round(min.X)), int(math.Round(min.Y)),
		int(math.Round(max.X)), int(math.Round(max.Y)),
	)
}

func pixelPoints(pts []annotation.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, pt := range pts {
		out[i] = image.Pt(int(math.Round(pt.X)), int(math.Round(pt.Y)))
	}
	return out
}
