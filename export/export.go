// Package export bakes a page's annotations into the document itself. It
// projects each pixel-space annotation into document space and replays it
// through the authoring collaborator, then serializes the result.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/pagemark/pagemark/annotation"
	"github.com/pagemark/pagemark/author"
	"github.com/pagemark/pagemark/coords"
	"github.com/pagemark/pagemark/notetext"
	"github.com/pagemark/pagemark/observability"
)

// Error reports a failed export. The in-memory annotation state is never
// touched by a failing export; callers keep what the user drew.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("export: %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func fail(stage string, err error) error { return &Error{Stage: stage, Err: err} }

// NoteFontSize is the document-space point size baked text notes use.
const NoteFontSize = 12

// Request carries everything one export needs.
type Request struct {
	// Data is the original document bytes, not the previously exported ones.
	Data []byte
	// Page is the 1-indexed page whose annotations are baked.
	Page int
	// Annotations are the page's committed annotations in pixel space.
	Annotations []annotation.Annotation
	// PixelWidth and PixelHeight are the rendered pixel dimensions the
	// annotations were captured against.
	PixelWidth, PixelHeight float64
}

// Pipeline projects and bakes annotations via an authoring Loader.
type Pipeline struct {
	loader author.Loader
	log    observability.Logger
}

// NewPipeline builds a Pipeline. A nil logger disables logging.
func NewPipeline(loader author.Loader, log observability.Logger) *Pipeline {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Pipeline{loader: loader, log: log}
}

// Run performs one export and returns the serialized document bytes. Any
// collaborator failure surfaces as *Error; no partial output is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	doc, err := p.loader.LoadForEditing(ctx, req.Data)
	if err != nil {
		return nil, fail("load document", err)
	}
	page, err := doc.Page(req.Page)
	if err != nil {
		return nil, fail("fetch page", err)
	}
	pm, err := coords.NewPageMap(req.PixelWidth, req.PixelHeight, page.NativeWidth(), page.NativeHeight())
	if err != nil {
		return nil, fail("page projection", err)
	}

	for _, a := range req.Annotations {
		switch t := a.(type) {
		case *annotation.Highlight:
			bakeHighlight(page, pm, t)
		case *annotation.Drawing:
			bakeDrawing(page, pm, t)
		case *annotation.TextNote:
			bakeNote(page, pm, t)
		default:
			return nil, fail("project annotation", fmt.Errorf("unknown annotation kind %v", a.Kind()))
		}
	}

	out, err := doc.Serialize(ctx)
	if err != nil {
		return nil, fail("serialize", err)
	}
	p.log.Info("export complete",
		observability.Int("page", req.Page),
		observability.Int("annotations", len(req.Annotations)),
		observability.Float64(observability.MetricExportTime, time.Since(start).Seconds()),
	)
	return out, nil
}

func toColor(c annotation.Color) author.Color {
	r, g, b := c.Normalized()
	return author.Color{R: r, G: g, B: b}
}

func bakeHighlight(page author.Page, pm coords.PageMap, h *annotation.Highlight) {
	min, max := h.Bounds()
	// Pixel min corner is the document-space top-left; the rectangle origin
	// in document space is the bottom-left.
	tl := pm.ToDocument(coords.Point{X: min.X, Y: min.Y})
	br := pm.ToDocument(coords.Point{X: max.X, Y: max.Y})
	page.DrawRectangle(tl.X, br.Y, br.X-tl.X, tl.Y-br.Y, author.RectOptions{
		Fill:      toColor(h.Color),
		Highlight: true,
	})
}

func bakeDrawing(page author.Page, pm coords.PageMap, d *annotation.Drawing) {
	width := d.StrokeWidth * pm.ScaleX()
	for i := 1; i < len(d.Points); i++ {
		a := pm.ToDocument(coords.Point{X: d.Points[i-1].X, Y: d.Points[i-1].Y})
		b := pm.ToDocument(coords.Point{X: d.Points[i].X, Y: d.Points[i].Y})
		page.DrawLine(a.X, a.Y, b.X, b.Y, author.LineOptions{
			Color: toColor(d.Color),
			Width: width,
		})
	}
}

func bakeNote(page author.Page, pm coords.PageMap, n *annotation.TextNote) {
	pos := pm.ToDocument(coords.Point{X: n.Position.X, Y: n.Position.Y})
	y := pos.Y
	for _, line := range notetext.Flatten(n.Text, n.Format) {
		page.DrawText(line, pos.X, y, author.TextOptions{
			Color:    toColor(n.Color),
			FontSize: NoteFontSize,
		})
		y -= NoteFontSize * 1.3
	}
}
