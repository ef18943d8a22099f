package scripting

import (
	"context"

	"github.com/pagemark/pagemark/annotation"
	"github.com/pagemark/pagemark/engine"
	"github.com/pagemark/pagemark/gesture"
	"github.com/pagemark/pagemark/observability"
)

// editorDOM backs the script DOM with a live Editor session.
type editorDOM struct {
	ed    *engine.Editor
	log   observability.Logger
	color annotation.Color
	width float64
}

// NewEditorDOM wraps an Editor for script access. Alerts go to the logger.
func NewEditorDOM(ed *engine.Editor, log observability.Logger) DOM {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &editorDOM{ed: ed, log: log, width: gesture.DefaultStrokeWidth}
}

func (d *editorDOM) PageCount() int   { return d.ed.PageCount() }
func (d *editorDOM) CurrentPage() int { return d.ed.CurrentPage() }

func (d *editorDOM) GoToPage(n int) error {
	return d.ed.GoToPage(context.Background(), n)
}

func (d *editorDOM) SetColor(rgb uint32) {
	d.color = annotation.Color(rgb & 0xFFFFFF)
	d.ed.SetColor(d.color)
}

func (d *editorDOM) AddHighlight(page int, x1, y1, x2, y2 float64) {
	d.ed.AddAnnotation(&annotation.Highlight{
		PageNum: page,
		Start:   annotation.Point{X: x1, Y: y1},
		End:     annotation.Point{X: x2, Y: y2},
		Color:   d.color,
	})
}

func (d *editorDOM) AddDrawing(page int, points [][2]float64, width float64) {
	if len(points) < 2 {
		return
	}
	if width <= 0 {
		width = d.width
	}
	pts := make([]annotation.Point, len(points))
	for i, p := range points {
		pts[i] = annotation.Point{X: p[0], Y: p[1]}
	}
	d.ed.AddAnnotation(&annotation.Drawing{
		PageNum:     page,
		Points:      pts,
		Color:       d.color,
		StrokeWidth: width,
	})
}

func (d *editorDOM) AddNote(page int, x, y float64, text string) {
	if text == "" {
		return
	}
	d.ed.AddAnnotation(&annotation.TextNote{
		PageNum:  page,
		Position: annotation.Point{X: x, Y: y},
		Text:     text,
		Color:    d.color,
	})
}

func (d *editorDOM) Alert(message string) {
	d.log.Info("script alert", observability.String("message", message))
}
