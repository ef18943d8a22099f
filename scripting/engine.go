// Package scripting runs user scripts against an annotation session. Scripts
// see the document through a small DOM: page navigation plus programmatic
// annotation placement.
package scripting

import "context"

// Engine executes scripts against a registered DOM.
type Engine interface {
	// Execute runs the script, honoring ctx cancellation mid-execution.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDOM exposes the annotation session to scripts.
	RegisterDOM(dom DOM) error
}

// DOM is the controlled surface scripts interact with. Pages are 1-indexed,
// coordinates are pixel space on the current raster, colors are 0xRRGGBB.
type DOM interface {
	PageCount() int
	CurrentPage() int
	GoToPage(n int) error
	SetColor(rgb uint32)
	AddHighlight(page int, x1, y1, x2, y2 float64)
	AddDrawing(page int, points [][2]float64, width float64)
	AddNote(page int, x, y float64, text string)
	Alert(message string)
}
