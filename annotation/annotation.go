// Package annotation defines the in-memory annotation model: the closed set
// of annotation kinds a user can place on a page, and the per-page store that
// holds them for the lifetime of a loaded document.
package annotation

import "image/color"

// Point is a pixel-space location on the rendered page at the scale it was
// captured.
type Point struct {
	X, Y float64
}

// Color is a 24-bit RGB value, 0xRRGGBB.
type Color uint32

// RGB packs three 8-bit channels into a Color.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// NRGBA returns the color with the given alpha for raster painting.
func (c Color) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: alpha}
}

// Normalized returns the channels as 0-1 floats, the form draw commands in
// document space expect.
func (c Color) Normalized() (r, g, b float64) {
	return float64(c.R()) / 255, float64(c.G()) / 255, float64(c.B()) / 255
}

// Kind tags the annotation variants.
type Kind int

const (
	KindHighlight Kind = iota
	KindDrawing
	KindTextNote
)

func (k Kind) String() string {
	switch k {
	case KindHighlight:
		return "highlight"
	case KindDrawing:
		return "drawing"
	case KindTextNote:
		return "textnote"
	}
	return "unknown"
}

// Format selects how a text note's source is interpreted when rendered.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
	FormatHTML
)

// Annotation is the closed sum of annotation variants. Renderer and exporter
// switch exhaustively on the concrete type.
type Annotation interface {
	Kind() Kind
	Page() int
}

// Highlight is an axis-aligned rectangle given by two opposite corners.
// Start and End may be in any relative order; Bounds normalizes.
type Highlight struct {
	PageNum    int
	Start, End Point
	Color      Color
}

func (h *Highlight) Kind() Kind { return KindHighlight }
func (h *Highlight) Page() int  { return h.PageNum }

// Bounds returns the min/max corners of the highlight rectangle.
func (h *Highlight) Bounds() (min, max Point) {
	min, max = h.Start, h.End
	if min.X > max.X {
		min.X, max.X = max.X, min.X
	}
	if min.Y > max.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	return min, max
}

// Drawing is a freehand polyline. A committed drawing always has at least
// two points.
type Drawing struct {
	PageNum     int
	Points      []Point
	Color       Color
	StrokeWidth float64
}

func (d *Drawing) Kind() Kind { return KindDrawing }
func (d *Drawing) Page() int  { return d.PageNum }

// TextNote is a text annotation anchored at a single point. Text is never
// empty on a committed note.
type TextNote struct {
	PageNum  int
	Position Point
	Text     string
	Format   Format
	Color    Color
}

func (n *TextNote) Kind() Kind { return KindTextNote }
func (n *TextNote) Page() int  { return n.PageNum }
