package pdf

import (
	"bytes"
	"fmt"
)

// ContentWriter accumulates page content stream operators. All coordinates
// are in document space (origin bottom-left, units points).
type ContentWriter struct {
	buf bytes.Buffer
}

func (w *ContentWriter) op(operator string, operands ...float64) {
	for _, v := range operands {
		w.buf.WriteString(formatNumber(v))
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(operator)
	w.buf.WriteByte('\n')
}

// Save pushes the graphics state (q).
func (w *ContentWriter) Save() { w.op("q") }

// Restore pops the graphics state (Q).
func (w *ContentWriter) Restore() { w.op("Q") }

// SetExtGState selects a named graphics state from page resources (gs).
func (w *ContentWriter) SetExtGState(name Name) {
	fmt.Fprintf(&w.buf, "/%s gs\n", name)
}

// SetFillColor sets the nonstroking color (rg), channels in 0-1.
func (w *ContentWriter) SetFillColor(r, g, b float64) { w.op("rg", r, g, b) }

// SetStrokeColor sets the stroking color (RG), channels in 0-1.
func (w *ContentWriter) SetStrokeColor(r, g, b float64) { w.op("RG", r, g, b) }

// SetLineWidth sets the stroke width in points (w).
func (w *ContentWriter) SetLineWidth(width float64) { w.op("w", width) }

// Rect appends a rectangle subpath (re).
func (w *ContentWriter) Rect(x, y, width, height float64) { w.op("re", x, y, width, height) }

// Fill fills the current path (f).
func (w *ContentWriter) Fill() { w.op("f") }

// MoveTo begins a subpath (m).
func (w *ContentWriter) MoveTo(x, y float64) { w.op("m", x, y) }

// LineTo extends the subpath (l).
func (w *ContentWriter) LineTo(x, y float64) { w.op("l", x, y) }

// Stroke strokes the current path (S).
func (w *ContentWriter) Stroke() { w.op("S") }

// ShowText paints s at (x, y) with the page font at the given size
// (BT/Tf/Td/Tj/ET).
func (w *ContentWriter) ShowText(s string, x, y, size float64) {
	w.buf.WriteString("BT\n")
	fmt.Fprintf(&w.buf, "/%s %s Tf\n", FontResource, formatNumber(size))
	w.op("Td", x, y)
	String(s).writeTo(&w.buf)
	w.buf.WriteString(" Tj\nET\n")
}

// Bytes returns the accumulated operators.
func (w *ContentWriter) Bytes() []byte {
	return bytes.TrimRight(w.buf.Bytes(), "\n")
}
