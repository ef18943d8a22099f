// Package author defines the document-authoring collaborator: loading a
// document for editing, reporting native page dimensions, and issuing draw
// commands in document space. The pdfLoader implementation backs the
// contract with the compact pdf package, so export works without external
// services.
package author

import (
	"context"
	"fmt"

	"github.com/pagemark/pagemark/pdf"
)

// Color is a normalized RGB triple, each channel in 0-1.
type Color struct {
	R, G, B float64
}

// RectOptions configures DrawRectangle. Highlight selects the multiply
// blend at 35% opacity used for baked highlights; otherwise the fill is
// opaque.
type RectOptions struct {
	Fill      Color
	Highlight bool
}

// TextOptions configures DrawText.
type TextOptions struct {
	Color    Color
	FontSize float64
}

// LineOptions configures DrawLine.
type LineOptions struct {
	Color Color
	Width float64
}

// Page exposes one editable page. Draw commands take document-space
// coordinates (origin bottom-left, points) and apply immediately.
type Page interface {
	NativeWidth() float64
	NativeHeight() float64
	DrawRectangle(x, y, width, height float64, opts RectOptions)
	DrawText(text string, x, y float64, opts TextOptions)
	DrawLine(x1, y1, x2, y2 float64, opts LineOptions)
}

// Document is a document opened for editing.
type Document interface {
	PageCount() int
	// Page returns the 1-indexed page.
	Page(n int) (Page, error)
	Serialize(ctx context.Context) ([]byte, error)
}

// Loader opens document bytes for editing.
type Loader interface {
	LoadForEditing(ctx context.Context, data []byte) (Document, error)
}

type pdfLoader struct{}

// NewPDFLoader returns a Loader backed by the pdf package.
func NewPDFLoader() Loader { return pdfLoader{} }

func (pdfLoader) LoadForEditing(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := pdf.Read(data)
	if err != nil {
		return nil, fmt.Errorf("load for editing: %w", err)
	}
	return &pdfDocument{doc: doc}, nil
}

type pdfDocument struct {
	doc *pdf.Document
}

func (d *pdfDocument) PageCount() int { return len(d.doc.Pages) }

func (d *pdfDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.doc.Pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, len(d.doc.Pages))
	}
	return &pdfPage{page: d.doc.Pages[n-1]}, nil
}

func (d *pdfDocument) Serialize(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pdf.Write(d.doc)
}

type pdfPage struct {
	page *pdf.Page
}

func (p *pdfPage) NativeWidth() float64  { return p.page.Width }
func (p *pdfPage) NativeHeight() float64 { return p.page.Height }

func (p *pdfPage) DrawRectangle(x, y, width, height float64, opts RectOptions) {
	var w pdf.ContentWriter
	w.Save()
	if opts.Highlight {
		w.SetExtGState(pdf.GSHighlight)
	} else {
		w.SetExtGState(pdf.GSNormal)
	}
	w.SetFillColor(opts.Fill.R, opts.Fill.G, opts.Fill.B)
	w.Rect(x, y, width, height)
	w.Fill()
	w.Restore()
	p.page.AppendContent(w.Bytes())
}

func (p *pdfPage) DrawText(text string, x, y float64, opts TextOptions) {
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	var w pdf.ContentWriter
	w.Save()
	w.SetExtGState(pdf.GSNormal)
	w.SetFillColor(opts.Color.R, opts.Color.G, opts.Color.B)
	w.ShowText(text, x, y, size)
	w.Restore()
	p.page.AppendContent(w.Bytes())
}

func (p *pdfPage) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) {
	width := opts.Width
	if width <= 0 {
		width = 1
	}
	var w pdf.ContentWriter
	w.Save()
	w.SetExtGState(pdf.GSNormal)
	w.SetStrokeColor(opts.Color.R, opts.Color.G, opts.Color.B)
	w.SetLineWidth(width)
	w.MoveTo(x1, y1)
	w.LineTo(x2, y2)
	w.Stroke()
	w.Restore()
	p.page.AppendContent(w.Bytes())
}

// NewBlankPDF builds an unannotated document with the given number of
// equally sized pages, for tests and the CLI.
func NewBlankPDF(pages int, width, height float64) ([]byte, error) {
	if pages < 1 {
		return nil, fmt.Errorf("need at least one page")
	}
	doc := pdf.New()
	for i := 0; i < pages; i++ {
		doc.AddPage(width, height)
	}
	return pdf.Write(doc)
}
