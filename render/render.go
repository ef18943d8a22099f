// Package render defines the document-rendering collaborator: loading a
// document and rasterizing its pages at a scale factor. The built-in service
// rasterizes documents written by the pdf package, replaying their content
// streams so previously baked annotations stay visible.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pagemark/pagemark/contentstream"
	"github.com/pagemark/pagemark/fonts"
	"github.com/pagemark/pagemark/pdf"
	"github.com/pagemark/pagemark/raster"
)

// ErrLoad tags document sources that cannot be decoded.
var ErrLoad = errors.New("render: document load failed")

// Raster is one rasterized page.
type Raster struct {
	PixelWidth, PixelHeight int
	Image                   *image.RGBA
}

// PageHandle rasterizes one page.
type PageHandle interface {
	Rasterize(ctx context.Context, scale float64) (Raster, error)
}

// DocumentHandle is a loaded, page-addressable document.
type DocumentHandle interface {
	PageCount() int
	// Page returns the 1-indexed page handle.
	Page(ctx context.Context, n int) (PageHandle, error)
}

// Service loads document bytes for rasterization.
type Service interface {
	Load(ctx context.Context, data []byte) (DocumentHandle, error)
}

type pdfService struct{}

// NewPDFService returns a Service for documents written by the pdf package.
func NewPDFService() Service { return pdfService{} }

func (pdfService) Load(ctx context.Context, data []byte) (DocumentHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := pdf.Read(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return &pdfHandle{doc: doc}, nil
}

type pdfHandle struct {
	doc *pdf.Document
}

func (h *pdfHandle) PageCount() int { return len(h.doc.Pages) }

func (h *pdfHandle) Page(ctx context.Context, n int) (PageHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > len(h.doc.Pages) {
		return nil, fmt.Errorf("%w: page %d out of range [1, %d]", ErrLoad, n, len(h.doc.Pages))
	}
	return &pdfPageHandle{page: h.doc.Pages[n-1]}, nil
}

type pdfPageHandle struct {
	page *pdf.Page
}

func (p *pdfPageHandle) Rasterize(ctx context.Context, scale float64) (Raster, error) {
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}
	if scale <= 0 {
		return Raster{}, fmt.Errorf("render: scale %v not positive", scale)
	}
	w := int(math.Round(p.page.Width * scale))
	h := int(math.Round(p.page.Height * scale))
	if w < 1 || h < 1 {
		return Raster{}, fmt.Errorf("render: page rasterizes to zero pixels")
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	raster.FillRect(img, img.Bounds(), color.White)

	if len(p.page.Content) > 0 {
		if err := replay(img, p.page, scale); err != nil {
			return Raster{}, fmt.Errorf("render: replay content: %w", err)
		}
	}
	return Raster{PixelWidth: w, PixelHeight: h, Image: img}, nil
}

// replay executes the page content stream against painting handlers. The
// supported operator subset matches what the authoring backend emits.
func replay(img *image.RGBA, page *pdf.Page, scale float64) error {
	pageH := page.Height
	toPixel := func(x, y float64) (int, int) {
		return int(math.Round(x * scale)), int(math.Round((pageH - y) * scale))
	}

	type pathPoint struct{ x, y float64 }
	var rects [][4]float64
	var path []pathPoint
	textSize := 12.0
	textX, textY := 0.0, 0.0

	p := contentstream.NewProcessor()
	p.Register("q", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, _ []contentstream.Operand) error {
		gs.Save()
		return nil
	}))
	p.Register("Q", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, _ []contentstream.Operand) error {
		return gs.Restore()
	}))
	p.Register("gs", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, operands []contentstream.Operand) error {
		if len(operands) == 0 {
			return errors.New("gs without operand")
		}
		name, ok := operands[len(operands)-1].(contentstream.Name)
		if !ok {
			return errors.New("gs operand is not a name")
		}
		switch pdf.Name(name) {
		case pdf.GSHighlight:
			gs.Multiply = true
			gs.FillAlpha = pdf.HighlightOpacity
		case pdf.GSNormal:
			gs.Multiply = false
			gs.FillAlpha = 1
		}
		return nil
	}))
	p.Register("w", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 1)
		if err != nil {
			return err
		}
		gs.LineWidth = vals[0]
		return nil
	}))
	p.Register("rg", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 3)
		if err != nil {
			return err
		}
		gs.FillR, gs.FillG, gs.FillB = vals[0], vals[1], vals[2]
		return nil
	}))
	p.Register("RG", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 3)
		if err != nil {
			return err
		}
		gs.StrokeR, gs.StrokeG, gs.StrokeB = vals[0], vals[1], vals[2]
		return nil
	}))
	p.Register("re", contentstream.HandlerFunc(func(_ *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 4)
		if err != nil {
			return err
		}
		rects = append(rects, [4]float64{vals[0], vals[1], vals[2], vals[3]})
		return nil
	}))
	p.Register("f", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, _ []contentstream.Operand) error {
		col := color.NRGBA{
			R: channel(gs.FillR),
			G: channel(gs.FillG),
			B: channel(gs.FillB),
			A: 255,
		}
		for _, rc := range rects {
			x0, y0 := toPixel(rc[0], rc[1]+rc[3])
			x1, y1 := toPixel(rc[0]+rc[2], rc[1])
			r := image.Rect(x0, y0, x1, y1)
			if gs.Multiply {
				raster.FillRectMultiply(img, r, col, gs.FillAlpha)
			} else {
				raster.FillRect(img, r, col)
			}
		}
		rects = rects[:0]
		return nil
	}))
	p.Register("m", contentstream.HandlerFunc(func(_ *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 2)
		if err != nil {
			return err
		}
		path = append(path, pathPoint{vals[0], vals[1]})
		return nil
	}))
	p.Register("l", contentstream.HandlerFunc(func(_ *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 2)
		if err != nil {
			return err
		}
		path = append(path, pathPoint{vals[0], vals[1]})
		return nil
	}))
	p.Register("S", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, _ []contentstream.Operand) error {
		col := color.NRGBA{
			R: channel(gs.StrokeR),
			G: channel(gs.StrokeG),
			B: channel(gs.StrokeB),
			A: 255,
		}
		thick := int(math.Round(gs.LineWidth * scale))
		pts := make([]image.Point, len(path))
		for i, pt := range path {
			x, y := toPixel(pt.x, pt.y)
			pts[i] = image.Pt(x, y)
		}
		raster.StrokePolyline(img, pts, col, thick)
		path = path[:0]
		return nil
	}))
	p.Register("Tf", contentstream.HandlerFunc(func(_ *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 1)
		if err != nil {
			return err
		}
		textSize = vals[0]
		return nil
	}))
	p.Register("Td", contentstream.HandlerFunc(func(_ *contentstream.GraphicsState, operands []contentstream.Operand) error {
		vals, err := contentstream.Numbers(operands, 2)
		if err != nil {
			return err
		}
		textX, textY = vals[0], vals[1]
		return nil
	}))
	p.Register("Tj", contentstream.HandlerFunc(func(gs *contentstream.GraphicsState, operands []contentstream.Operand) error {
		if len(operands) == 0 {
			return errors.New("Tj without operand")
		}
		s, ok := operands[len(operands)-1].(contentstream.Str)
		if !ok {
			return errors.New("Tj operand is not a string")
		}
		face, err := fonts.Face(textSize * scale)
		if err != nil {
			return err
		}
		col := color.NRGBA{
			R: channel(gs.FillR),
			G: channel(gs.FillG),
			B: channel(gs.FillB),
			A: 255,
		}
		x, y := toPixel(textX, textY)
		raster.DrawString(img, string(s), x, y, face, col)
		return nil
	}))

	return p.Process(page.Content, contentstream.NewGraphicsState())
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
