package coords

import (
	"errors"
	"math"
)

// Point is a location in a two-dimensional coordinate space. Which space it
// lives in (pixel or document) is determined by context.
type Point struct {
	X, Y float64
}

// Matrix is a 2D affine transform in the usual [a b c d e f] layout.
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a scaling transform.
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Multiply returns m followed by o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies m to p.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Inverse returns the inverse transform, or an error if m is singular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("coords: matrix singular")
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// ErrNoRaster reports a page whose pixel dimensions are not yet known, which
// makes the pixel/document projection undefined.
var ErrNoRaster = errors.New("coords: page has zero pixel dimensions")

// PageMap relates the rasterized pixel grid of a page (origin top-left) to
// the document's native coordinate space (origin bottom-left). Annotations
// are captured in pixel space and projected through a PageMap at export time.
type PageMap struct {
	PixelWidth, PixelHeight float64
	DocWidth, DocHeight     float64
}

// NewPageMap builds the projection for a page rendered at the given pixel
// size. It fails if the page has not been rasterized yet.
func NewPageMap(pixelW, pixelH, docW, docH float64) (PageMap, error) {
	if pixelW <= 0 || pixelH <= 0 {
		return PageMap{}, ErrNoRaster
	}
	return PageMap{PixelWidth: pixelW, PixelHeight: pixelH, DocWidth: docW, DocHeight: docH}, nil
}

// ScaleX is the document units per pixel on the horizontal axis.
func (m PageMap) ScaleX() float64 { return m.DocWidth / m.PixelWidth }

// ScaleY is the document units per pixel on the vertical axis.
func (m PageMap) ScaleY() float64 { return m.DocHeight / m.PixelHeight }

// ToDocument projects a pixel-space point into document space, flipping the
// vertical axis.
func (m PageMap) ToDocument(p Point) Point {
	return Point{
		X: p.X * m.ScaleX(),
		Y: m.DocHeight - p.Y*m.ScaleY(),
	}
}

// ToPixel is the inverse of ToDocument.
func (m PageMap) ToPixel(p Point) Point {
	return Point{
		X: p.X / m.ScaleX(),
		Y: (m.DocHeight - p.Y) / m.ScaleY(),
	}
}
