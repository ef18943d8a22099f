// Package fonts provides the faces and text measurement the overlay renderer
// uses for note text. Rendering faces come from the embedded Go Regular
// font; widths are measured by shaping the text, so wrapping positions match
// what is actually painted.
package fonts

import (
	"bytes"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce sync.Once
	parsed    *opentype.Font
	parseErr  error

	faceMu sync.Mutex
	faces  = map[float64]font.Face{}
)

// Face returns a rendering face at the given point size. Faces are cached by
// size.
func Face(size float64) (font.Face, error) {
	parseOnce.Do(func() {
		parsed, parseErr = opentype.Parse(goregular.TTF)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	if f, ok := faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	faces[size] = f
	return f, nil
}

// Measurer computes advance widths by shaping text with the same font the
// renderer paints with.
type Measurer struct {
	face   *gofont.Face
	shaper shaping.HarfbuzzShaper
}

// NewMeasurer parses the embedded font for shaping.
func NewMeasurer() (*Measurer, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, err
	}
	return &Measurer{face: face}, nil
}

// Width returns the advance width of s at the given point size, in pixels.
func (m *Measurer) Width(s string, size float64) float64 {
	if s == "" {
		return 0
	}
	runes := []rune(s)
	out := m.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      m.face,
		Size:      fixed.Int26_6(size * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	})
	var w fixed.Int26_6
	for _, g := range out.Glyphs {
		w += g.XAdvance
	}
	return float64(w) / 64.0
}

// Wrap breaks s into lines that fit maxWidth pixels at the given size,
// splitting on spaces. A single word wider than maxWidth gets its own line
// rather than being broken mid-word.
func (m *Measurer) Wrap(s string, size, maxWidth float64) []string {
	if maxWidth <= 0 {
		return []string{s}
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if m.Width(cur+" "+w, size) <= maxWidth {
				cur += " " + w
				continue
			}
			lines = append(lines, cur)
			cur = w
		}
		lines = append(lines, cur)
	}
	return lines
}
