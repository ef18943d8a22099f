// Package contentstream tokenizes and executes PDF page content streams.
// The rasterizer registers operator handlers and replays a page's content
// through a Processor to repaint previously baked annotations.
package contentstream

import (
	"errors"
	"fmt"
)

// Operand is a decoded operand value.
type Operand interface{ operand() }

// Number is a numeric operand.
type Number float64

func (Number) operand() {}

// Name is a /Name operand without the slash.
type Name string

func (Name) operand() {}

// Str is a literal string operand with escapes resolved.
type Str string

func (Str) operand() {}

// GraphicsState tracks the subset of PDF graphics state the rasterizer
// needs. Save and Restore implement the q/Q stack.
type GraphicsState struct {
	FillR, FillG, FillB       float64
	StrokeR, StrokeG, StrokeB float64
	LineWidth                 float64
	FillAlpha                 float64
	Multiply                  bool

	stack []GraphicsState
}

// NewGraphicsState returns the default state: black, hairline, opaque.
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{LineWidth: 1, FillAlpha: 1}
}

// Save pushes a copy of the current state.
func (gs *GraphicsState) Save() {
	clone := *gs
	clone.stack = nil
	gs.stack = append(gs.stack, clone)
}

// Restore pops the last saved state.
func (gs *GraphicsState) Restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("contentstream: state stack empty")
	}
	saved := gs.stack[n-1]
	saved.stack = gs.stack[:n-1]
	*gs = saved
	return nil
}

// Handler executes one operator.
type Handler interface {
	Handle(gs *GraphicsState, operands []Operand) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(gs *GraphicsState, operands []Operand) error

func (f HandlerFunc) Handle(gs *GraphicsState, operands []Operand) error {
	return f(gs, operands)
}

// Processor dispatches content stream operators to registered handlers.
// Unregistered operators are skipped; their operands are discarded.
type Processor struct {
	handlers map[string]Handler
}

// NewProcessor returns an empty processor.
func NewProcessor() *Processor {
	return &Processor{handlers: make(map[string]Handler)}
}

// Register installs h for the given operator.
func (p *Processor) Register(op string, h Handler) {
	p.handlers[op] = h
}

// Process tokenizes stream and executes it against gs.
func (p *Processor) Process(stream []byte, gs *GraphicsState) error {
	toks, err := tokenize(stream)
	if err != nil {
		return err
	}
	operands := make([]Operand, 0, 8)
	for _, tok := range toks {
		switch tok.kind {
		case tokNumber:
			operands = append(operands, Number(tok.num))
		case tokName:
			operands = append(operands, Name(tok.text))
		case tokString:
			operands = append(operands, Str(tok.text))
		case tokOperator:
			if h, ok := p.handlers[tok.text]; ok {
				if err := h.Handle(gs, operands); err != nil {
					return fmt.Errorf("operator %s: %w", tok.text, err)
				}
			}
			operands = operands[:0]
		}
	}
	return nil
}

// Numbers extracts exactly n numeric operands.
func Numbers(operands []Operand, n int) ([]float64, error) {
	if len(operands) < n {
		return nil, fmt.Errorf("want %d operands, have %d", n, len(operands))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, ok := operands[len(operands)-n+i].(Number)
		if !ok {
			return nil, fmt.Errorf("operand %d is not a number", i)
		}
		out[i] = float64(v)
	}
	return out, nil
}
