package scripting

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

var errInvalidPoints = errors.New("scripting: points must be an array of [x, y] pairs")

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	return &GojaEngine{vm: goja.New()}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause := interrupted.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

// RegisterDOM installs the script globals: a 'doc' object for navigation and
// annotation placement, and 'app.alert'.
func (e *GojaEngine) RegisterDOM(dom DOM) error {
	appObj := e.vm.NewObject()
	if err := appObj.Set("alert", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		dom.Alert(msg)
		return goja.Undefined()
	}); err != nil {
		return err
	}
	if err := e.vm.Set("app", appObj); err != nil {
		return err
	}

	docObj := e.vm.NewObject()
	bindings := map[string]func(goja.FunctionCall) goja.Value{
		"pageCount": func(goja.FunctionCall) goja.Value {
			return e.vm.ToValue(dom.PageCount())
		},
		"currentPage": func(goja.FunctionCall) goja.Value {
			return e.vm.ToValue(dom.CurrentPage())
		},
		"goToPage": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 1 {
				return goja.Undefined()
			}
			if err := dom.GoToPage(int(call.Arguments[0].ToInteger())); err != nil {
				panic(e.vm.ToValue(err.Error()))
			}
			return goja.Undefined()
		},
		"setColor": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 1 {
				return goja.Undefined()
			}
			rgb, err := colorArg(call.Arguments[0])
			if err != nil {
				panic(e.vm.ToValue(err.Error()))
			}
			dom.SetColor(rgb)
			return goja.Undefined()
		},
		"addHighlight": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 5 {
				panic(e.vm.ToValue("addHighlight needs page, x1, y1, x2, y2"))
			}
			dom.AddHighlight(
				int(call.Arguments[0].ToInteger()),
				call.Arguments[1].ToFloat(),
				call.Arguments[2].ToFloat(),
				call.Arguments[3].ToFloat(),
				call.Arguments[4].ToFloat(),
			)
			return goja.Undefined()
		},
		"addDrawing": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				panic(e.vm.ToValue("addDrawing needs page and points"))
			}
			pts, err := pointsArg(call.Arguments[1])
			if err != nil {
				panic(e.vm.ToValue(err.Error()))
			}
			width := 0.0
			if len(call.Arguments) > 2 {
				width = call.Arguments[2].ToFloat()
			}
			dom.AddDrawing(int(call.Arguments[0].ToInteger()), pts, width)
			return goja.Undefined()
		},
		"addNote": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 4 {
				panic(e.vm.ToValue("addNote needs page, x, y, text"))
			}
			dom.AddNote(
				int(call.Arguments[0].ToInteger()),
				call.Arguments[1].ToFloat(),
				call.Arguments[2].ToFloat(),
				call.Arguments[3].String(),
			)
			return goja.Undefined()
		},
	}
	for name, fn := range bindings {
		if err := docObj.Set(name, fn); err != nil {
			return err
		}
	}
	return e.vm.Set("doc", docObj)
}

// colorArg accepts a numeric 0xRRGGBB or a "#RRGGBB" string.
func colorArg(v goja.Value) (uint32, error) {
	if s, ok := v.Export().(string); ok {
		s = strings.TrimPrefix(s, "#")
		n, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, err
		}
		return uint32(n), nil
	}
	return uint32(v.ToInteger()), nil
}

// pointsArg converts a JS array of [x, y] pairs.
func pointsArg(v goja.Value) ([][2]float64, error) {
	exported := v.Export()
	rows, ok := exported.([]interface{})
	if !ok {
		return nil, errInvalidPoints
	}
	out := make([][2]float64, 0, len(rows))
	for _, row := range rows {
		pair, ok := row.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, errInvalidPoints
		}
		x, xok := toFloat(pair[0])
		y, yok := toFloat(pair[1])
		if !xok || !yok {
			return nil, errInvalidPoints
		}
		out = append(out, [2]float64{x, y})
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
