// Package observability defines the logging and tracing hooks threaded
// through the annotation engine. All components default to the no-op
// implementations; callers opt in by supplying their own.
package observability

import (
	"context"
	"log/slog"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type stringField struct{ key, val string }

func (f stringField) Key() string        { return f.key }
func (f stringField) Value() interface{} { return f.val }

type intField struct {
	key string
	val int
}

func (f intField) Key() string        { return f.key }
func (f intField) Value() interface{} { return f.val }

type float64Field struct {
	key string
	val float64
}

func (f float64Field) Key() string        { return f.key }
func (f float64Field) Value() interface{} { return f.val }

type errorField struct {
	key string
	err error
}

func (f errorField) Key() string        { return f.key }
func (f errorField) Value() interface{} { return f.err }

func String(key, value string) Field        { return stringField{key, value} }
func Int(key string, value int) Field       { return intField{key, value} }
func Float64(key string, v float64) Field   { return float64Field{key, v} }
func Error(key string, err error) Field     { return errorField{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

func (s SlogLogger) log(fn func(string, ...any), msg string, fields []Field) {
	args := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		args = append(args, f.Key(), f.Value())
	}
	fn(msg, args...)
}

func (s SlogLogger) Debug(msg string, fields ...Field) { s.log(s.L.Debug, msg, fields) }
func (s SlogLogger) Info(msg string, fields ...Field)  { s.log(s.L.Info, msg, fields) }
func (s SlogLogger) Warn(msg string, fields ...Field)  { s.log(s.L.Warn, msg, fields) }
func (s SlogLogger) Error(msg string, fields ...Field) { s.log(s.L.Error, msg, fields) }
func (s SlogLogger) With(fields ...Field) Logger {
	args := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		args = append(args, f.Key(), f.Value())
	}
	return SlogLogger{L: s.L.With(args...)}
}

// Tracer provides tracing hooks for engine operations.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span represents a tracing span.
type Span interface {
	SetTag(key string, value interface{})
	SetError(err error)
	Finish()
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// NopTracer returns a tracer that does nothing.
func NopTracer() Tracer { return nopTracer{} }

type nopSpan struct{}

func (nopSpan) SetTag(string, interface{}) {}
func (nopSpan) SetError(error)             {}
func (nopSpan) Finish()                    {}

// Standard metric names emitted by the engine.
const (
	MetricLoadTime        = "annot.load.duration"
	MetricRenderTime      = "annot.render.duration"
	MetricExportTime      = "annot.export.duration"
	MetricAnnotationCount = "annot.store.count"
	MetricPageCount       = "annot.pages.count"
	MetricGeneration      = "annot.generation"
)
