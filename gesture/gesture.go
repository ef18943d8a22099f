// Package gesture turns raw pointer events into committed annotations. The
// transition logic is a pure reducer over an explicit state value, so it can
// be tested without a live rendering surface.
package gesture

import "github.com/pagemark/pagemark/annotation"

// Tool selects which transition table applies to incoming pointer events.
type Tool int

const (
	ToolSelect Tool = iota
	ToolHighlight
	ToolDraw
	ToolText
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolHighlight:
		return "highlight"
	case ToolDraw:
		return "draw"
	case ToolText:
		return "text"
	}
	return "unknown"
}

// DefaultStrokeWidth is the stroke width committed drawings carry.
const DefaultStrokeWidth = 2

// EventType enumerates pointer event kinds. Leave is delivered when the
// pointer exits the capture surface mid-drag and finalizes like Up, using
// the last known position.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	PointerLeave
)

// PointerEvent is a single raw pointer sample in pixel space.
type PointerEvent struct {
	Type EventType
	Pos  annotation.Point
}

// Phase names the transient gesture states.
type Phase int

const (
	Idle Phase = iota
	Drawing
	Highlighting
)

// State is the transient gesture state. The zero value is Idle.
type State struct {
	Phase          Phase
	Points         []annotation.Point // accumulating polyline while Drawing
	Start, Current annotation.Point   // corners while Highlighting
}

// Config is the external tool configuration the reducer reads.
type Config struct {
	Tool        Tool
	Color       annotation.Color
	StrokeWidth float64
}

// Result is what applying one event produces: the next state, an optional
// committed annotation, an optional request for text input, and whether the
// overlay needs recompositing.
type Result struct {
	State       State
	Commit      annotation.Annotation
	TextRequest *annotation.Point
	Redraw      bool
}

// Apply advances the state machine by one pointer event. page is the page
// displayed at the moment of the event; a commit always carries it.
func Apply(st State, cfg Config, page int, ev PointerEvent) Result {
	switch st.Phase {
	case Drawing:
		return applyDrawing(st, cfg, page, ev)
	case Highlighting:
		return applyHighlighting(st, cfg, page, ev)
	}
	return applyIdle(st, cfg, page, ev)
}

func applyIdle(st State, cfg Config, page int, ev PointerEvent) Result {
	if ev.Type != PointerDown {
		return Result{State: st}
	}
	switch cfg.Tool {
	case ToolDraw:
		return Result{
			State:  State{Phase: Drawing, Points: []annotation.Point{ev.Pos}},
			Redraw: true,
		}
	case ToolHighlight:
		return Result{
			State:  State{Phase: Highlighting, Start: ev.Pos, Current: ev.Pos},
			Redraw: true,
		}
	case ToolText:
		// No transient state: the caller solicits the text and commits via
		// CommitText once a non-empty response arrives.
		pos := ev.Pos
		return Result{State: st, TextRequest: &pos}
	}
	return Result{State: st}
}

func applyDrawing(st State, cfg Config, page int, ev PointerEvent) Result {
	switch ev.Type {
	case PointerMove:
		st.Points = append(st.Points, ev.Pos)
		return Result{State: st, Redraw: true}
	case PointerUp, PointerLeave:
		// Single-click drags never produce an annotation.
		if len(st.Points) < 2 {
			return Result{State: State{}, Redraw: true}
		}
		width := cfg.StrokeWidth
		if width <= 0 {
			width = DefaultStrokeWidth
		}
		return Result{
			State: State{},
			Commit: &annotation.Drawing{
				PageNum:     page,
				Points:      st.Points,
				Color:       cfg.Color,
				StrokeWidth: width,
			},
			Redraw: true,
		}
	}
	return Result{State: st}
}

func applyHighlighting(st State, cfg Config, page int, ev PointerEvent) Result {
	switch ev.Type {
	case PointerMove:
		st.Current = ev.Pos
		return Result{State: st, Redraw: true}
	case PointerUp, PointerLeave:
		end := ev.Pos
		if ev.Type == PointerLeave {
			end = st.Current
		}
		// Corners are stored as captured; min/max normalization happens at
		// render and export time.
		return Result{
			State: State{},
			Commit: &annotation.Highlight{
				PageNum: page,
				Start:   st.Start,
				End:     end,
				Color:   cfg.Color,
			},
			Redraw: true,
		}
	}
	return Result{State: st}
}

// Abandon discards any in-progress gesture without committing it. Called on
// tool changes, page changes, and document reloads.
func Abandon(st State) (State, bool) {
	return State{}, st.Phase != Idle
}

// CommitText builds the annotation for a text-input response. It returns nil
// when the response is empty or whitespace-only, which means no annotation
// is created.
func CommitText(cfg Config, page int, pos annotation.Point, text string, format annotation.Format) annotation.Annotation {
	if isBlank(text) {
		return nil
	}
	return &annotation.TextNote{
		PageNum:  page,
		Position: pos,
		Text:     text,
		Format:   format,
		Color:    cfg.Color,
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
