package gesture

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pagemark/pagemark/annotation"
)

func drawCfg() Config {
	return Config{Tool: ToolDraw, Color: annotation.RGB(0, 0, 0xFF), StrokeWidth: DefaultStrokeWidth}
}

func TestDrawThreePointGesture(t *testing.T) {
	cfg := drawCfg()
	st := State{}

	events := []PointerEvent{
		{Type: PointerDown, Pos: annotation.Point{X: 0, Y: 0}},
		{Type: PointerMove, Pos: annotation.Point{X: 10, Y: 0}},
		{Type: PointerMove, Pos: annotation.Point{X: 10, Y: 10}},
	}
	for _, ev := range events {
		res := Apply(st, cfg, 1, ev)
		if res.Commit != nil {
			t.Fatalf("unexpected commit on %v", ev.Type)
		}
		st = res.State
	}
	res := Apply(st, cfg, 1, PointerEvent{Type: PointerUp, Pos: annotation.Point{X: 10, Y: 10}})
	d, ok := res.Commit.(*annotation.Drawing)
	if !ok {
		t.Fatalf("commit = %T, want *annotation.Drawing", res.Commit)
	}
	want := []annotation.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	if diff := cmp.Diff(want, d.Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
	if d.PageNum != 1 || d.StrokeWidth != DefaultStrokeWidth || d.Color != cfg.Color {
		t.Fatalf("commit fields wrong: %+v", d)
	}
	if res.State.Phase != Idle {
		t.Fatalf("state not idle after commit")
	}
}

func TestDrawSingleClickDiscarded(t *testing.T) {
	cfg := drawCfg()
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 5, Y: 5}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerUp, Pos: annotation.Point{X: 5, Y: 5}})
	if res.Commit != nil {
		t.Fatalf("single click committed a drawing: %+v", res.Commit)
	}
	if res.State.Phase != Idle {
		t.Fatalf("state = %v, want Idle", res.State.Phase)
	}
}

func TestHighlightKeepsRawCorners(t *testing.T) {
	cfg := Config{Tool: ToolHighlight, Color: annotation.RGB(0xFF, 0xFF, 0)}
	res := Apply(State{}, cfg, 2, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 50, Y: 40}})
	if res.State.Phase != Highlighting {
		t.Fatalf("phase = %v, want Highlighting", res.State.Phase)
	}
	res = Apply(res.State, cfg, 2, PointerEvent{Type: PointerMove, Pos: annotation.Point{X: 30, Y: 20}})
	if !res.Redraw {
		t.Fatalf("move should request redraw")
	}
	res = Apply(res.State, cfg, 2, PointerEvent{Type: PointerUp, Pos: annotation.Point{X: 10, Y: 10}})
	h, ok := res.Commit.(*annotation.Highlight)
	if !ok {
		t.Fatalf("commit = %T, want *annotation.Highlight", res.Commit)
	}
	// Stored backwards, exactly as captured.
	if h.Start != (annotation.Point{X: 50, Y: 40}) || h.End != (annotation.Point{X: 10, Y: 10}) {
		t.Fatalf("corners = %+v %+v", h.Start, h.End)
	}
	if h.PageNum != 2 {
		t.Fatalf("page = %d, want 2", h.PageNum)
	}
}

func TestPointerLeaveFinalizesWithLastPosition(t *testing.T) {
	cfg := Config{Tool: ToolHighlight}
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 1, Y: 1}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerMove, Pos: annotation.Point{X: 9, Y: 9}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerLeave})
	h, ok := res.Commit.(*annotation.Highlight)
	if !ok {
		t.Fatalf("leave did not finalize highlight")
	}
	if h.End != (annotation.Point{X: 9, Y: 9}) {
		t.Fatalf("end = %+v, want last known position (9,9)", h.End)
	}
}

func TestPointerLeaveFinalizesDrawing(t *testing.T) {
	cfg := drawCfg()
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 0, Y: 0}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerMove, Pos: annotation.Point{X: 4, Y: 4}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerLeave})
	d, ok := res.Commit.(*annotation.Drawing)
	if !ok {
		t.Fatalf("leave did not finalize drawing")
	}
	if len(d.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(d.Points))
	}
}

func TestAbandonDropsTransientState(t *testing.T) {
	cfg := drawCfg()
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 0, Y: 0}})
	res = Apply(res.State, cfg, 1, PointerEvent{Type: PointerMove, Pos: annotation.Point{X: 5, Y: 5}})
	st, dropped := Abandon(res.State)
	if !dropped {
		t.Fatalf("abandon reported nothing dropped")
	}
	if st.Phase != Idle || st.Points != nil {
		t.Fatalf("state not reset: %+v", st)
	}
	if _, dropped := Abandon(State{}); dropped {
		t.Fatalf("abandon of idle state reported a drop")
	}
}

func TestTextToolRequestsInput(t *testing.T) {
	cfg := Config{Tool: ToolText, Color: annotation.RGB(0, 0x80, 0)}
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 33, Y: 44}})
	if res.TextRequest == nil || *res.TextRequest != (annotation.Point{X: 33, Y: 44}) {
		t.Fatalf("text request = %+v", res.TextRequest)
	}
	if res.State.Phase != Idle || res.Commit != nil {
		t.Fatalf("text tool must not enter transient state or commit")
	}
}

func TestCommitTextRejectsBlank(t *testing.T) {
	cfg := Config{Tool: ToolText}
	for _, s := range []string{"", "   ", "\n\t ", "\r\n"} {
		if got := CommitText(cfg, 1, annotation.Point{}, s, annotation.FormatPlain); got != nil {
			t.Fatalf("blank %q produced annotation %+v", s, got)
		}
	}
	n, ok := CommitText(cfg, 4, annotation.Point{X: 1, Y: 2}, "hello", annotation.FormatPlain).(*annotation.TextNote)
	if !ok || n.Text != "hello" || n.PageNum != 4 {
		t.Fatalf("commit text = %+v", n)
	}
}

func TestSelectToolIgnoresPointer(t *testing.T) {
	cfg := Config{Tool: ToolSelect}
	res := Apply(State{}, cfg, 1, PointerEvent{Type: PointerDown, Pos: annotation.Point{X: 1, Y: 1}})
	if res.State.Phase != Idle || res.Commit != nil || res.TextRequest != nil || res.Redraw {
		t.Fatalf("select tool reacted to pointer: %+v", res)
	}
}
