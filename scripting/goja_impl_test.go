package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pagemark/pagemark/author"
	"github.com/pagemark/pagemark/engine"
	"github.com/pagemark/pagemark/render"
)

func TestGojaEngine_ContextCancellation(t *testing.T) {
	eng := NewEngine()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := eng.Execute(ctx, "while (true) {}"); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := eng.Execute(context.Background(), "1 + 1"); err != nil {
		t.Fatalf("engine should recover after cancellation, got %v", err)
	}
}

func TestGojaEngine_ImmediateCancel(t *testing.T) {
	eng := NewEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Execute(ctx, "42"); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}

type recordingDOM struct {
	pages      int
	page       int
	color      uint32
	highlights [][5]float64
	drawings   int
	notes      []string
	alerts     []string
}

func (d *recordingDOM) PageCount() int   { return d.pages }
func (d *recordingDOM) CurrentPage() int { return d.page }
func (d *recordingDOM) GoToPage(n int) error {
	if n < 1 || n > d.pages {
		return errors.New("page out of range")
	}
	d.page = n
	return nil
}
func (d *recordingDOM) SetColor(rgb uint32) { d.color = rgb }
func (d *recordingDOM) AddHighlight(page int, x1, y1, x2, y2 float64) {
	d.highlights = append(d.highlights, [5]float64{float64(page), x1, y1, x2, y2})
}
func (d *recordingDOM) AddDrawing(page int, points [][2]float64, width float64) {
	d.drawings += len(points)
}
func (d *recordingDOM) AddNote(page int, x, y float64, text string) {
	d.notes = append(d.notes, text)
}
func (d *recordingDOM) Alert(message string) { d.alerts = append(d.alerts, message) }

func TestDOMBindings(t *testing.T) {
	dom := &recordingDOM{pages: 4, page: 1}
	eng := NewEngine()
	if err := eng.RegisterDOM(dom); err != nil {
		t.Fatalf("register DOM: %v", err)
	}

	script := `
		app.alert("pages: " + doc.pageCount());
		doc.goToPage(3);
		doc.setColor("#FF8800");
		doc.addHighlight(3, 10, 20, 110, 60);
		doc.addDrawing(3, [[0, 0], [5, 5], [10, 0]], 2);
		doc.addNote(3, 40, 50, "scripted note");
		doc.currentPage();
	`
	got, err := eng.Execute(context.Background(), script)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if n, ok := got.(int64); !ok || n != 3 {
		t.Fatalf("script result = %v, want 3", got)
	}
	if dom.color != 0xFF8800 {
		t.Fatalf("color = %06x, want FF8800", dom.color)
	}
	if len(dom.highlights) != 1 || dom.highlights[0] != [5]float64{3, 10, 20, 110, 60} {
		t.Fatalf("highlights = %v", dom.highlights)
	}
	if dom.drawings != 3 {
		t.Fatalf("drawing points = %d, want 3", dom.drawings)
	}
	if len(dom.notes) != 1 || dom.notes[0] != "scripted note" {
		t.Fatalf("notes = %v", dom.notes)
	}
	if len(dom.alerts) != 1 || dom.alerts[0] != "pages: 4" {
		t.Fatalf("alerts = %v", dom.alerts)
	}
}

func TestDOMErrorsSurfaceAsScriptErrors(t *testing.T) {
	dom := &recordingDOM{pages: 1, page: 1}
	eng := NewEngine()
	if err := eng.RegisterDOM(dom); err != nil {
		t.Fatalf("register DOM: %v", err)
	}
	if _, err := eng.Execute(context.Background(), "doc.goToPage(99)"); err == nil {
		t.Fatal("invalid page did not error")
	}
	if _, err := eng.Execute(context.Background(), "doc.addDrawing(1, 'nope')"); err == nil {
		t.Fatal("non-array points did not error")
	}
}

func TestEditorDOMEndToEnd(t *testing.T) {
	ed, err := engine.New(render.NewPDFService(), author.NewPDFLoader())
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	data, err := author.NewBlankPDF(2, 612, 792)
	if err != nil {
		t.Fatalf("blank pdf: %v", err)
	}
	if err := ed.Load(context.Background(), data); err != nil {
		t.Fatalf("load: %v", err)
	}

	eng := NewEngine()
	if err := eng.RegisterDOM(NewEditorDOM(ed, nil)); err != nil {
		t.Fatalf("register DOM: %v", err)
	}
	script := `
		doc.setColor(0xFFFF00);
		doc.addHighlight(1, 100, 100, 200, 150);
		doc.addNote(2, 30, 40, "page two note");
		doc.goToPage(2);
	`
	if _, err := eng.Execute(context.Background(), script); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := ed.CurrentPage(); got != 2 {
		t.Fatalf("CurrentPage = %d, want 2", got)
	}
	if got := len(ed.Annotations()); got != 1 {
		t.Fatalf("page 2 annotations = %d, want 1", got)
	}
}
