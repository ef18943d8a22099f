package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/pagemark/pagemark/annotation"
	"github.com/pagemark/pagemark/author"
	"github.com/pagemark/pagemark/gesture"
	"github.com/pagemark/pagemark/observability"
	"github.com/pagemark/pagemark/pdf"
	"github.com/pagemark/pagemark/render"
)

func newEditor(t *testing.T, opts ...Option) *Editor {
	t.Helper()
	e, err := New(render.NewPDFService(), author.NewPDFLoader(), opts...)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	return e
}

func loadBlank(t *testing.T, e *Editor, pages int) {
	t.Helper()
	data, err := author.NewBlankPDF(pages, 612, 792)
	if err != nil {
		t.Fatalf("blank pdf: %v", err)
	}
	if err := e.Load(context.Background(), data); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func down(x, y float64) gesture.PointerEvent {
	return gesture.PointerEvent{Type: gesture.PointerDown, Pos: annotation.Point{X: x, Y: y}}
}

func move(x, y float64) gesture.PointerEvent {
	return gesture.PointerEvent{Type: gesture.PointerMove, Pos: annotation.Point{X: x, Y: y}}
}

func up(x, y float64) gesture.PointerEvent {
	return gesture.PointerEvent{Type: gesture.PointerUp, Pos: annotation.Point{X: x, Y: y}}
}

func TestLoadRendersFirstPage(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 3)
	if got := e.PageCount(); got != 3 {
		t.Fatalf("PageCount = %d, want 3", got)
	}
	if got := e.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage = %d, want 1", got)
	}
	surf := e.Surface()
	if surf == nil {
		t.Fatal("no surface after load")
	}
	if w, h := surf.Bounds().Dx(), surf.Bounds().Dy(); w != 612 || h != 792 {
		t.Fatalf("surface %dx%d, want 612x792", w, h)
	}
	r, g, b, _ := surf.At(300, 400).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("blank page pixel not white: %04x %04x %04x", r, g, b)
	}
}

func TestOperationsBeforeLoad(t *testing.T) {
	e := newEditor(t)
	e.Pointer(down(10, 10))
	e.Clear()
	if err := e.GoToPage(context.Background(), 2); err != nil {
		t.Fatalf("GoToPage before load: %v", err)
	}
	if e.Surface() != nil {
		t.Fatal("surface exists before load")
	}
	if _, err := e.Export(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Export before load = %v, want ErrNotLoaded", err)
	}
}

func TestDrawGestureCommits(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolDraw)
	e.SetColor(annotation.RGB(0, 0, 0xFF))
	e.Pointer(down(100, 100))
	e.Pointer(move(110, 105))
	e.Pointer(move(120, 115))
	e.Pointer(up(125, 120))

	anns := e.Annotations()
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	d, ok := anns[0].(*annotation.Drawing)
	if !ok {
		t.Fatalf("committed %T, want *Drawing", anns[0])
	}
	if len(d.Points) != 3 {
		t.Fatalf("drawing has %d points, want 3", len(d.Points))
	}
	if d.StrokeWidth != gesture.DefaultStrokeWidth {
		t.Fatalf("stroke width %v", d.StrokeWidth)
	}
}

func TestHighlightTintsSurface(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolHighlight)
	e.SetColor(annotation.RGB(0xFF, 0xFF, 0))
	e.Pointer(down(100, 100))
	e.Pointer(move(200, 150))
	e.Pointer(up(200, 150))

	surf := e.Surface()
	// Yellow multiplied into white at 35%: red and green stay full, blue
	// drops to 65%.
	c := surf.RGBAAt(150, 125)
	if c.R != 255 || c.G != 255 {
		t.Fatalf("highlight interior R/G = %d/%d, want 255/255", c.R, c.G)
	}
	if c.B < 160 || c.B > 172 {
		t.Fatalf("highlight interior B = %d, want ~166", c.B)
	}
	outside := surf.RGBAAt(300, 400)
	if outside.B != 255 {
		t.Fatalf("pixel outside highlight tinted: %v", outside)
	}
}

func TestToolChangeAbandonsGesture(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolDraw)
	e.Pointer(down(10, 10))
	e.Pointer(move(20, 20))
	e.SelectTool(gesture.ToolHighlight)
	e.Pointer(up(30, 30))
	if got := len(e.Annotations()); got != 0 {
		t.Fatalf("abandoned gesture committed %d annotations", got)
	}
}

func TestTextPromptAsync(t *testing.T) {
	var mu sync.Mutex
	var submit func(string)
	prompter := TextPrompterFunc(func(pos annotation.Point, fn func(string)) {
		mu.Lock()
		submit = fn
		mu.Unlock()
	})
	e := newEditor(t, WithTextPrompter(prompter))
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolText)
	e.Pointer(down(50, 60))

	mu.Lock()
	fn := submit
	mu.Unlock()
	if fn == nil {
		t.Fatal("text tool click did not request text")
	}
	fn("remember this")

	anns := e.Annotations()
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	n := anns[0].(*annotation.TextNote)
	if n.Text != "remember this" || n.Position.X != 50 || n.Position.Y != 60 {
		t.Fatalf("note = %+v", n)
	}
}

func TestBlankTextResponseIgnored(t *testing.T) {
	var submit func(string)
	e := newEditor(t, WithTextPrompter(TextPrompterFunc(func(_ annotation.Point, fn func(string)) {
		submit = fn
	})))
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolText)
	e.Pointer(down(50, 60))
	submit("   \n\t")
	if got := len(e.Annotations()); got != 0 {
		t.Fatalf("blank response committed %d annotations", got)
	}
}

func TestTextResponseAfterPageChangeDropped(t *testing.T) {
	var submit func(string)
	e := newEditor(t, WithTextPrompter(TextPrompterFunc(func(_ annotation.Point, fn func(string)) {
		submit = fn
	})))
	loadBlank(t, e, 2)
	e.SelectTool(gesture.ToolText)
	e.Pointer(down(50, 60))
	if err := e.GoToPage(context.Background(), 2); err != nil {
		t.Fatalf("page change: %v", err)
	}
	submit("too late")
	e.GoToPage(context.Background(), 1)
	if got := len(e.Annotations()); got != 0 {
		t.Fatalf("stale response committed %d annotations", got)
	}
}

func TestGoToPageClampsAndIsolatesAnnotations(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 2)
	e.SelectTool(gesture.ToolDraw)
	e.Pointer(down(10, 10))
	e.Pointer(move(20, 20))
	e.Pointer(up(20, 20))

	if err := e.GoToPage(context.Background(), 99); err != nil {
		t.Fatalf("GoToPage: %v", err)
	}
	if got := e.CurrentPage(); got != 2 {
		t.Fatalf("CurrentPage = %d, want clamp to 2", got)
	}
	if got := len(e.Annotations()); got != 0 {
		t.Fatalf("page 2 sees %d of page 1's annotations", got)
	}
	if err := e.GoToPage(context.Background(), -3); err != nil {
		t.Fatalf("GoToPage: %v", err)
	}
	if got := e.CurrentPage(); got != 1 {
		t.Fatalf("CurrentPage = %d, want clamp to 1", got)
	}
	if got := len(e.Annotations()); got != 1 {
		t.Fatalf("page 1 lost its annotation, have %d", got)
	}
}

func TestClearRestoresRawSurface(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolHighlight)
	e.Pointer(down(100, 100))
	e.Pointer(up(200, 150))
	if e.Surface().RGBAAt(150, 125).B == 255 {
		t.Fatal("highlight not visible before clear")
	}
	e.Clear()
	if got := len(e.Annotations()); got != 0 {
		t.Fatalf("clear left %d annotations", got)
	}
	if c := e.Surface().RGBAAt(150, 125); c.B != 255 {
		t.Fatalf("surface still tinted after clear: %v", c)
	}
}

func TestExportBakesCurrentPage(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 1)
	e.SelectTool(gesture.ToolHighlight)
	e.SetColor(annotation.RGB(0xFF, 0xFF, 0))
	e.Pointer(down(100, 100))
	e.Pointer(up(200, 150))

	out, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := pdf.Read(out)
	if err != nil {
		t.Fatalf("read exported bytes: %v", err)
	}
	if !strings.Contains(string(doc.Pages[0].Content), "/GHi gs") {
		t.Fatalf("exported page missing baked highlight:\n%s", doc.Pages[0].Content)
	}
	if got := len(e.Annotations()); got != 1 {
		t.Fatalf("export mutated in-memory annotations, have %d", got)
	}
}

func TestRedrawCallbackFires(t *testing.T) {
	var redraws int
	e := newEditor(t, WithRedraw(func(img *image.RGBA) {
		if img == nil {
			t.Error("redraw with nil surface")
		}
		redraws++
	}))
	loadBlank(t, e, 1)
	after := redraws
	if after == 0 {
		t.Fatal("load did not redraw")
	}
	e.SelectTool(gesture.ToolDraw)
	e.Pointer(down(10, 10))
	e.Pointer(move(20, 20))
	if redraws <= after {
		t.Fatal("pointer events did not redraw")
	}
}

// gatedService blocks its first Load until released, so a second Load can
// overtake it. entered is closed once the first Load is inside the service.
type gatedService struct {
	inner   render.Service
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedService) Load(ctx context.Context, data []byte) (render.DocumentHandle, error) {
	blocked := false
	g.once.Do(func() { blocked = true })
	if blocked {
		close(g.entered)
		<-g.gate
	}
	return g.inner.Load(ctx, data)
}

func TestStaleLoadDropped(t *testing.T) {
	svc := &gatedService{
		inner:   render.NewPDFService(),
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	e, err := New(svc, author.NewPDFLoader())
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	one, _ := author.NewBlankPDF(1, 612, 792)
	three, _ := author.NewBlankPDF(3, 612, 792)

	errc := make(chan error, 1)
	go func() { errc <- e.Load(context.Background(), one) }()
	<-svc.entered

	// Second load wins while the first is stuck in the render service.
	if err := e.Load(context.Background(), three); err != nil {
		t.Fatalf("second load: %v", err)
	}
	close(svc.gate)
	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Fatalf("first load = %v, want ErrStale", err)
	}
	if got := e.PageCount(); got != 3 {
		t.Fatalf("PageCount = %d, want survivor's 3", got)
	}
}

func TestExportRepeatable(t *testing.T) {
	e := newEditor(t)
	loadBlank(t, e, 2)
	e.SelectTool(gesture.ToolHighlight)
	e.SetColor(annotation.RGB(0xFF, 0xFF, 0))
	e.Pointer(down(100, 100))
	e.Pointer(up(200, 150))

	first, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("repeated export of unchanged state diverged")
	}
	if got := len(e.Annotations()); got != 1 {
		t.Fatalf("exporting mutated the store, have %d annotations", got)
	}
}

type fieldLogger struct {
	mu   sync.Mutex
	keys []string
}

func (l *fieldLogger) record(fields []observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range fields {
		l.keys = append(l.keys, f.Key())
	}
}

func (l *fieldLogger) Debug(_ string, fields ...observability.Field) { l.record(fields) }
func (l *fieldLogger) Info(_ string, fields ...observability.Field)  { l.record(fields) }
func (l *fieldLogger) Warn(_ string, fields ...observability.Field)  { l.record(fields) }
func (l *fieldLogger) Error(_ string, fields ...observability.Field) { l.record(fields) }
func (l *fieldLogger) With(...observability.Field) observability.Logger { return l }

func (l *fieldLogger) has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.keys {
		if k == key {
			return true
		}
	}
	return false
}

func TestCompositeEmitsRenderTiming(t *testing.T) {
	log := &fieldLogger{}
	e := newEditor(t, WithLogger(log))
	loadBlank(t, e, 1)
	if !log.has(observability.MetricRenderTime) {
		t.Fatalf("no %s field logged on composite", observability.MetricRenderTime)
	}
	if !log.has(observability.MetricLoadTime) {
		t.Fatalf("no %s field logged on load", observability.MetricLoadTime)
	}
}
