// Package engine holds the application state of an annotation session in one
// explicit Editor value: the loaded document, the current page and its
// raster, the committed annotations, and the transient gesture. All mutation
// goes through Editor methods; rendering and exporting run against the state
// those methods maintain.
package engine

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/pagemark/pagemark/annotation"
	"github.com/pagemark/pagemark/author"
	"github.com/pagemark/pagemark/export"
	"github.com/pagemark/pagemark/gesture"
	"github.com/pagemark/pagemark/observability"
	"github.com/pagemark/pagemark/overlay"
	"github.com/pagemark/pagemark/render"
)

var (
	// ErrNotLoaded is returned by operations that need a document before one
	// has been loaded.
	ErrNotLoaded = errors.New("engine: no document loaded")
	// ErrStale reports an operation whose result was discarded because a
	// newer document load superseded it while it ran.
	ErrStale = errors.New("engine: superseded by a newer load")
)

// DefaultScale is the render scale used until SetScale changes it.
const DefaultScale = 1.0

// TextPrompter solicits note text from the user. Implementations may resolve
// asynchronously: submit is safe to call from any goroutine, at any later
// time. A response arriving after the document was reloaded or the page
// changed is discarded.
type TextPrompter interface {
	RequestText(pos annotation.Point, submit func(text string))
}

// TextPrompterFunc adapts a function to TextPrompter.
type TextPrompterFunc func(pos annotation.Point, submit func(text string))

func (f TextPrompterFunc) RequestText(pos annotation.Point, submit func(text string)) {
	f(pos, submit)
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log observability.Logger) Option {
	return func(e *Editor) { e.log = log }
}

// WithTextPrompter sets the collaborator that collects note text. Without
// one, text-tool clicks are ignored.
func WithTextPrompter(p TextPrompter) Option {
	return func(e *Editor) { e.prompter = p }
}

// WithRedraw registers a callback invoked with the freshly composed surface
// whenever it changes. The callback runs with the editor locked and must not
// call back into it.
func WithRedraw(fn func(*image.RGBA)) Option {
	return func(e *Editor) { e.onRedraw = fn }
}

// WithNoteFormat sets the format applied to committed text notes.
func WithNoteFormat(f annotation.Format) Option {
	return func(e *Editor) { e.noteFormat = f }
}

// Editor is the annotation session state machine.
type Editor struct {
	mu sync.Mutex

	svc      render.Service
	pipeline *export.Pipeline
	overlay  *overlay.Renderer
	log      observability.Logger
	prompter TextPrompter
	onRedraw func(*image.RGBA)

	noteFormat annotation.Format

	// generation increments on every Load. Results of slow loads, exports
	// and prompts carrying an older generation are dropped.
	generation uint64

	data      []byte
	doc       render.DocumentHandle
	pageCount int
	page      int
	scale     float64
	raster    render.Raster
	surface   *image.RGBA

	store *annotation.Store
	gst   gesture.State
	cfg   gesture.Config
}

// New builds an Editor over the given rendering and authoring collaborators.
func New(svc render.Service, loader author.Loader, opts ...Option) (*Editor, error) {
	ov, err := overlay.NewRenderer()
	if err != nil {
		return nil, err
	}
	e := &Editor{
		svc:     svc,
		overlay: ov,
		log:     observability.NopLogger{},
		scale:   DefaultScale,
		store:   annotation.NewStore(),
		cfg:     gesture.Config{Tool: gesture.ToolSelect, StrokeWidth: gesture.DefaultStrokeWidth},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pipeline = export.NewPipeline(loader, e.log)
	return e, nil
}

// Load replaces the session with the given document bytes: annotations are
// discarded, any in-progress gesture is abandoned, and page 1 is rendered.
// If another Load starts while this one runs, this one's result is dropped
// and ErrStale is returned.
func (e *Editor) Load(ctx context.Context, data []byte) error {
	start := time.Now()
	e.mu.Lock()
	e.generation++
	gen := e.generation
	scale := e.scale
	e.mu.Unlock()

	doc, err := e.svc.Load(ctx, data)
	if err != nil {
		e.log.Error("document load failed", observability.Error("err", err))
		return err
	}
	if doc.PageCount() < 1 {
		return render.ErrLoad
	}
	page, err := doc.Page(ctx, 1)
	if err != nil {
		return err
	}
	ras, err := page.Rasterize(ctx, scale)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return ErrStale
	}
	e.data = append([]byte(nil), data...)
	e.doc = doc
	e.pageCount = doc.PageCount()
	e.page = 1
	e.raster = ras
	e.store = annotation.NewStore()
	e.gst, _ = gesture.Abandon(e.gst)
	e.compositeLocked()
	e.log.Info("document loaded",
		observability.Int(observability.MetricPageCount, e.pageCount),
		observability.Int(observability.MetricGeneration, int(gen)),
		observability.Float64(observability.MetricLoadTime, time.Since(start).Seconds()),
	)
	return nil
}

// Export bakes the current page's annotations into the original document
// bytes and returns the result. The in-memory annotations are untouched
// either way, so a failed export loses nothing.
func (e *Editor) Export(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	gen := e.generation
	req := export.Request{
		Data:        e.data,
		Page:        e.page,
		Annotations: e.store.ForPage(e.page),
		PixelWidth:  float64(e.raster.PixelWidth),
		PixelHeight: float64(e.raster.PixelHeight),
	}
	e.mu.Unlock()

	out, err := e.pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return nil, ErrStale
	}
	return out, nil
}

// SelectTool switches the active tool. A tool change mid-gesture abandons
// the gesture without committing anything.
func (e *Editor) SelectTool(t gesture.Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t == e.cfg.Tool {
		return
	}
	e.cfg.Tool = t
	var abandoned bool
	e.gst, abandoned = gesture.Abandon(e.gst)
	if abandoned {
		e.compositeLocked()
	}
}

// SetColor sets the color applied to subsequently committed annotations.
// In-progress gestures pick it up immediately.
func (e *Editor) SetColor(c annotation.Color) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Color = c
	if e.gst.Phase != gesture.Idle {
		e.compositeLocked()
	}
}

// SetStrokeWidth sets the stroke width for subsequent drawings.
func (e *Editor) SetStrokeWidth(w float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.StrokeWidth = w
}

// GoToPage displays page n, clamped to the document's page range. Any
// in-progress gesture is abandoned.
func (e *Editor) GoToPage(ctx context.Context, n int) error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > e.pageCount {
		n = e.pageCount
	}
	if n == e.page {
		e.mu.Unlock()
		return nil
	}
	gen := e.generation
	doc, scale := e.doc, e.scale
	e.mu.Unlock()

	page, err := doc.Page(ctx, n)
	if err != nil {
		return err
	}
	ras, err := page.Rasterize(ctx, scale)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return ErrStale
	}
	e.page = n
	e.raster = ras
	e.gst, _ = gesture.Abandon(e.gst)
	e.compositeLocked()
	return nil
}

// SetScale re-renders the current page at the given scale factor. Committed
// annotations stay in the pixel space they were captured in, so callers that
// rescale mid-session re-capture rather than reproject.
func (e *Editor) SetScale(ctx context.Context, scale float64) error {
	e.mu.Lock()
	if e.doc == nil || scale == e.scale {
		e.scale = scale
		e.mu.Unlock()
		return nil
	}
	gen := e.generation
	doc, n := e.doc, e.page
	e.mu.Unlock()

	page, err := doc.Page(ctx, n)
	if err != nil {
		return err
	}
	ras, err := page.Rasterize(ctx, scale)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return ErrStale
	}
	e.scale = scale
	e.raster = ras
	e.compositeLocked()
	return nil
}

// Clear discards every committed annotation and abandons any in-progress
// gesture, restoring the raw page surface.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Clear()
	e.gst, _ = gesture.Abandon(e.gst)
	if e.doc != nil {
		e.compositeLocked()
	}
}

// Pointer feeds one raw pointer event through the gesture reducer. Before a
// document is loaded it does nothing.
func (e *Editor) Pointer(ev gesture.PointerEvent) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return
	}
	res := gesture.Apply(e.gst, e.cfg, e.page, ev)
	e.gst = res.State
	if res.Commit != nil {
		e.store.Append(res.Commit)
		e.log.Debug("annotation committed",
			observability.String("kind", res.Commit.Kind().String()),
			observability.Int("page", res.Commit.Page()),
			observability.Int(observability.MetricAnnotationCount, e.store.Count()),
		)
	}
	if res.Redraw {
		e.compositeLocked()
	}
	var prompt *promptRequest
	if res.TextRequest != nil && e.prompter != nil {
		prompt = &promptRequest{
			pos:  *res.TextRequest,
			page: e.page,
			gen:  e.generation,
		}
	}
	e.mu.Unlock()

	if prompt != nil {
		e.prompter.RequestText(prompt.pos, func(text string) {
			e.commitText(prompt, text)
		})
	}
}

type promptRequest struct {
	pos  annotation.Point
	page int
	gen  uint64
}

// commitText lands an asynchronous text response. Responses from before a
// reload or a page change are dropped; blank responses commit nothing.
func (e *Editor) commitText(req *promptRequest, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if req.gen != e.generation || req.page != e.page {
		return
	}
	a := gesture.CommitText(e.cfg, req.page, req.pos, text, e.noteFormat)
	if a == nil {
		return
	}
	e.store.Append(a)
	e.compositeLocked()
}

// AddAnnotation commits an annotation built outside gesture capture, e.g.
// by a script. The caller is responsible for the model invariants.
func (e *Editor) AddAnnotation(a annotation.Annotation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Append(a)
	if a.Page() == e.page {
		e.compositeLocked()
	}
}

// Surface returns the most recently composed page image, or nil before the
// first load.
func (e *Editor) Surface() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// CurrentPage reports the 1-indexed displayed page, or 0 before load.
func (e *Editor) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// PageCount reports the loaded document's page count, or 0 before load.
func (e *Editor) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pageCount
}

// Tool reports the active tool.
func (e *Editor) Tool() gesture.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Tool
}

// Annotations returns the committed annotations of the current page.
func (e *Editor) Annotations() []annotation.Annotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ForPage(e.page)
}

func (e *Editor) compositeLocked() {
	if e.raster.Image == nil {
		return
	}
	start := time.Now()
	e.surface = e.overlay.Compose(e.raster.Image, e.store.ForPage(e.page), e.gst, e.cfg)
	e.log.Debug("surface composed",
		observability.Int("page", e.page),
		observability.Float64(observability.MetricRenderTime, time.Since(start).Seconds()),
	)
	if e.onRedraw != nil {
		e.onRedraw(e.surface)
	}
}
