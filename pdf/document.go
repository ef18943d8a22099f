package pdf

// Document is the editable page model the writer serializes and the reader
// reconstructs.
type Document struct {
	Pages []*Page
}

// Page is a single page: its native size in points and the accumulated
// content stream bytes.
type Page struct {
	Width, Height float64
	Content       []byte
}

// New returns an empty document.
func New() *Document { return &Document{} }

// AddPage appends a page of the given size in points and returns it.
func (d *Document) AddPage(width, height float64) *Page {
	p := &Page{Width: width, Height: height}
	d.Pages = append(d.Pages, p)
	return p
}

// AppendContent adds raw content stream operators to the page.
func (p *Page) AppendContent(ops []byte) {
	if len(p.Content) > 0 && len(ops) > 0 {
		p.Content = append(p.Content, '\n')
	}
	p.Content = append(p.Content, ops...)
}
