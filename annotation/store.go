package annotation

// Store holds committed annotations keyed by page number. Order within a
// page is append order and defines z-order; there is no per-annotation
// deletion or editing.
type Store struct {
	pages map[int][]Annotation
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{pages: make(map[int][]Annotation)}
}

// Append adds a to the end of its page's sequence. Callers enforce the model
// invariants (non-empty text, at least two drawing points) before committing.
func (s *Store) Append(a Annotation) {
	s.pages[a.Page()] = append(s.pages[a.Page()], a)
}

// ForPage returns the ordered annotations of a page. The slice is the
// store's own backing; callers treat it as read-only.
func (s *Store) ForPage(page int) []Annotation {
	return s.pages[page]
}

// Clear discards every page's annotations.
func (s *Store) Clear() {
	s.pages = make(map[int][]Annotation)
}

// Count reports the total number of annotations across all pages.
func (s *Store) Count() int {
	n := 0
	for _, anns := range s.pages {
		n += len(anns)
	}
	return n
}
