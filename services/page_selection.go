package services

import "sort"

// PageSelection holds the set of page indices chosen for extraction, bounded
// by [0, pageCount). It is a pure state container; freezing for a batch run
// is done by copying via Snapshot.
type PageSelection struct {
	pageCount int
	pages     map[int]struct{}
}

// NewPageSelection creates an empty selection over a document with pageCount pages
func NewPageSelection(pageCount int) *PageSelection {
	return &PageSelection{
		pageCount: pageCount,
		pages:     make(map[int]struct{}),
	}
}

// Select adds a page index to the selection
func (s *PageSelection) Select(index int) error {
	if index < 0 || index >= s.pageCount {
		return &IndexOutOfRangeError{Index: index, PageCount: s.pageCount}
	}
	s.pages[index] = struct{}{}
	return nil
}

// Deselect removes a page index from the selection
func (s *PageSelection) Deselect(index int) error {
	if index < 0 || index >= s.pageCount {
		return &IndexOutOfRangeError{Index: index, PageCount: s.pageCount}
	}
	delete(s.pages, index)
	return nil
}

// SelectAll selects every page of the document
func (s *PageSelection) SelectAll() {
	for i := 0; i < s.pageCount; i++ {
		s.pages[i] = struct{}{}
	}
}

// Clear empties the selection
func (s *PageSelection) Clear() {
	s.pages = make(map[int]struct{})
}

// Has reports whether a page index is selected
func (s *PageSelection) Has(index int) bool {
	_, ok := s.pages[index]
	return ok
}

// Count returns the number of selected pages
func (s *PageSelection) Count() int {
	return len(s.pages)
}

// Snapshot returns the selected indices in ascending order. The returned
// slice is a copy; later selection changes do not affect it.
func (s *PageSelection) Snapshot() []int {
	indices := make([]int, 0, len(s.pages))
	for i := range s.pages {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}
