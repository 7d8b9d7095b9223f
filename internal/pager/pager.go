// Package pager holds the page-window arithmetic for the bookmark list.
package pager

// PageSize is the fixed number of bookmarks shown per page.
const PageSize = 20

// Range returns the inclusive record window [from, to] for a page.
func Range(page int) (from, to int) {
	if page < 0 {
		page = 0
	}
	from = page * PageSize
	return from, from + PageSize - 1
}

// TotalPages returns ceil(total / PageSize).
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// Clamp keeps page within [0, TotalPages(total)-1]. An empty collection
// clamps to page 0.
func Clamp(page, total int) int {
	last := TotalPages(total) - 1
	if page > last {
		page = last
	}
	if page < 0 {
		return 0
	}
	return page
}

// State is the pagination controller: the viewed page and the last known
// total count.
type State struct {
	Page  int
	Total int
}

// TotalPages returns the number of pages for the current total.
func (s State) TotalPages() int {
	return TotalPages(s.Total)
}

// HasPrev reports whether a previous page exists.
func (s State) HasPrev() bool {
	return s.Page > 0
}

// HasNext reports whether a next page exists.
func (s State) HasNext() bool {
	return s.Page < s.TotalPages()-1
}

// Prev returns the state moved back one page, stopping at 0.
func (s State) Prev() State {
	if s.HasPrev() {
		s.Page--
	}
	return s
}

// Next returns the state moved forward one page, stopping at the last page.
func (s State) Next() State {
	if s.HasNext() {
		s.Page++
	}
	return s
}

// Offset returns the index of the first record on the current page.
func (s State) Offset() int {
	from, _ := Range(s.Page)
	return from
}
