package model

import "sort"

// Page is one window of a user's bookmarks plus the total matching count.
type Page struct {
	Records []Bookmark `json:"records"`
	Total   int        `json:"total"`
}

// SortNewestFirst orders bookmarks newest-first in place.
func SortNewestFirst(bookmarks []Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return bookmarks[i].NewerThan(bookmarks[j])
	})
}
