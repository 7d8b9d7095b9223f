package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/bmsync/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       model.Bookmark
	Index          int // position in the searched slice
	MatchedIndexes []int
	Score          int
}

// bookmarkTitles implements fuzzy.Source for bookmark slice.
type bookmarkTitles []model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// FuzzySearchBookmarks searches bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first). The input is not
// modified.
func FuzzySearchBookmarks(bookmarks []model.Bookmark, query string) []SearchResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkTitles(bookmarks))

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       bookmarks[m.Index],
			Index:          m.Index,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// Filter returns the bookmarks matching query in their original order.
// An empty query returns bookmarks unchanged.
func Filter(bookmarks []model.Bookmark, query string) []model.Bookmark {
	if query == "" {
		return bookmarks
	}

	results := FuzzySearchBookmarks(bookmarks, query)
	keep := make(map[int]bool, len(results))
	for _, r := range results {
		keep[r.Index] = true
	}

	out := make([]model.Bookmark, 0, len(results))
	for i, b := range bookmarks {
		if keep[i] {
			out = append(out, b)
		}
	}
	return out
}
