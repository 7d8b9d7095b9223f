package bookmarks

import (
	"context"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/pager"
	"github.com/nikbrunner/bmsync/internal/storage"
)

// All walks every page of the user's bookmarks, newest first.
func All(ctx context.Context, b Backend, userID string) ([]model.Bookmark, error) {
	var out []model.Bookmark
	for offset := 0; ; offset += pager.PageSize {
		page, err := b.Query(ctx, storage.Query{UserID: userID, Offset: offset, Limit: pager.PageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if len(page.Records) < pager.PageSize || len(out) >= page.Total {
			return out, nil
		}
	}
}

// ImportResult summarises an import.
type ImportResult struct {
	Added   int
	Skipped int
}

// Importer is implemented by backends whose Insert does not keep the
// record's creation time.
type Importer interface {
	ImportBookmark(ctx context.Context, b model.Bookmark) error
}

// Import inserts incoming bookmarks for userID, skipping URLs the user
// already has and entries with invalid URLs.
func Import(ctx context.Context, b Backend, userID string, incoming []model.Bookmark) (ImportResult, error) {
	existing, err := All(ctx, b, userID)
	if err != nil {
		return ImportResult{}, err
	}

	seen := make(map[string]bool, len(existing))
	for _, bm := range existing {
		seen[bm.URL] = true
	}

	insert := b.Insert
	if imp, ok := b.(Importer); ok {
		insert = imp.ImportBookmark
	}

	var result ImportResult
	for _, bm := range incoming {
		if seen[bm.URL] || model.ValidateURL(bm.URL) != nil {
			result.Skipped++
			continue
		}
		bm.UserID = userID
		if bm.ID == "" {
			bm.ID = model.GenerateUUID()
		}
		if err := insert(ctx, bm); err != nil {
			return result, err
		}
		seen[bm.URL] = true
		result.Added++
	}
	return result, nil
}
