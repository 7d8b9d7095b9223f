package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nikbrunner/bmsync/internal/model"
)

var (
	// ErrNotFound is returned when a bookmark does not exist for the user.
	ErrNotFound = errors.New("bookmark not found")
	// ErrDuplicateID is returned when inserting a bookmark whose ID exists.
	ErrDuplicateID = errors.New("bookmark id already exists")
)

// Query selects a newest-first window of one user's bookmarks.
// A Limit <= 0 returns everything from Offset on.
type Query struct {
	UserID string
	Offset int
	Limit  int
}

// Storage defines the interface for persisting bookmarks.
type Storage interface {
	Query(ctx context.Context, q Query) (model.Page, error)
	Insert(ctx context.Context, b model.Bookmark) error
	Delete(ctx context.Context, userID, id string) error
	Close() error
}

// Open opens the storage backend for the given driver ("sqlite" or "json").
func Open(driver, path string) (Storage, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteStorage(path)
	case "json":
		return NewJSONStorage(path), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// JSONStorage implements Storage using a JSON file.
type JSONStorage struct {
	path string
	mu   sync.Mutex
}

type jsonDocument struct {
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Query returns a newest-first window of the user's bookmarks.
func (s *JSONStorage) Query(_ context.Context, q Query) (model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return model.Page{}, err
	}

	var owned []model.Bookmark
	for _, b := range doc.Bookmarks {
		if b.UserID == q.UserID {
			owned = append(owned, b)
		}
	}
	model.SortNewestFirst(owned)

	return model.Page{Records: window(owned, q.Offset, q.Limit), Total: len(owned)}, nil
}

// Insert appends a bookmark to the file.
func (s *JSONStorage) Insert(_ context.Context, b model.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range doc.Bookmarks {
		if existing.ID == b.ID {
			return ErrDuplicateID
		}
	}

	doc.Bookmarks = append(doc.Bookmarks, b)
	return s.save(doc)
}

// Delete removes the user's bookmark with the given ID.
func (s *JSONStorage) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i, b := range doc.Bookmarks {
		if b.ID == id && b.UserID == userID {
			doc.Bookmarks = append(doc.Bookmarks[:i], doc.Bookmarks[i+1:]...)
			return s.save(doc)
		}
	}
	return ErrNotFound
}

// Close is a no-op for JSON storage.
func (s *JSONStorage) Close() error {
	return nil
}

// load reads the JSON file.
// Returns an empty document if the file doesn't exist.
func (s *JSONStorage) load() (*jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &jsonDocument{Bookmarks: []model.Bookmark{}}, nil
		}
		return nil, err
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.Bookmarks == nil {
		doc.Bookmarks = []model.Bookmark{}
	}
	return &doc, nil
}

// save writes the JSON file via a temp file and rename.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) save(doc *jsonDocument) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// window slices sorted bookmarks to [offset, offset+limit).
func window(sorted []model.Bookmark, offset, limit int) []model.Bookmark {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(sorted) {
		return []model.Bookmark{}
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]model.Bookmark, end-offset)
	copy(out, sorted[offset:end])
	return out
}
