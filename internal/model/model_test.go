package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nikbrunner/bmsync/internal/model"
)

func TestIsWebURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"HTTP://example.com", true},
		{"mailto:a@example.com", false},
		{"file:///etc/hosts", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		if got := model.IsWebURL(tt.input); got != tt.want {
			t.Errorf("IsWebURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"https url", "https://example.com", true},
		{"http url with path", "http://example.com/a/b?c=d", true},
		{"url with port", "http://localhost:8080", true},
		{"ftp url", "ftp://files.example.com/x", true},
		{"surrounding spaces", "  https://example.com  ", true},
		{"mailto", "mailto:a@example.com", true},
		{"file without host", "file:///etc/hosts", true},
		{"about blank", "about:blank", true},
		{"urn", "urn:isbn:0451450523", true},
		{"http without host", "http:/just/a/path", false},
		{"plain words", "not a url", false},
		{"empty", "", false},
		{"missing scheme", "example.com", false},
		{"scheme only", "https://", false},
		{"relative path", "/just/a/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateURL(tt.input)
			if tt.valid && err != nil {
				t.Errorf("ValidateURL(%q) returned error %v, want nil", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, model.ErrInvalidURL) {
				t.Errorf("ValidateURL(%q) = %v, want ErrInvalidURL", tt.input, err)
			}
		})
	}
}

func TestNewBookmark(t *testing.T) {
	b := model.NewBookmark(model.NewBookmarkParams{
		UserID: "u1",
		Title:  "  Example  ",
		URL:    "https://example.com",
	})

	if b.ID == "" {
		t.Error("expected generated ID")
	}
	if b.Title != "Example" {
		t.Errorf("expected trimmed title, got %q", b.Title)
	}
	if b.UserID != "u1" {
		t.Errorf("expected user u1, got %q", b.UserID)
	}
	if b.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestNewBookmark_EmptyTitleFallsBackToURL(t *testing.T) {
	b := model.NewBookmark(model.NewBookmarkParams{URL: "https://go.dev"})
	if b.Title != "https://go.dev" {
		t.Errorf("expected URL as title, got %q", b.Title)
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	bookmarks := []model.Bookmark{
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "b", CreatedAt: base.Add(time.Hour)},
		{ID: "d", CreatedAt: base}, // same time as "a", higher ID sorts first
	}

	model.SortNewestFirst(bookmarks)

	want := []string{"c", "b", "d", "a"}
	for i, id := range want {
		if bookmarks[i].ID != id {
			t.Errorf("position %d: got %q, want %q", i, bookmarks[i].ID, id)
		}
	}
}

func TestBookmark_JSONSerialization(t *testing.T) {
	original := model.Bookmark{
		ID:        "b1",
		UserID:    "u1",
		Title:     "TanStack Router",
		URL:       "https://tanstack.com/router",
		CreatedAt: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var got model.Bookmark
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if got != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (model.User{Email: "a@b.c"}).DisplayName(); got != "a@b.c" {
		t.Errorf("expected email fallback, got %q", got)
	}
	if got := (model.User{Email: "a@b.c", Name: "Ada"}).DisplayName(); got != "Ada" {
		t.Errorf("expected name, got %q", got)
	}
}
