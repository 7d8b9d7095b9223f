package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidURL is returned when a bookmark URL is not an absolute URL.
var ErrInvalidURL = errors.New("please enter a valid URL")

// Bookmark is a user-owned saved URL.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	UserID string
	Title  string
	URL    string
}

// NewBookmark creates a Bookmark with generated UUID and creation time.
// An empty title falls back to the URL.
func NewBookmark(params NewBookmarkParams) Bookmark {
	rawURL := strings.TrimSpace(params.URL)
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = rawURL
	}

	return Bookmark{
		ID:        GenerateUUID(),
		UserID:    params.UserID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: time.Now().UTC(),
	}
}

// hostSchemes must name a host, as in a browser's URL parser.
var hostSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ws":    true,
	"wss":   true,
}

// ValidateURL reports whether raw parses as an absolute URL. Any scheme is
// accepted; web schemes also need a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}
	if hostSchemes[strings.ToLower(u.Scheme)] && u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// IsWebURL reports whether raw is a valid http or https URL.
func IsWebURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if ValidateURL(raw) != nil {
		return false
	}
	u, _ := url.Parse(raw)
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// NewerThan reports whether b sorts before other in newest-first order.
// Equal timestamps fall back to descending ID so the order is total.
func (b Bookmark) NewerThan(other Bookmark) bool {
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.After(other.CreatedAt)
	}
	return b.ID > other.ID
}
