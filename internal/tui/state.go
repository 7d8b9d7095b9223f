package tui

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/tui/layout"
)

// pageCache is the bookmark data cache: the records of the viewed page in
// display order and the total count across all pages.
type pageCache struct {
	records []model.Bookmark
	total   int
}

// indexOf returns the position of id in the page or -1.
func (c pageCache) indexOf(id string) int {
	for i, b := range c.records {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// remove drops the record at idx and decrements the total.
func (c pageCache) remove(idx int) pageCache {
	if idx < 0 || idx >= len(c.records) {
		return c
	}
	records := make([]model.Bookmark, 0, len(c.records)-1)
	records = append(records, c.records[:idx]...)
	records = append(records, c.records[idx+1:]...)
	total := c.total - 1
	if total < 0 {
		total = 0
	}
	return pageCache{records: records, total: total}
}

// restore puts b back at idx and increments the total. If a refetch already
// brought b back the cache is returned unchanged.
func (c pageCache) restore(b model.Bookmark, idx int) pageCache {
	if c.indexOf(b.ID) >= 0 {
		return c
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.records) {
		idx = len(c.records)
	}
	records := make([]model.Bookmark, 0, len(c.records)+1)
	records = append(records, c.records[:idx]...)
	records = append(records, b)
	records = append(records, c.records[idx:]...)
	return pageCache{records: records, total: c.total + 1}
}

// focusArea is the part of the main screen receiving key input.
type focusArea int

const (
	focusList focusArea = iota
	focusTitle
	focusURL
	focusFilter
)

// NoticeKind identifies the notification slot in use.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeError
	NoticeSuccess
)

// String returns a lowercase name for the kind.
func (k NoticeKind) String() string {
	switch k {
	case NoticeError:
		return "error"
	case NoticeSuccess:
		return "success"
	default:
		return "none"
	}
}

// notice is the single transient message. seq identifies which expiry
// timer may clear it.
type notice struct {
	kind NoticeKind
	text string
	seq  int
}

// newInput creates a text input with a steady cursor.
func newInput(placeholder string, limit, width int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Width = width
	input.Cursor.SetMode(cursor.CursorStatic)
	return input
}

// FormState holds the add bookmark form inputs.
type FormState struct {
	Title textinput.Model
	URL   textinput.Model
}

// NewFormState creates a FormState with initialized inputs.
func NewFormState(cfg layout.LayoutConfig) FormState {
	return FormState{
		Title: newInput("Title (optional)", cfg.Input.TitleCharLimit, cfg.Input.FormWidth),
		URL:   newInput("https://...", cfg.Input.URLCharLimit, cfg.Input.FormWidth),
	}
}

// Reset clears both fields.
func (f *FormState) Reset() {
	f.Title.Reset()
	f.URL.Reset()
}

// Blur removes focus from both fields.
func (f *FormState) Blur() {
	f.Title.Blur()
	f.URL.Blur()
}
