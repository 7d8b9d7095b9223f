// Package realtime delivers insert/delete change events for bookmark
// collections. Hub is the in-process implementation; RedisChannel fans out
// across processes through redis pub/sub.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CollectionBookmarks is the only collection the app publishes on.
const CollectionBookmarks = "bookmarks"

// EventType is the kind of change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventDelete EventType = "DELETE"
)

// ErrClosed is returned when subscribing or publishing on a closed channel.
var ErrClosed = errors.New("realtime channel closed")

// Event describes one change to a record.
type Event struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	RecordID   string    `json:"recordId"`
	UserID     string    `json:"userId"`
	At         time.Time `json:"at"`
}

// Filter selects events for one user's collection. Empty Types means all.
type Filter struct {
	Collection string
	UserID     string
	Types      []EventType
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Event) bool {
	if e.Collection != f.Collection || e.UserID != f.UserID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// Channel publishes events and hands out subscriptions.
type Channel interface {
	Subscribe(ctx context.Context, f Filter) (*Subscription, error)
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Subscription is a live event stream. C is closed after Close.
type Subscription struct {
	C <-chan Event

	once   sync.Once
	cancel func()
}

func newSubscription(c <-chan Event, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
