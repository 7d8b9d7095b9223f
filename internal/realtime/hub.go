package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

type hubSub struct {
	filter Filter
	ch     chan Event
}

// Hub is an in-process Channel. It is safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]*hubSub
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*hubSub)}
}

// Subscribe registers a subscriber for events matching f.
func (h *Hub) Subscribe(_ context.Context, f Filter) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	id := h.next
	h.next++
	sub := &hubSub{filter: f, ch: make(chan Event, subscriberBuffer)}
	h.subs[id] = sub

	return newSubscription(sub.ch, func() { h.remove(id) }), nil
}

// Publish delivers e to every matching subscriber without blocking.
// A subscriber with a full buffer already has a refetch pending, so the
// event is dropped for it.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	for _, sub := range h.subs {
		if !sub.filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
	return nil
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		close(sub.ch)
		delete(h.subs, id)
	}
}
