package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/bmsync/internal/logger"
)

// DefaultPrefix namespaces pub/sub channel names.
const DefaultPrefix = "bmsync:realtime:"

// RedisChannel is a Channel backed by redis pub/sub. One redis channel
// carries one user's collection: <prefix><collection>:<userID>.
type RedisChannel struct {
	client *redis.Client
	prefix string
	log    logger.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedisChannel wraps a connected client.
func NewRedisChannel(client *redis.Client, prefix string, log logger.Logger) *RedisChannel {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisChannel{
		client: client,
		prefix: prefix,
		log:    log,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// ChannelName returns the pub/sub channel for a user's collection.
func (r *RedisChannel) ChannelName(collection, userID string) string {
	return r.prefix + collection + ":" + userID
}

// Publish encodes e as JSON and publishes it.
func (r *RedisChannel) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.ChannelName(e.Collection, e.UserID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe waits for redis to confirm the subscription, then forwards
// matching events until the subscription is closed.
func (r *RedisChannel) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	ps := r.client.Subscribe(ctx, r.ChannelName(f.Collection, f.UserID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	r.mu.Lock()
	r.subs[ps] = struct{}{}
	r.mu.Unlock()

	out := make(chan Event, subscriberBuffer)
	go r.forward(ps, f, out)

	return newSubscription(out, func() {
		r.mu.Lock()
		delete(r.subs, ps)
		r.mu.Unlock()
		ps.Close()
	}), nil
}

// forward decodes messages until the PubSub is closed.
func (r *RedisChannel) forward(ps *redis.PubSub, f Filter, out chan<- Event) {
	defer close(out)

	for msg := range ps.Channel() {
		var e Event
		if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
			r.log.Warn("dropping malformed realtime event",
				logger.String("channel", msg.Channel),
				logger.Error(err))
			continue
		}
		if !f.Matches(e) {
			continue
		}
		select {
		case out <- e:
		default:
		}
	}
}

// Close ends all subscriptions. The redis client is owned by the caller.
func (r *RedisChannel) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for ps := range r.subs {
		ps.Close()
		delete(r.subs, ps)
	}
	return nil
}
