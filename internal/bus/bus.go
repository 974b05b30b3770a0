// Package bus is the in-process notification channel between the stores and
// whatever observes them. Events are invalidation signals: they say which
// user's cart or wishlist changed, never what it now holds.
package bus

import (
	"context"
	"sync"
)

// Topic names a kind of invalidation.
type Topic string

const (
	TopicCartUpdated     Topic = "cartUpdated"
	TopicWishlistUpdated Topic = "wishlistUpdated"
)

// Topics lists every well-known topic.
var Topics = []Topic{TopicCartUpdated, TopicWishlistUpdated}

// Event is one publish. Origin is empty for local publishes and holds the
// sending instance id for events relayed from another instance.
type Event struct {
	Topic  Topic  `json:"topic"`
	UserID string `json:"user_id"`
	Origin string `json:"origin,omitempty"`
}

// Handler observes events. Handlers run synchronously inside Publish and must
// not publish on the topic they are handling.
type Handler func(ctx context.Context, ev Event)

// Publisher is the side of the bus the stores depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe channel. Subscribers are called in
// registration order. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers h for topic and returns the function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[Topic][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subs[topic] = next
			return
		}
	}
}

// Publish calls every handler currently subscribed to ev.Topic, in order, and
// returns after the last one. Handlers added or removed during a publish take
// effect from the next publish.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Topic]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, ev)
	}
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
