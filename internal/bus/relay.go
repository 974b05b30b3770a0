package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis channel instances exchange events on.
const DefaultRelayChannel = "storefront:events"

// Relay connects the local bus of several instances through Redis pub/sub.
// Local events are forwarded to Redis tagged with this instance's id; events
// from other instances are republished on the local bus.
type Relay struct {
	client  *redis.Client
	bus     *Bus
	channel string
	id      string
	log     *slog.Logger

	pubsub *redis.PubSub
	unsubs []func()
	wg     sync.WaitGroup
}

func NewRelay(client *redis.Client, b *Bus, logger *slog.Logger) *Relay {
	return &Relay{
		client:  client,
		bus:     b,
		channel: DefaultRelayChannel,
		id:      uuid.NewString(),
		log:     logger,
	}
}

// ID identifies this instance in relayed events.
func (r *Relay) ID() string {
	return r.id
}

// Start subscribes to the relay channel and to every local topic. It returns
// once the Redis subscription is confirmed.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("relay subscribe %s: %w", r.channel, err)
	}
	r.pubsub = pubsub

	for _, t := range Topics {
		r.unsubs = append(r.unsubs, r.bus.Subscribe(t, r.forward))
	}

	r.wg.Add(1)
	go r.receive(ctx, pubsub.Channel())
	return nil
}

// Close detaches from the local bus and Redis and waits for the receive loop.
func (r *Relay) Close() error {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
	var err error
	if r.pubsub != nil {
		err = r.pubsub.Close()
	}
	r.wg.Wait()
	return err
}

func (r *Relay) forward(ctx context.Context, ev Event) {
	if ev.Origin != "" {
		return
	}
	ev.Origin = r.id
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.ErrorContext(ctx, "relay marshal event", "error", err)
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.WarnContext(ctx, "relay publish failed", "topic", ev.Topic, "error", err)
	}
}

func (r *Relay) receive(ctx context.Context, ch <-chan *redis.Message) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *Relay) deliver(ctx context.Context, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.log.WarnContext(ctx, "relay dropped malformed event", "error", err)
		return
	}
	if ev.Origin == "" || ev.Origin == r.id {
		return
	}
	r.bus.Publish(ctx, ev)
}
