package bus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	m      sync.RWMutex
	events []Event
}

func (r *recorder) handle(_ context.Context, ev Event) {
	r.m.Lock()
	defer r.m.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.m.RLock()
	defer r.m.RUnlock()
	return append([]Event(nil), r.events...)
}

func startRelay(t *testing.T, ctx context.Context, addr string, b *Bus) *Relay {
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	relay := NewRelay(client, b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, relay.Start(ctx))
	t.Cleanup(func() { relay.Close() })
	return relay
}

func TestRelay_DeliversToOtherInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	busA, busB := New(), New()
	relayA := startRelay(t, ctx, mr.Addr(), busA)
	startRelay(t, ctx, mr.Addr(), busB)

	onA, onB := &recorder{}, &recorder{}
	busA.Subscribe(TopicCartUpdated, onA.handle)
	busB.Subscribe(TopicCartUpdated, onB.handle)

	busA.Publish(ctx, Event{Topic: TopicCartUpdated, UserID: "123"})

	require.Eventually(t, func() bool {
		return len(onB.snapshot()) == 1
	}, time.Second, 10*time.Millisecond, "event was not relayed")

	got := onB.snapshot()[0]
	assert.Equal(t, TopicCartUpdated, got.Topic)
	assert.Equal(t, "123", got.UserID)
	assert.Equal(t, relayA.ID(), got.Origin)

	// no echo back to the sender
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, onA.snapshot(), 1)
	assert.Len(t, onB.snapshot(), 1)
}

func TestRelay_IgnoresMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New()
	startRelay(t, ctx, mr.Addr(), b)
	rec := &recorder{}
	b.Subscribe(TopicCartUpdated, rec.handle)

	mr.Publish(DefaultRelayChannel, "{not json")
	mr.Publish(DefaultRelayChannel, `{"topic":"cartUpdated","user_id":"9"}`)
	mr.Publish(DefaultRelayChannel, `{"topic":"cartUpdated","user_id":"9","origin":"other"}`)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "other", rec.snapshot()[0].Origin)
}

func TestRelay_CloseDetachesFromBus(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New()
	relay := startRelay(t, ctx, mr.Addr(), b)
	assert.Equal(t, 1, b.Subscribers(TopicCartUpdated))
	assert.Equal(t, 1, b.Subscribers(TopicWishlistUpdated))

	require.NoError(t, relay.Close())
	assert.Equal(t, 0, b.Subscribers(TopicCartUpdated))
	assert.Equal(t, 0, b.Subscribers(TopicWishlistUpdated))
}
