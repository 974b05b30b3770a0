package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/bus"
	"github.com/fjod/storefront/internal/store"
)

// Subscriber is the observing side of the bus.
type Subscriber interface {
	Subscribe(topic bus.Topic, h bus.Handler) (unsubscribe func())
}

type EventsHandler struct {
	bus       Subscriber
	carts     *store.CartStore
	wishlists *store.WishlistStore
	heartbeat time.Duration
	log       *slog.Logger
}

func NewEventsHandler(subscriber Subscriber, carts *store.CartStore, wishlists *store.WishlistStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:       subscriber,
		carts:     carts,
		wishlists: wishlists,
		heartbeat: 25 * time.Second,
		log:       logger,
	}
}

// pendingTopics coalesces undelivered events per topic. A client only needs to
// know that a collection changed, so marking a topic twice before it is taken
// delivers it once, and one topic never displaces another.
type pendingTopics struct {
	mu   sync.Mutex
	set  map[bus.Topic]bool
	wake chan struct{}
}

func newPendingTopics() *pendingTopics {
	return &pendingTopics{set: make(map[bus.Topic]bool), wake: make(chan struct{}, 1)}
}

func (p *pendingTopics) mark(topic bus.Topic) {
	p.mu.Lock()
	p.set[topic] = true
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// take returns the marked topics in bus.Topics order and clears them.
func (p *pendingTopics) take() []bus.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []bus.Topic
	for _, topic := range bus.Topics {
		if p.set[topic] {
			out = append(out, topic)
			delete(p.set, topic)
		}
	}
	return out
}

type CountsResponse struct {
	CartItems     int `json:"cart_items"`
	WishlistItems int `json:"wishlist_items"`
}

// Counts serves the navigation badge numbers.
func (h *EventsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserIDFromContext(ctx)
	respondJSON(w, http.StatusOK, CountsResponse{
		CartItems:     h.carts.Load(ctx, userID).ItemCount(),
		WishlistItems: h.wishlists.Load(ctx, userID).Len(),
	})
}

type streamEvent struct {
	UserID string `json:"user_id"`
}

// Stream sends one server-sent event per cart or wishlist change of the
// caller. The subscriptions live exactly as long as the connection.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	rc := http.NewResponseController(w)
	// the stream outlives the server's write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.DebugContext(ctx, "cannot clear write deadline", "error", err)
	}

	data, err := json.Marshal(streamEvent{UserID: userID})
	if err != nil {
		h.log.ErrorContext(ctx, "encode stream payload", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "cannot open event stream")
		return
	}

	pending := newPendingTopics()
	forward := func(_ context.Context, ev bus.Event) {
		if ev.UserID == userID {
			pending.mark(ev.Topic)
		}
	}
	for _, topic := range bus.Topics {
		unsubscribe := h.bus.Subscribe(topic, forward)
		defer unsubscribe()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.log.WarnContext(ctx, "streaming unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-pending.wake:
			for _, topic := range pending.take() {
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, data); err != nil {
					return
				}
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
