// Package poller consumes completed-order events and resets the ordering
// user's cart.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront/internal/domain"
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties a user's cart and announces the change.
type CartClearer interface {
	Clear(ctx context.Context, userID string) (domain.Cart, error)
}

type Poller struct {
	reader  MessageReader
	carts   CartClearer
	log     *slog.Logger
	backoff time.Duration
}

// NewReader builds a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func New(reader MessageReader, carts CartClearer, logger *slog.Logger) *Poller {
	return &Poller{
		reader:  reader,
		carts:   carts,
		log:     logger.With("component", "poller"),
		backoff: time.Second,
	}
}

// Run reads messages until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.ErrorContext(ctx, "error reading message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
			continue
		}
		p.handle(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", "error", err)
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	userID, err := parseUserID(m.Value)
	if err != nil {
		p.log.WarnContext(ctx, "skipping malformed message", "offset", m.Offset, "error", err)
		return
	}
	if _, err := p.carts.Clear(ctx, userID); err != nil {
		p.log.ErrorContext(ctx, "failed to clear cart", "user_id", userID, "error", err)
		return
	}
	p.log.InfoContext(ctx, "cart cleared after order", "user_id", userID)
}

func parseUserID(value []byte) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal(value, &payload); err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}
	switch v := payload["user_id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		if v > 0 {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return "", errors.New("missing or invalid user_id")
}
