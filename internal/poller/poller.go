package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/shophive/cart-service/internal/cache"
	"github.com/shophive/cart-service/internal/repository"
)

// Poller consumes checkout-completed events and empties the buyer's
// persistent cart. Checkout itself lives elsewhere; this is the cart's
// side of the handoff.
type Poller struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	reader *kafka.Reader
}

func New(repo repository.CartRepository, cartCache cache.CartCache, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "cart-service-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{repo: repo, cache: cartCache, reader: reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("error reading message: %v", err)
			}
			continue
		}

		if err := p.handle(ctx, m.Value); err != nil {
			log.Printf("error handling checkout event: %v", err)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

type checkoutEvent struct {
	UserID int64 `json:"user_id"`
}

func (p *Poller) handle(ctx context.Context, payload []byte) error {
	var event checkoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse checkout event: %w", err)
	}
	if event.UserID <= 0 {
		return fmt.Errorf("missing or invalid user_id")
	}

	if err := p.repo.DeleteCart(ctx, event.UserID); err != nil {
		return fmt.Errorf("delete cart for user %d: %w", event.UserID, err)
	}

	if err := p.cache.Delete(ctx, event.UserID); err != nil {
		log.Printf("failed to delete cache for user %d: %v", event.UserID, err)
	}
	return nil
}
