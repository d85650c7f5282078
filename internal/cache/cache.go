package cache

import (
	"context"
	"errors"

	"github.com/shophive/cart-service/internal/domain"
)

// CartCache holds a user's cart lines only. Prices and totals are never
// cached; the view is always joined against the live catalog.
type CartCache interface {
	Get(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Set(ctx context.Context, userID int64, lines []domain.CartLine) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
