package repository

import (
	"context"

	"github.com/shophive/cart-service/internal/domain"
)

// CartRepository defines the interface for durable cart row operations.
// Consumers define this interface, not the Postgres implementation.
type CartRepository interface {
	// GetLines returns the user's cart lines in insertion order. A user
	// with no cart gets an empty slice, not an error.
	GetLines(ctx context.Context, userID int64) ([]domain.CartLine, error)

	// AddLine adds delta to the (user, product) row, creating it if
	// absent. The increment is a single atomic statement; two concurrent
	// adds for the same pair must both land.
	AddLine(ctx context.Context, userID, productID int64, delta int) error

	// SetQuantity sets the row's quantity. quantity <= 0 deletes the row.
	// A positive quantity for a row that does not exist is a no-op; adds
	// go through AddLine.
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error

	// RemoveLine deletes the row if present and reports whether it was.
	RemoveLine(ctx context.Context, userID, productID int64) (bool, error)

	// DeleteCart removes every row the user owns.
	DeleteCart(ctx context.Context, userID int64) error

	// MergeLines folds the given lines into the user's cart in one
	// transaction, summing quantities for overlapping products. Either
	// every line lands or none does.
	MergeLines(ctx context.Context, userID int64, lines []domain.CartLine) error
}
