package session

import (
	"context"

	"github.com/shophive/cart-service/internal/domain"
)

// Store holds the two kinds of per-visitor state: the anonymous cart a
// browser accumulates before it has an identity, and the auth sessions
// minted at login. It is a typed contract, not a generic key-value bag.
type Store interface {
	// GetCart returns the anonymous cart for the visitor token. A visitor
	// with no cart yet gets an empty slice.
	GetCart(ctx context.Context, token string) ([]domain.CartLine, error)

	// SaveCart replaces the visitor's cart wholesale.
	SaveCart(ctx context.Context, token string, lines []domain.CartLine) error

	// ClearCart discards the visitor's cart in its entirety.
	ClearCart(ctx context.Context, token string) error

	// CreateAuth mints a new auth session for the user and returns its token.
	CreateAuth(ctx context.Context, userID int64) (string, error)

	// GetAuth resolves an auth token to a user id. Unknown or expired
	// tokens yield domain.ErrUnauthenticated.
	GetAuth(ctx context.Context, token string) (int64, error)

	// DeleteAuth ends the auth session; unknown tokens are a no-op.
	DeleteAuth(ctx context.Context, token string) error
}
