package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shophive/cart-service/internal/domain"
)

// MergeOnAuth folds the anonymous cart under the visitor token into the
// user's persistent cart, summing quantities for overlapping products,
// then discards the anonymous cart. It runs exactly once per successful
// login or registration, before the response goes out.
//
// The write side is a single transaction: if any line fails to land, no
// line lands, the anonymous cart stays untouched, and the caller gets
// ErrCartMergeFailed so a retried login can merge again without double
// counting.
func (s *CartService) MergeOnAuth(ctx context.Context, token string, userID int64) error {
	lines, err := s.sessions.GetCart(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: read anonymous cart: %v", domain.ErrCartMergeFailed, err)
	}
	if len(lines) == 0 {
		// No anonymous cart recorded for this session; nothing to do.
		return nil
	}

	// Lines whose product vanished while the visitor browsed are dropped,
	// same tolerance as the cart view.
	resolved := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		_, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: resolve product %d: %v", domain.ErrCartMergeFailed, line.ProductID, err)
		}
		resolved = append(resolved, line)
	}

	if len(resolved) > 0 {
		if err := s.repo.MergeLines(ctx, userID, resolved); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCartMergeFailed, err)
		}
		s.invalidateCache(userID)
	}

	// Past this point the merge is committed. A failed session clear is
	// logged, not surfaced; the leftover cart expires with its TTL.
	if err := s.sessions.ClearCart(ctx, token); err != nil {
		log.Printf("clear anonymous cart after merge error: %v \n", err)
	}

	return nil
}
