package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shophive/cart-service/internal/cache"
	"github.com/shophive/cart-service/internal/catalog"
	"github.com/shophive/cart-service/internal/domain"
	"github.com/shophive/cart-service/internal/repository"
	"github.com/shophive/cart-service/internal/session"
)

// Shopper classifies the caller of a cart operation. Authenticated
// shoppers hit the durable store; everyone else works against the
// session cart under their visitor token.
type Shopper struct {
	Token         string
	UserID        int64
	Authenticated bool
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	sessions session.Store
	catalog  catalog.Catalog
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	sessions session.Store,
	cat catalog.Catalog,
) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		sessions: sessions,
		catalog:  cat,
	}
}

// Add puts quantity units of the product into the caller's cart. A line
// for the product already present gets its quantity incremented; a cart
// never grows a second line for the same product.
func (s *CartService) Add(ctx context.Context, shopper Shopper, productID int64, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	// Resolve against the catalog before touching either store.
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return err
	}

	if shopper.Authenticated {
		if err := s.repo.AddLine(ctx, shopper.UserID, productID, quantity); err != nil {
			log.Printf("repo add line error: %v \n", err)
			return err
		}
		s.invalidateCache(shopper.UserID)
		return nil
	}

	lines, err := s.sessions.GetCart(ctx, shopper.Token)
	if err != nil {
		return err
	}

	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, domain.CartLine{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		})
	}

	return s.sessions.SaveCart(ctx, shopper.Token, lines)
}

// SetQuantity sets an existing line's quantity. A quantity of zero or
// below removes the line instead; a positive quantity for a product not
// in the cart is a no-op, adds go through Add.
func (s *CartService) SetQuantity(ctx context.Context, shopper Shopper, productID int64, quantity int) error {
	if quantity <= 0 {
		_, err := s.Remove(ctx, shopper, productID)
		return err
	}

	if shopper.Authenticated {
		if err := s.repo.SetQuantity(ctx, shopper.UserID, productID, quantity); err != nil {
			log.Printf("repo set quantity error: %v \n", err)
			return err
		}
		s.invalidateCache(shopper.UserID)
		return nil
	}

	lines, err := s.sessions.GetCart(ctx, shopper.Token)
	if err != nil {
		return err
	}

	changed := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity = quantity
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	return s.sessions.SaveCart(ctx, shopper.Token, lines)
}

// Remove deletes the product's line if present and reports whether it
// was. Removing an absent line never errors.
func (s *CartService) Remove(ctx context.Context, shopper Shopper, productID int64) (bool, error) {
	if shopper.Authenticated {
		removed, err := s.repo.RemoveLine(ctx, shopper.UserID, productID)
		if err != nil {
			log.Printf("repo remove line error: %v \n", err)
			return false, err
		}
		if removed {
			s.invalidateCache(shopper.UserID)
		}
		return removed, nil
	}

	lines, err := s.sessions.GetCart(ctx, shopper.Token)
	if err != nil {
		return false, err
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return false, nil
	}

	return true, s.sessions.SaveCart(ctx, shopper.Token, kept)
}

// View joins the caller's cart lines against current catalog prices and
// sums the total. Lines whose product no longer resolves are skipped,
// not zero-priced; the cart stays viewable around a deleted product.
func (s *CartService) View(ctx context.Context, shopper Shopper) (*domain.CartView, error) {
	lines, err := s.lines(ctx, shopper)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{Lines: []domain.CartViewLine{}}
	for _, line := range lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			view.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}

		lineTotal := float64(line.Quantity) * product.Price
		view.Lines = append(view.Lines, domain.CartViewLine{
			ProductID: line.ProductID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		view.Total += lineTotal
	}

	return view, nil
}

// Clear empties the caller's cart.
func (s *CartService) Clear(ctx context.Context, shopper Shopper) error {
	if shopper.Authenticated {
		if err := s.repo.DeleteCart(ctx, shopper.UserID); err != nil {
			log.Printf("repo delete cart error: %v \n", err)
			return err
		}
		s.invalidateCache(shopper.UserID)
		return nil
	}
	return s.sessions.ClearCart(ctx, shopper.Token)
}

// lines fetches the raw cart for whichever store is active. Persistent
// reads go cache-aside behind singleflight so a burst of views for the
// same user hits Postgres once.
func (s *CartService) lines(ctx context.Context, shopper Shopper) ([]domain.CartLine, error) {
	if !shopper.Authenticated {
		return s.sessions.GetCart(ctx, shopper.Token)
	}

	key := fmt.Sprintf("%d", shopper.UserID)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		lines, err := s.cache.Get(ctx, shopper.UserID)
		if err == nil {
			return lines, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		lines, errGet := s.repo.GetLines(ctx, shopper.UserID)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), shopper.UserID, lines); errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.CartLine), nil
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v \n", err)
	}
}
