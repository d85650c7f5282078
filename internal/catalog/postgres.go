package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shophive/cart-service/internal/domain"
	"github.com/sony/gobreaker/v2"
)

type postgresCatalog struct {
	db     *sql.DB
	getCB  *gobreaker.CircuitBreaker[*Product]
	listCB *gobreaker.CircuitBreaker[[]*Product]
}

// NewPostgresCatalog returns a Catalog backed by the shared Postgres
// database. Lookups run through a circuit breaker so a struggling
// database fails fast instead of piling up cart requests.
func NewPostgresCatalog(db *sql.DB) Catalog {
	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A missing product is an answer, not an outage.
			return err == nil || errors.Is(err, domain.ErrProductNotFound)
		},
	}
	return &postgresCatalog{
		db:     db,
		getCB:  gobreaker.NewCircuitBreaker[*Product](settings),
		listCB: gobreaker.NewCircuitBreaker[[]*Product](settings),
	}
}

func (c *postgresCatalog) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return c.getCB.Execute(func() (*Product, error) {
		query := `
			SELECT id, name, description, price, quantity, created_at
			FROM products
			WHERE id = $1
		`

		p := &Product{}
		err := c.db.QueryRowContext(ctx, query, id).Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Quantity,
			&p.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: query product: %v", domain.ErrStorageUnavailable, err)
		}
		return p, nil
	})
}

func (c *postgresCatalog) ListProducts(ctx context.Context, page Page) ([]*Product, int, error) {
	page = page.normalize()

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count products: %v", domain.ErrStorageUnavailable, err)
	}

	products, err := c.listCB.Execute(func() ([]*Product, error) {
		direction := "ASC"
		if page.Desc {
			direction = "DESC"
		}

		// page.Sort is restricted to the whitelist by normalize.
		query := fmt.Sprintf(`
			SELECT id, name, description, price, quantity, created_at
			FROM products
			ORDER BY %s %s
			LIMIT $1 OFFSET $2
		`, sortFields[page.Sort], direction)

		rows, err := c.db.QueryContext(ctx, query, page.Limit, page.Offset)
		if err != nil {
			return nil, fmt.Errorf("%w: query products: %v", domain.ErrStorageUnavailable, err)
		}
		defer rows.Close()

		var products []*Product
		for rows.Next() {
			p := &Product{}
			err := rows.Scan(
				&p.ID,
				&p.Name,
				&p.Description,
				&p.Price,
				&p.Quantity,
				&p.CreatedAt,
			)
			if err != nil {
				return nil, fmt.Errorf("%w: scan product: %v", domain.ErrStorageUnavailable, err)
			}
			products = append(products, p)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: row iteration: %v", domain.ErrStorageUnavailable, err)
		}
		return products, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
