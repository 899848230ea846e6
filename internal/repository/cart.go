package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoopworks/storefront/internal/domain/cart"
)

const (
	saveCartSQL = `INSERT INTO carts (customer_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (customer_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`

	loadCartSQL = `SELECT items FROM carts WHERE customer_id = $1`
)

var _ cart.Mirror = (*CartMirror)(nil)

// CartMirror implements cart.Mirror backed by PostgreSQL. Each write replaces
// the whole persisted cart (last-writer-wins); the in-process cart remains
// authoritative during a session.
type CartMirror struct {
	pool *pgxpool.Pool
}

// NewCartMirror returns a CartMirror that uses the given pool.
func NewCartMirror(pool *pgxpool.Pool) *CartMirror {
	return &CartMirror{pool: pool}
}

// Save replaces the persisted cart for the customer.
func (m *CartMirror) Save(ctx context.Context, c *cart.Cart) error {
	_, err := m.pool.Exec(ctx, saveCartSQL, c.CustomerID, encodeCartItems(c.Items()))
	if err != nil {
		return errors.Wrapf(err, "saving cart for customer %q", c.CustomerID)
	}
	return nil
}

// Load restores the persisted cart for the customer, or cart.ErrCartNotFound
// when none exists.
func (m *CartMirror) Load(ctx context.Context, customerID string) (*cart.Cart, error) {
	var itemsJSON []byte
	err := m.pool.QueryRow(ctx, loadCartSQL, customerID).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, errors.Wrapf(err, "loading cart for customer %q", customerID)
	}

	items, err := decodeCartItems(itemsJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "loading cart for customer %q", customerID)
	}
	return cart.Restore(customerID, items), nil
}
