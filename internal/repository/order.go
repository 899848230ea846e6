package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scoopworks/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (
			id, customer_id, status, payment_method, items,
			subtotal, tax, shipping, discount, total,
			shipping_address, contact_phone, created_at, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	orderColumns = `id, customer_id, status, payment_method, items,
		subtotal, tax, shipping, discount, total,
		shipping_address, contact_phone, created_at, paid_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	findOrdersByCustomerSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	updateOrderSQL = `UPDATE orders
		SET status = $2, payment_method = $3, paid_at = $4
		WHERE id = $1 AND status = 'PENDING_PAYMENT'`

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line-item
// snapshots are serialized to a JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, string(o.Status), string(o.PaymentMethod), encodeOrderItems(o.Items),
		o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total,
		o.ShippingAddress, o.ContactPhone, o.CreatedAt, o.PaidAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}
	return nil
}

// FindByID returns a single order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}
	return &o, nil
}

// Update persists the mutable order fields: status, payment method, and the
// payment confirmation timestamp. The update only applies while the order is
// still awaiting payment, so of two racing confirmations exactly one wins and
// the other gets ErrAlreadyPaid.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), string(o.PaymentMethod), o.PaidAt,
	)
	if err != nil {
		return errors.Wrapf(err, "updating order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		var status string
		if err := r.pool.QueryRow(ctx, getOrderStatusSQL, o.ID).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return errors.Wrapf(err, "updating order %q", o.ID)
		}
		return order.ErrAlreadyPaid
	}
	return nil
}

// FindByCustomer returns the customer's orders, most recent first.
func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing orders for customer %q", customerID)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		status    string
		method    string
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &status, &method, &itemsJSON,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total,
		&o.ShippingAddress, &o.ContactPhone, &o.CreatedAt, &o.PaidAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.PaymentMethod = order.Method(method)
	o.Items, err = decodeOrderItems(itemsJSON)
	return o, err
}
