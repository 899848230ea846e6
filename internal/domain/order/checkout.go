package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scoopworks/storefront/internal/domain/cart"
	"github.com/scoopworks/storefront/internal/domain/catalog"
	"github.com/scoopworks/storefront/internal/domain/customer"
)

// CheckoutService converts a validated cart into a persisted order while
// reserving inventory. Stock is decremented at checkout time, not at payment
// confirmation, so two customers cannot both win the last unit while one of
// them still has it sitting unpaid in a cart.
type CheckoutService struct {
	catalog     catalog.Repository
	customers   customer.Repository
	orders      Repository
	shippingFee decimal.Decimal
	now         func() time.Time
}

// NewCheckoutService creates a CheckoutService charging the given flat
// shipping fee per order.
func NewCheckoutService(
	catalog catalog.Repository,
	customers customer.Repository,
	orders Repository,
	shippingFee decimal.Decimal,
) *CheckoutService {
	return &CheckoutService{
		catalog:     catalog,
		customers:   customers,
		orders:      orders,
		shippingFee: shippingFee,
		now:         time.Now,
	}
}

// reservation records one applied stock decrement so it can be compensated if
// a later step of the same checkout fails.
type reservation struct {
	productID string
	qty       int
}

// Checkout re-validates every cart line against the current catalog, reserves
// stock with per-product conditional decrements, and persists a new order in
// the pending-payment state. The reservation is all-or-nothing: if any
// decrement or the order write fails, every decrement already applied is
// rolled back and no order exists.
//
// A version mismatch on any product surfaces ErrConflict; the caller is
// expected to re-validate the cart and retry. On success the cart is cleared;
// the caller persists the cleared cart to its mirror.
func (s *CheckoutService) Checkout(ctx context.Context, customerID string, c *cart.Cart) (*Order, error) {
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	cust, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrap(err, "find customer")
	}

	items := c.Items()

	// Validation pass: every line must still be purchasable, and the version
	// read here is what the conditional decrements are pinned to.
	products := make([]*catalog.Product, len(items))
	for i, it := range items {
		p, err := s.catalog.FindByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, catalog.ErrNotFound
			}
			return nil, errors.Wrapf(err, "find product %s", it.ProductID)
		}
		if !p.Active {
			return nil, catalog.ErrUnavailable
		}
		if p.Stock < it.Quantity {
			return nil, &cart.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: p.Stock,
			}
		}
		products[i] = p
	}

	// Reservation pass: conditional decrement per line, rolling back all
	// applied decrements on the first failure.
	reserved := make([]reservation, 0, len(items))
	for i, it := range items {
		err := s.catalog.DecrementStock(ctx, it.ProductID, it.Quantity, products[i].Version)
		if err != nil {
			if errors.Is(err, catalog.ErrVersionConflict) {
				err = ErrConflict
			} else {
				err = errors.Wrapf(err, "reserve stock for product %s", it.ProductID)
			}
			return nil, s.release(ctx, reserved, err)
		}
		reserved = append(reserved, reservation{productID: it.ProductID, qty: it.Quantity})
	}

	subtotal := c.Total()
	tax := subtotal.Mul(VATRate).Round(2)
	discount := decimal.Zero
	total := subtotal.Add(tax).Add(s.shippingFee).Sub(discount)

	snapshot := make([]Item, len(items))
	for i, it := range items {
		snapshot[i] = Item{
			ProductID: it.ProductID,
			Name:      products[i].Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	o := &Order{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		Status:          StatusPendingPayment,
		Items:           snapshot,
		Subtotal:        subtotal,
		Tax:             tax,
		Shipping:        s.shippingFee,
		Discount:        discount,
		Total:           total,
		ShippingAddress: cust.Address,
		ContactPhone:    cust.Phone,
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, s.release(ctx, reserved, errors.Wrap(err, "create order"))
	}

	c.Clear()
	return o, nil
}

// release compensates already-applied decrements after a mid-checkout
// failure and returns cause, annotated when any compensation itself failed.
// A failed compensation leaves stock under-counted rather than oversold,
// which an operator corrects with a restock.
func (s *CheckoutService) release(ctx context.Context, reserved []reservation, cause error) error {
	for _, r := range reserved {
		if err := s.catalog.IncrementStock(ctx, r.productID, r.qty); err != nil {
			return errors.Wrapf(cause, "rollback incomplete for product %s: %v", r.productID, err)
		}
	}
	return cause
}

// Order returns a persisted order by ID.
func (s *CheckoutService) Order(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", id)
	}
	return o, nil
}

// History returns the customer's orders, most recent first.
func (s *CheckoutService) History(ctx context.Context, customerID string) ([]Order, error) {
	out, err := s.orders.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "find orders for customer %s", customerID)
	}
	return out, nil
}
