package cart

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a quantity is zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrItemNotInCart is returned when changing the quantity of a product
	// that has no line in the cart.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrCartNotFound is returned by a Mirror when no persisted cart exists
	// for the customer.
	ErrCartNotFound = errors.New("cart not found")
)

// InsufficientStockError indicates the catalog cannot cover a requested
// quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Item is a single cart line: one product, the quantity wanted, and the unit
// price frozen at the moment the product was first added. The frozen price is
// what checkout charges even if the catalog price changed since.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity times the frozen unit price.
func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is the per-customer collection of line items, keyed by product ID so a
// product occupies at most one line. The cached total is recomputed on every
// mutation. A Cart is scoped to a single customer session and is not safe for
// concurrent use.
type Cart struct {
	CustomerID string

	items map[string]Item
	total decimal.Decimal
}

// New creates an empty cart for the given customer.
func New(customerID string) *Cart {
	return &Cart{
		CustomerID: customerID,
		items:      make(map[string]Item),
		total:      decimal.Zero,
	}
}

// Restore rebuilds a cart from persisted line items.
func Restore(customerID string, items []Item) *Cart {
	c := New(customerID)
	for _, it := range items {
		c.items[it.ProductID] = it
	}
	c.recalculate()
	return c
}

// Items returns the cart lines sorted by product ID.
func (c *Cart) Items() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Total returns the cached cart total: the sum of quantity times frozen unit
// price over all lines.
func (c *Cart) Total() decimal.Decimal {
	return c.total
}

// Quantity returns the quantity currently in the cart for a product, or zero.
func (c *Cart) Quantity(productID string) int {
	return c.items[productID].Quantity
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Remove deletes a product's line. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	delete(c.items, productID)
	c.recalculate()
}

// Clear removes every line from the cart.
func (c *Cart) Clear() {
	c.items = make(map[string]Item)
	c.total = decimal.Zero
}

func (c *Cart) put(it Item) {
	c.items[it.ProductID] = it
	c.recalculate()
}

func (c *Cart) recalculate() {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	c.total = total
}

// Mirror persists carts across sessions keyed by customer ID. Writes are
// last-writer-wins; the in-process cart remains authoritative during a
// session.
type Mirror interface {
	Save(ctx context.Context, c *Cart) error
	Load(ctx context.Context, customerID string) (*Cart, error)
}
