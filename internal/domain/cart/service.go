package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/scoopworks/storefront/internal/domain/catalog"
)

// Warning describes a staleness problem found by ValidateAvailability.
type Warning struct {
	ProductID string
	Message   string
}

// Service validates cart mutations against the current catalog state. The
// Cart value itself is supplied by the caller on every operation; the service
// holds no per-customer state.
type Service struct {
	catalog catalog.Repository
	mirror  Mirror
}

// NewService creates a cart Service. The mirror may be nil, in which case
// carts live only in process memory.
func NewService(catalog catalog.Repository, mirror Mirror) *Service {
	return &Service{catalog: catalog, mirror: mirror}
}

// Load returns the persisted cart for a customer, or a fresh empty cart when
// none exists or no mirror is configured.
func (s *Service) Load(ctx context.Context, customerID string) (*Cart, error) {
	if s.mirror == nil {
		return New(customerID), nil
	}
	c, err := s.mirror.Load(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return New(customerID), nil
		}
		return nil, errors.Wrap(err, "load cart")
	}
	return c, nil
}

// AddItem adds a product to the cart, merging into an existing line by
// summing quantities. The unit price is frozen when the line is first
// created; merging keeps the original frozen price.
func (s *Service) AddItem(ctx context.Context, c *Cart, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return err
	}

	wanted := c.Quantity(productID) + qty
	if wanted > p.Stock {
		return &InsufficientStockError{ProductID: productID, Requested: wanted, Available: p.Stock}
	}

	if existing, ok := c.items[productID]; ok {
		existing.Quantity = wanted
		c.put(existing)
	} else {
		c.put(Item{ProductID: productID, Quantity: qty, UnitPrice: p.Price})
	}

	return s.persist(ctx, c)
}

// SetItemQuantity replaces the quantity of an existing line, re-checking the
// catalog against the new absolute quantity.
func (s *Service) SetItemQuantity(ctx context.Context, c *Cart, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	existing, ok := c.items[productID]
	if !ok {
		return ErrItemNotInCart
	}

	p, err := s.lookup(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.Stock {
		return &InsufficientStockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}

	existing.Quantity = qty
	c.put(existing)

	return s.persist(ctx, c)
}

// RemoveItem deletes a product's line. Removing an absent product succeeds.
func (s *Service) RemoveItem(ctx context.Context, c *Cart, productID string) error {
	c.Remove(productID)
	return s.persist(ctx, c)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, c *Cart) error {
	c.Clear()
	return s.persist(ctx, c)
}

// ValidateAvailability compares every cart line against the current catalog
// and returns a human-readable warning per stale line. The cart is not
// mutated; callers surface the warnings before attempting checkout.
func (s *Service) ValidateAvailability(ctx context.Context, c *Cart) ([]Warning, error) {
	var warnings []Warning
	for _, it := range c.Items() {
		p, err := s.catalog.FindByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				warnings = append(warnings, Warning{
					ProductID: it.ProductID,
					Message:   fmt.Sprintf("product %s is no longer in the catalog", it.ProductID),
				})
				continue
			}
			return nil, errors.Wrapf(err, "validate product %s", it.ProductID)
		}
		if !p.Active {
			warnings = append(warnings, Warning{
				ProductID: it.ProductID,
				Message:   fmt.Sprintf("%s is no longer available for sale", p.Name),
			})
			continue
		}
		if p.Stock < it.Quantity {
			warnings = append(warnings, Warning{
				ProductID: it.ProductID,
				Message:   fmt.Sprintf("only %d of %s left in stock, cart has %d", p.Stock, p.Name, it.Quantity),
			})
		}
	}
	return warnings, nil
}

// Persist writes the cart to the configured mirror, if any. Checkout calls
// this after clearing the cart so the persisted copy does not resurrect
// already-ordered items on the next session.
func (s *Service) Persist(ctx context.Context, c *Cart) error {
	return s.persist(ctx, c)
}

func (s *Service) lookup(ctx context.Context, productID string) (*catalog.Product, error) {
	p, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find product %s", productID)
	}
	if !p.Active {
		return nil, catalog.ErrUnavailable
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, c *Cart) error {
	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.Save(ctx, c); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
