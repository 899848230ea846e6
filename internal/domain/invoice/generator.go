package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/scoopworks/storefront/internal/domain/customer"
	"github.com/scoopworks/storefront/internal/domain/order"
)

// Generator issues invoices for persisted orders. Invoice numbers are
// day-sequential (`INV-YYYYMMDD-NNNNN`) and assigned through an atomic
// Sequence, so concurrent generation on the same day never duplicates a
// number.
type Generator struct {
	invoices  Repository
	orders    order.Repository
	customers customer.Repository
	seq       Sequence
	now       func() time.Time
}

// NewGenerator creates an invoice Generator.
func NewGenerator(
	invoices Repository,
	orders order.Repository,
	customers customer.Repository,
	seq Sequence,
) *Generator {
	return &Generator{
		invoices:  invoices,
		orders:    orders,
		customers: customers,
		seq:       seq,
		now:       time.Now,
	}
}

// Generate issues the invoice for an order. Amounts are taken from the order
// snapshot, never recomputed from the catalog: tax is 19% VAT on the order
// subtotal rounded half-up to 2 decimals, and the invoice total excludes
// shipping and discount.
func (g *Generator) Generate(ctx context.Context, orderID string, fiscal FiscalData) (*Invoice, error) {
	o, err := g.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find order %s", orderID)
	}

	exists, err := g.invoices.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "check invoice for order %s", orderID)
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	cust, err := g.customers.FindByID(ctx, o.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find customer %s", o.CustomerID)
	}

	fiscal = fiscal.withDefaults(cust)
	if err := fiscal.validate(); err != nil {
		return nil, err
	}

	issuedAt := g.now()
	number, err := g.nextNumber(ctx, issuedAt)
	if err != nil {
		return nil, err
	}

	tax := o.Subtotal.Mul(order.VATRate).Round(2)
	inv := &Invoice{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		Number:        number,
		TaxID:         fiscal.TaxID,
		LegalName:     fiscal.LegalName,
		FiscalAddress: fiscal.address(),
		Subtotal:      o.Subtotal,
		Tax:           tax,
		Total:         o.Subtotal.Add(tax),
		IssuedAt:      issuedAt,
	}
	if err := g.invoices.Save(ctx, inv); err != nil {
		return nil, errors.Wrapf(err, "save invoice for order %s", orderID)
	}
	return inv, nil
}

// ByOrder returns the invoice issued for an order.
func (g *Generator) ByOrder(ctx context.Context, orderID string) (*Invoice, error) {
	inv, err := g.invoices.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "find invoice for order %s", orderID)
	}
	return inv, nil
}

// ByNumber returns an invoice by its fiscal number.
func (g *Generator) ByNumber(ctx context.Context, number string) (*Invoice, error) {
	inv, err := g.invoices.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "find invoice %s", number)
	}
	return inv, nil
}

// List returns every issued invoice, for audit and export.
func (g *Generator) List(ctx context.Context) ([]Invoice, error) {
	out, err := g.invoices.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list invoices")
	}
	return out, nil
}

func (g *Generator) nextNumber(ctx context.Context, day time.Time) (string, error) {
	n, err := g.seq.Next(ctx, day)
	if err != nil {
		return "", errors.Wrap(err, "next invoice number")
	}
	return fmt.Sprintf("INV-%s-%05d", day.Format("20060102"), n), nil
}

// withDefaults fills blank fields from the customer's defaults on file.
func (f FiscalData) withDefaults(cust *customer.Customer) FiscalData {
	if strings.TrimSpace(f.TaxID) == "" {
		f.TaxID = cust.TaxID
	}
	if strings.TrimSpace(f.LegalName) == "" {
		f.LegalName = cust.LegalName
	}
	if strings.TrimSpace(f.Street) == "" {
		f.Street = cust.Address
	}
	if strings.TrimSpace(f.City) == "" {
		f.City = cust.City
	}
	if strings.TrimSpace(f.Region) == "" {
		f.Region = cust.Region
	}
	if strings.TrimSpace(f.PostalCode) == "" {
		f.PostalCode = cust.PostalCode
	}
	return f
}

func (f FiscalData) validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"tax id", f.TaxID},
		{"legal name", f.LegalName},
		{"street address", f.Street},
		{"city", f.City},
		{"region", f.Region},
		{"postal code", f.PostalCode},
	} {
		if strings.TrimSpace(field.value) == "" {
			return &InvalidFiscalDataError{Field: field.name}
		}
	}
	return nil
}

func (f FiscalData) address() string {
	return fmt.Sprintf("%s, %s, %s - %s", f.Street, f.City, f.Region, f.PostalCode)
}
