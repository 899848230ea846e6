package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrAlreadyExists is returned when generating an invoice for an order
	// that already has one. At most one invoice exists per order.
	ErrAlreadyExists = errors.New("invoice already exists for order")
)

// InvalidFiscalDataError indicates a required fiscal field was blank after
// falling back to the customer's defaults.
type InvalidFiscalDataError struct {
	Field string
}

func (e *InvalidFiscalDataError) Error() string {
	return fmt.Sprintf("invalid fiscal data: %s is required", e.Field)
}

// FiscalData carries the tax-identification and billing-address fields
// required to legally issue an invoice. Blank fields fall back to the
// defaults on file for the customer.
type FiscalData struct {
	TaxID      string
	LegalName  string
	Street     string
	City       string
	Region     string
	PostalCode string
}

// Invoice is a fiscal document for a confirmed order. It is created once and
// never mutated. Shipping and discount are order-level concerns and are not
// reflected here: the invoice covers subtotal plus VAT only.
type Invoice struct {
	ID            string
	OrderID       string
	Number        string
	TaxID         string
	LegalName     string
	FiscalAddress string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	IssuedAt      time.Time
}

// Repository defines persistence operations for invoices.
type Repository interface {
	Save(ctx context.Context, inv *Invoice) error
	FindByOrderID(ctx context.Context, orderID string) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	ListAll(ctx context.Context) ([]Invoice, error)
}

// Sequence assigns day-scoped invoice sequence numbers. Next must be atomic:
// two concurrent calls for the same day never observe the same value.
type Sequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}
