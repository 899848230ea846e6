package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrUnavailable is returned when a product exists but is not active for sale.
	ErrUnavailable = errors.New("product unavailable")
	// ErrVersionConflict is returned by conditional writes when the product
	// was modified by a concurrent writer since it was read.
	ErrVersionConflict = errors.New("product version conflict")
)

// Product represents a catalog item available for purchase. Stock and Version
// change together: every stock mutation bumps Version, and conditional writes
// only succeed against the Version the caller read.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	Version     int64
	CreatedAt   time.Time
	RestockedAt *time.Time
}

// Repository defines catalog operations used by the order pipeline.
//
// DecrementStock is a compare-and-swap: it succeeds only when the stored
// version still equals the given version, and fails with ErrVersionConflict
// otherwise. IncrementStock is the unconditional compensation used to undo a
// reservation when a multi-item checkout aborts partway.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindActive(ctx context.Context) ([]Product, error)
	FindByNameContains(ctx context.Context, name string) ([]Product, error)
	Save(ctx context.Context, p *Product) error
	DecrementStock(ctx context.Context, id string, qty int, version int64) error
	IncrementStock(ctx context.Context, id string, qty int) error
}
