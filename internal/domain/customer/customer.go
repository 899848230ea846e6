package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer holds the shipping and fiscal defaults on file for a registered
// customer. Checkout snapshots the shipping fields onto the order; invoicing
// falls back to the fiscal fields when the request leaves them blank.
type Customer struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Region     string
	PostalCode string
	TaxID      string
	LegalName  string
}

// Repository defines read access to registered customers.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Customer, error)
}
