package payment

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/scoopworks/storefront/internal/domain/order"
)

var (
	// ErrRejected is returned when a well-formed card is not accepted. The
	// message deliberately does not reveal which check the card failed.
	ErrRejected = errors.New("payment rejected")
	// ErrUnsupportedMethod is returned for payment methods that are declared
	// but not implemented.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
)

// InvalidCardDataError indicates a format or expiry violation in submitted
// card data.
type InvalidCardDataError struct {
	Reason string
}

func (e *InvalidCardDataError) Error() string {
	return fmt.Sprintf("invalid card data: %s", e.Reason)
}

// Data carries the method-specific fields submitted with a payment. Card
// fields are only read for online card methods; delivery methods ignore the
// whole struct.
type Data struct {
	CardNumber string
	Expiry     string // MM/YY
	CVV        string
	HolderName string

	DeliveryNotes string
}

// Result is returned on successful payment confirmation. ConfirmationCode is
// empty for online card payments and a 6-digit code for delivery methods.
type Result struct {
	OrderID          string
	Method           order.Method
	ConfirmationCode string
	Instructions     string
	Total            decimal.Decimal
}

// StatusInfo is the read-only payment status of an order.
type StatusInfo struct {
	OrderID       string
	Status        order.Status
	PaymentMethod order.Method
	Total         decimal.Decimal
	CreatedAt     time.Time
	PaidAt        *time.Time
}
