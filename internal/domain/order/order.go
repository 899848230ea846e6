package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyPaid is returned when payment is attempted on an order that
	// is already in the confirmed state.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrEmptyCart is returned when checkout is attempted with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrConflict is returned when a concurrent writer changed product stock
	// between validation and reservation. The caller should re-validate the
	// cart and retry.
	ErrConflict = errors.New("checkout conflict, retry")
)

// VATRate is the flat value-added tax applied to order and invoice subtotals.
var VATRate = decimal.New(19, -2)

// Status is the order lifecycle state. Transitions are monotonic: an order
// moves from pending to confirmed exactly once and never back.
type Status string

const (
	StatusPendingPayment   Status = "PENDING_PAYMENT"
	StatusPaymentConfirmed Status = "PAYMENT_CONFIRMED"
)

// Method identifies how an order is paid. It is empty until the payment stage
// assigns one.
type Method string

const (
	MethodDebitCard      Method = "debit_card_online"
	MethodCreditCard     Method = "credit_card_online"
	MethodBankTransfer   Method = "bank_transfer_online"
	MethodWallet         Method = "wallet_online"
	MethodCashOnDelivery Method = "cash_on_delivery"
	MethodCardOnDelivery Method = "card_on_delivery"
)

// Item is a line-item snapshot taken at checkout: the product, its name at
// the time, the quantity ordered, and the frozen unit price charged.
type Item struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a persisted customer order. All amounts are computed once at
// checkout from the cart's frozen prices and never recomputed from the
// catalog.
type Order struct {
	ID              string
	CustomerID      string
	Status          Status
	PaymentMethod   Method
	Items           []Item
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	ContactPhone    string
	CreatedAt       time.Time
	PaidAt          *time.Time
}

// ConfirmPayment transitions the order to the confirmed state, recording the
// method and confirmation time. Confirming an already-confirmed order fails
// with ErrAlreadyPaid.
func (o *Order) ConfirmPayment(m Method, at time.Time) error {
	if o.Status == StatusPaymentConfirmed {
		return ErrAlreadyPaid
	}
	o.PaymentMethod = m
	o.Status = StatusPaymentConfirmed
	o.PaidAt = &at
	return nil
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	FindByCustomer(ctx context.Context, customerID string) ([]Order, error)
}
